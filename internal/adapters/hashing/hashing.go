// Package hashing implements the hashing adapter: sha256 over file and
// in-memory content, and the manifest digest used to decide whether a
// component's resolved definition changed (spec.md §3, §4.5).
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SHA256Bytes returns the lowercase hex sha256 digest of data.
func SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// resolvedComponent is the canonical JSON shape hashed into a
// manifest_digest: name, plugin id, file list, target prefix,
// dependencies, install order, required flag, and post_install. File
// modes are not part of it. Field order here is the canonical order — encoding/json
// emits struct fields in declaration order, so two components with
// identical resolved definitions always hash identically.
type resolvedComponent struct {
	Name         string   `json:"name"`
	PluginID     string   `json:"plugin_id,omitempty"`
	Files        []string `json:"files"`
	TargetPrefix string   `json:"target_prefix,omitempty"`
	Dependencies []string `json:"dependencies"`
	InstallOrder int      `json:"install_order"`
	Required     bool     `json:"required"`
	PostInstall  []string `json:"post_install"`
}

// ManifestDigestInput is the subset of manifest.Component the digest is
// computed over, passed in rather than imported directly so this leaf
// package has no dependency on the manifest package.
type ManifestDigestInput struct {
	Name         string
	PluginID     string
	Files        []string
	TargetPrefix string
	Dependencies []string
	InstallOrder int
	Required     bool
	PostInstall  []string
}

// ManifestDigest computes the sha256 over the canonical JSON serialization
// of a component's resolved definition (spec.md §3 "manifest_digest").
func ManifestDigest(in ManifestDigestInput) (string, error) {
	rc := resolvedComponent{
		Name:         in.Name,
		PluginID:     in.PluginID,
		Files:        nonNil(in.Files),
		TargetPrefix: in.TargetPrefix,
		Dependencies: nonNil(in.Dependencies),
		InstallOrder: in.InstallOrder,
		Required:     in.Required,
		PostInstall:  nonNil(in.PostInstall),
	}
	data, err := json.Marshal(rc)
	if err != nil {
		return "", err
	}
	return SHA256Bytes(data), nil
}

// nonNil normalizes a nil slice to empty so "no dependencies" always
// serializes as [] rather than null, keeping the digest stable regardless
// of how the caller built the slice.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
