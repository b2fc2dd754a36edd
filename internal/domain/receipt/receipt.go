// Package receipt defines the persisted per-component installation record
// that drives idempotency (spec.md §3). Receipts are the sole source of
// truth for "is this component current?" — the filesystem alone cannot
// answer that question.
package receipt

import "time"

// InstalledFile is one file the Installer promoted for a component.
type InstalledFile struct {
	Path string `json:"path"`
	SHA256 string `json:"sha256"`
	Mode   uint32 `json:"mode"`
	Size   int64  `json:"size"`
}

// SourceDigest records the hash of one source file a component was built
// from, independent of where it landed in the target.
type SourceDigest struct {
	SrcPath string `json:"src_path"`
	SHA256  string `json:"sha256"`
}

// Receipt is the persisted record for one installed component, stored at
// .ai/guardrails/installed/<component>.json.
type Receipt struct {
	Component      string          `json:"component"`
	PluginID       string          `json:"plugin_id,omitempty"`
	ManifestDigest string          `json:"manifest_digest"`
	InstalledFiles []InstalledFile `json:"installed_files"`
	SourceDigests  []SourceDigest  `json:"source_digests"`
	InstalledAt    time.Time       `json:"installed_at"`
	EngineVersion  string          `json:"engine_version"`
}

// FileByPath returns the InstalledFile entry for path, if the receipt
// tracks it.
func (r Receipt) FileByPath(path string) (InstalledFile, bool) {
	for _, f := range r.InstalledFiles {
		if f.Path == path {
			return f, true
		}
	}
	return InstalledFile{}, false
}

// QualifiedName mirrors manifest.Component.QualifiedName for consistent
// lookups without an import cycle.
func (r Receipt) QualifiedName() string {
	if r.PluginID == "" {
		return r.Component
	}
	return r.PluginID + "/" + r.Component
}
