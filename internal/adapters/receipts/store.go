// Package receipts implements ports.ReceiptStore as JSON files under
// .ai/guardrails/installed/, written via write-temp -> fsync -> rename
// (spec.md §3, §4.3 step 5).
package receipts

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/receipt"
)

// Store is a filesystem-backed ports.ReceiptStore rooted at
// <target_root>/.ai/guardrails/installed/.
type Store struct {
	fs   *filesystem.Real
	root string
}

// New creates a receipt Store rooted at targetRoot.
func New(fs *filesystem.Real, targetRoot string) *Store {
	return &Store{fs: fs, root: filepath.Join(targetRoot, ".ai", "guardrails", "installed")}
}

func (s *Store) path(component string) string {
	return filepath.Join(s.root, component+".json")
}

// Get loads the receipt for component, if one exists.
func (s *Store) Get(component string) (receipt.Receipt, bool, error) {
	data, err := s.fs.ReadFile(s.path(component))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return receipt.Receipt{}, false, nil
		}
		return receipt.Receipt{}, false, err
	}
	var r receipt.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return receipt.Receipt{}, false, err
	}
	return r, true, nil
}

// Put persists r for component via write-temp -> fsync -> rename on the
// receipt file itself (spec.md §4.3 step 5, §4.5 receipts.put).
func (s *Store) Put(component string, r receipt.Receipt) error {
	// Canonical JSON: UTF-8, LF line endings, trailing newline, two-space
	// indent for human readability (receipts are inspected by operators).
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return s.fs.AtomicWrite(s.path(component), data, 0o644)
}

// Delete removes component's receipt. Deleting a receipt that doesn't
// exist is not an error — uninstall is idempotent.
func (s *Store) Delete(component string) error {
	err := s.fs.Remove(s.path(component))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// List returns every persisted receipt, including plugin-contributed ones
// whose qualified name ("<plugin_id>/<name>") places their JSON file in a
// plugin_id subdirectory of root.
func (s *Store) List() ([]receipt.Receipt, error) {
	if _, err := os.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []receipt.Receipt
	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		component := rel[:len(rel)-len(".json")]
		component = filepath.ToSlash(component)

		r, ok, err := s.Get(component)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, r)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

// IsCurrent reports whether component's receipt matches manifestDigest —
// the fast-path check the Planner uses before deciding a component is
// fully unchanged (spec.md §4.2 step 2).
func (s *Store) IsCurrent(component, manifestDigest string) (bool, error) {
	r, ok, err := s.Get(component)
	if err != nil || !ok {
		return false, err
	}
	return r.ManifestDigest == manifestDigest, nil
}
