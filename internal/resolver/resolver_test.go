package resolver_test

import (
	"path/filepath"
	"testing"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
	"github.com/doylet/guardrails-ai-sub001/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FreshInstall_OrdersCoreBeforeDependent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".ai", "guardrails.yaml"), "x: 1\n")
	writeFile(t, filepath.Join(root, ".ai", "envelope.json"), "{}\n")
	writeFile(t, filepath.Join(root, "schemas", "envelope.schema.json"), "{}\n")
	writeFile(t, filepath.Join(root, "manifest.yaml"), `
components:
  - name: core
    files:
      - ".ai/guardrails.yaml"
      - ".ai/envelope.json"
    install_order: 0
  - name: schemas
    files:
      - "schemas/envelope.schema.json"
    dependencies:
      - core
    install_order: 0
profiles:
  - name: minimal
    components:
      - core
      - schemas
`)

	result, err := resolver.Resolve(resolver.Input{
		FS:          filesystem.New(),
		CorePath:    filepath.Join(root, "manifest.yaml"),
		ProfileName: "minimal",
		Policy:      resolver.DefaultPolicy(),
	})
	require.NoError(t, err)
	require.Len(t, result.Order, 2)
	assert.Equal(t, "core", result.Order[0].Name)
	assert.Equal(t, "schemas", result.Order[1].Name)
}

func TestResolve_UnknownProfileErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(root, "manifest.yaml"), `
components:
  - name: core
    files:
      - "a.yaml"
    install_order: 0
`)

	_, err := resolver.Resolve(resolver.Input{
		FS:          filesystem.New(),
		CorePath:    filepath.Join(root, "manifest.yaml"),
		ProfileName: "does-not-exist",
		Policy:      resolver.DefaultPolicy(),
	})
	require.Error(t, err)
}

func TestResolve_CyclicDependencyFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(root, "b.yaml"), "b: 1\n")
	writeFile(t, filepath.Join(root, "manifest.yaml"), `
components:
  - name: a
    files:
      - "a.yaml"
    dependencies:
      - b
    install_order: 0
  - name: b
    files:
      - "b.yaml"
    dependencies:
      - a
    install_order: 0
`)

	_, err := resolver.Resolve(resolver.Input{
		FS:       filesystem.New(),
		CorePath: filepath.Join(root, "manifest.yaml"),
		Policy:   resolver.DefaultPolicy(),
	})
	require.Error(t, err)
}
