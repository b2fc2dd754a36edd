package yamlops_test

import (
	"testing"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/yamlops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ScalarOverlayWins(t *testing.T) {
	t.Parallel()

	base, err := yamlops.Load([]byte("name: base\nversion: 1\n"), yamlops.FormatYAML)
	require.NoError(t, err)
	overlay, err := yamlops.Load([]byte("version: 2\n"), yamlops.FormatYAML)
	require.NoError(t, err)

	merged, err := yamlops.Merge(base, overlay)
	require.NoError(t, err)

	out, err := yamlops.Dump(merged)
	require.NoError(t, err)
	assert.Contains(t, string(out), "name: base")
	assert.Contains(t, string(out), "version: 2")
}

func TestMerge_DeepMergesMappings(t *testing.T) {
	t.Parallel()

	base, err := yamlops.Load([]byte(`
server:
  host: localhost
  port: 8080
`), yamlops.FormatYAML)
	require.NoError(t, err)
	overlay, err := yamlops.Load([]byte(`
server:
  port: 9090
  tls: true
`), yamlops.FormatYAML)
	require.NoError(t, err)

	merged, err := yamlops.Merge(base, overlay)
	require.NoError(t, err)

	out, err := yamlops.Dump(merged)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "host: localhost")
	assert.Contains(t, text, "port: 9090")
	assert.Contains(t, text, "tls: true")
}

func TestMerge_ScalarList_SetUnionPreservesBaseOrder(t *testing.T) {
	t.Parallel()

	base, err := yamlops.Load([]byte("formulae:\n  - git\n  - ripgrep\n"), yamlops.FormatYAML)
	require.NoError(t, err)
	overlay, err := yamlops.Load([]byte("formulae:\n  - ripgrep\n  - docker\n"), yamlops.FormatYAML)
	require.NoError(t, err)

	merged, err := yamlops.Merge(base, overlay)
	require.NoError(t, err)

	out, err := yamlops.Dump(merged)
	require.NoError(t, err)

	// base order preserved, overlay-only entries appended, no duplicates.
	assert.Equal(t, 1, countOccurrences(string(out), "ripgrep"))
	assert.Equal(t, 1, countOccurrences(string(out), "git"))
	assert.Equal(t, 1, countOccurrences(string(out), "docker"))
}

func TestMerge_IdentityList_MergesMatchingByID(t *testing.T) {
	t.Parallel()

	base, err := yamlops.Load([]byte(`
components:
  - name: eslint
    required: true
  - name: prettier
    required: false
`), yamlops.FormatYAML)
	require.NoError(t, err)
	overlay, err := yamlops.Load([]byte(`
components:
  - name: eslint
    required: false
  - name: jest
    required: true
`), yamlops.FormatYAML)
	require.NoError(t, err)

	merged, err := yamlops.Merge(base, overlay)
	require.NoError(t, err)

	out, err := yamlops.Dump(merged)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "eslint")
	assert.Contains(t, text, "prettier")
	assert.Contains(t, text, "jest")
}

func TestMerge_BaseOnlyKeysRetainedWhenOverlayOmitsThem(t *testing.T) {
	t.Parallel()

	base, err := yamlops.Load([]byte("a: 1\nb: 2\n"), yamlops.FormatYAML)
	require.NoError(t, err)
	overlay, err := yamlops.Load([]byte("a: 9\n"), yamlops.FormatYAML)
	require.NoError(t, err)

	merged, err := yamlops.Merge(base, overlay)
	require.NoError(t, err)

	out, err := yamlops.Dump(merged)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "a: 9")
	assert.Contains(t, text, "b: 2")
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
