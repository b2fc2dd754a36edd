package planner_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/hashing"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/receipts"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/plan"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/receipt"
	"github.com/doylet/guardrails-ai-sub001/internal/planner"
	"github.com/doylet/guardrails-ai-sub001/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSrc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T, files map[string]string, c manifest.Component) (*planner.Planner, *resolver.Result, string) {
	t.Helper()
	srcRoot := t.TempDir()
	tgtRoot := t.TempDir()

	for rel, content := range files {
		writeSrc(t, srcRoot, rel, content)
	}

	fs := filesystem.New()
	store := receipts.New(fs, tgtRoot)

	spec := &resolver.ResolvedSpec{
		Core:    &manifest.Manifest{Components: []manifest.Component{c}},
		Plugins: map[string]*manifest.PluginManifest{},
	}
	result := &resolver.Result{
		Spec:  spec,
		Order: []resolver.ComponentRef{{Name: c.Name, PluginID: c.PluginID, InstallOrder: c.InstallOrder}},
	}

	p := planner.New(fs, fs, store, srcRoot, tgtRoot, false)
	return p, result, tgtRoot
}

func TestPlan_NewComponentProducesNewActions(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"a.yaml", "b.yaml"},
		InstallOrder: 0,
	}
	p, result, _ := newFixture(t, map[string]string{
		"a.yaml": "a: 1\n",
		"b.yaml": "b: 1\n",
	}, c)

	out, err := p.Plan(result)
	require.NoError(t, err)
	require.Len(t, out.Components, 1)

	actions := out.Components[0].Actions
	require.Len(t, actions, 2)
	assert.Equal(t, "a.yaml", actions[0].DstPath)
	assert.Equal(t, plan.ReasonNew, actions[0].Reason)
	assert.Equal(t, plan.KindCopy, actions[0].Kind)
	assert.Equal(t, "b.yaml", actions[1].DstPath)
	assert.Equal(t, plan.ReasonNew, actions[1].Reason)
}

func TestPlan_ActionsAreSortedByDstPath(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"z.yaml", "a.yaml", "m.yaml"},
		InstallOrder: 0,
	}
	p, result, _ := newFixture(t, map[string]string{
		"z.yaml": "z: 1\n",
		"a.yaml": "a: 1\n",
		"m.yaml": "m: 1\n",
	}, c)

	out, err := p.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 3)
	assert.Equal(t, []string{"a.yaml", "m.yaml", "z.yaml"}, []string{
		actions[0].DstPath, actions[1].DstPath, actions[2].DstPath,
	})
}

func TestPlan_UnchangedFileIsSkippedViaFastPath(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"a.yaml"},
		InstallOrder: 0,
	}
	p, result, tgtRoot := newFixture(t, map[string]string{"a.yaml": "a: 1\n"}, c)

	content := "a: 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(tgtRoot, "a.yaml"), []byte(content), 0o644))

	digest, err := hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name:         c.Name,
		Files:        c.Files,
		InstallOrder: c.InstallOrder,
	})
	require.NoError(t, err)

	store := receipts.New(filesystem.New(), tgtRoot)
	require.NoError(t, store.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digest,
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte(content)), Mode: 0o644, Size: int64(len(content))},
		},
		InstalledAt: time.Time{},
	}))

	out, err := p.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 1)
	assert.Equal(t, plan.KindSkip, actions[0].Kind)
	assert.Equal(t, plan.ReasonUnchanged, actions[0].Reason)
}

func TestPlan_SourceChangeProducesHashDiff(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"a.yaml"},
		InstallOrder: 0,
	}
	p, result, tgtRoot := newFixture(t, map[string]string{"a.yaml": "a: 2\n"}, c)

	oldContent := "a: 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(tgtRoot, "a.yaml"), []byte(oldContent), 0o644))

	digest, err := hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name:         c.Name,
		Files:        c.Files,
		InstallOrder: c.InstallOrder,
	})
	require.NoError(t, err)

	store := receipts.New(filesystem.New(), tgtRoot)
	require.NoError(t, store.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digest,
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte(oldContent)), Mode: 0o644, Size: int64(len(oldContent))},
		},
	}))

	out, err := p.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 1)
	assert.Equal(t, plan.KindCopy, actions[0].Kind)
	assert.Equal(t, plan.ReasonHashDiff, actions[0].Reason)
}

func TestPlan_TargetDriftProceedsWithClassifiedKind(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"a.yaml"},
		InstallOrder: 0,
	}
	p, result, tgtRoot := newFixture(t, map[string]string{"a.yaml": "a: 1\n"}, c)

	installedContent := "a: 1\n"
	userEdited := "a: 1\nuser_added: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(tgtRoot, "a.yaml"), []byte(userEdited), 0o644))

	digest, err := hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name:         c.Name,
		Files:        c.Files,
		InstallOrder: c.InstallOrder,
	})
	require.NoError(t, err)

	store := receipts.New(filesystem.New(), tgtRoot)
	require.NoError(t, store.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digest,
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte(installedContent)), Mode: 0o644, Size: int64(len(installedContent))},
		},
	}))

	out, err := p.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 1)
	assert.Equal(t, plan.KindCopy, actions[0].Kind)
	assert.Equal(t, plan.ReasonDrift, actions[0].Reason)
}

func TestPlan_ManifestDigestChangeBypassesFastPath(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"a.yaml"},
		InstallOrder: 0,
	}
	p, result, tgtRoot := newFixture(t, map[string]string{"a.yaml": "a: 1\n"}, c)

	content := "a: 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(tgtRoot, "a.yaml"), []byte(content), 0o644))

	store := receipts.New(filesystem.New(), tgtRoot)
	require.NoError(t, store.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: "stale-digest-from-an-older-manifest",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte(content)), Mode: 0o644, Size: int64(len(content))},
		},
	}))

	out, err := p.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 1)
	assert.Equal(t, plan.ReasonUnchanged, actions[0].Reason)
}

func TestPlan_ForceBypassesFastPathEvenWhenUnchanged(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"a.yaml"},
		InstallOrder: 0,
	}
	srcRoot := t.TempDir()
	tgtRoot := t.TempDir()
	content := "a: 1\n"
	writeSrc(t, srcRoot, "a.yaml", content)
	require.NoError(t, os.WriteFile(filepath.Join(tgtRoot, "a.yaml"), []byte(content), 0o644))

	fs := filesystem.New()
	store := receipts.New(fs, tgtRoot)

	digest, err := hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name:         c.Name,
		Files:        c.Files,
		InstallOrder: c.InstallOrder,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digest,
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte(content)), Mode: 0o644, Size: int64(len(content))},
		},
	}))

	spec := &resolver.ResolvedSpec{Core: &manifest.Manifest{Components: []manifest.Component{c}}, Plugins: map[string]*manifest.PluginManifest{}}
	result := &resolver.Result{Spec: spec, Order: []resolver.ComponentRef{{Name: c.Name}}}

	forced := planner.New(fs, fs, store, srcRoot, tgtRoot, true)
	out, err := forced.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 1)
	assert.Equal(t, plan.ReasonUnchanged, actions[0].Reason)
	assert.Equal(t, plan.KindCopy, actions[0].Kind)
}

func TestPlan_ExampleYAMLMergesWithComputedDestination(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"settings.example.yaml"},
		InstallOrder: 0,
	}
	p, result, _ := newFixture(t, map[string]string{"settings.example.yaml": "x: 1\n"}, c)

	out, err := p.Plan(result)
	require.NoError(t, err)

	actions := out.Components[0].Actions
	require.Len(t, actions, 1)
	assert.Equal(t, "settings.yaml", actions[0].DstPath)
	assert.Equal(t, plan.KindMerge, actions[0].Kind)
}

func TestPlan_DeterministicAcrossRepeatedCalls(t *testing.T) {
	t.Parallel()

	c := manifest.Component{
		Name:         "core",
		Files:        []string{"b.yaml", "a.yaml"},
		InstallOrder: 0,
	}
	p, result, _ := newFixture(t, map[string]string{
		"b.yaml": "b: 1\n",
		"a.yaml": "a: 1\n",
	}, c)

	first, err := p.Plan(result)
	require.NoError(t, err)
	firstJSON, err := first.Serialize()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := p.Plan(result)
		require.NoError(t, err)
		againJSON, err := again.Serialize()
		require.NoError(t, err)
		assert.Equal(t, firstJSON, againJSON)
	}
}
