package doctor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/doylet/guardrails-ai-sub001/internal/adapters/filesystem"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/hashing"
	"github.com/doylet/guardrails-ai-sub001/internal/adapters/receipts"
	"github.com/doylet/guardrails-ai-sub001/internal/doctor"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/receipt"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/schema"
	"github.com/doylet/guardrails-ai-sub001/internal/installer"
	"github.com/doylet/guardrails-ai-sub001/internal/planner"
	"github.com/doylet/guardrails-ai-sub001/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func digestFor(t *testing.T, c manifest.Component) string {
	t.Helper()
	d, err := hashing.ManifestDigest(hashing.ManifestDigestInput{
		Name: c.Name, PluginID: c.PluginID, Files: c.Files, TargetPrefix: c.TargetPrefix,
		Dependencies: c.Dependencies, InstallOrder: c.InstallOrder, Required: c.Required, PostInstall: c.PostInstall,
	})
	require.NoError(t, err)
	return d
}

func newFixture(t *testing.T, c manifest.Component) (*doctor.Doctor, *resolver.Result, string, string) {
	t.Helper()
	srcRoot := t.TempDir()
	tgtRoot := t.TempDir()

	fs := filesystem.New()
	store := receipts.New(fs, tgtRoot)

	spec := &resolver.ResolvedSpec{Core: &manifest.Manifest{Components: []manifest.Component{c}}, Plugins: map[string]*manifest.PluginManifest{}}
	result := &resolver.Result{
		Spec:        spec,
		Order:       []resolver.ComponentRef{{Name: c.Name, PluginID: c.PluginID, InstallOrder: c.InstallOrder}},
		Composition: &resolver.CompositionResult{Schema: schema.NewTargetSchema()},
	}

	p := planner.New(fs, fs, store, srcRoot, tgtRoot, false)
	in := &installer.Installer{FS: fs, Receipts: store, Clock: fixedClock{}, SourceRoot: srcRoot, TargetRoot: tgtRoot, EngineVersion: "v1.0.0"}
	d := &doctor.Doctor{FS: fs, Receipts: store, TargetRoot: tgtRoot, EngineVersion: "v1.0.0", Planner: p, Installer: in}

	return d, result, srcRoot, tgtRoot
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestDiagnose_CleanInstallReportsNothing(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)

	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: 1\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Diagnose(result)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestDiagnose_DriftedFileIsFlagged(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)

	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: edited-by-user\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Diagnose(result)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, doctor.KindDrift, report.Findings[0].Kind)
	assert.Equal(t, "core", report.Findings[0].Component)
}

func TestDiagnose_MissingFileIsFlagged(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, _ := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Diagnose(result)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, doctor.KindMissing, report.Findings[0].Kind)
}

func TestDiagnose_ComponentWithNoReceiptIsMissing(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, _ := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")

	report, err := d.Diagnose(result)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, doctor.KindMissing, report.Findings[0].Kind)
	assert.Equal(t, "core", report.Findings[0].Component)
}

func TestDiagnose_StaleManifestDigestIsFlagged(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)

	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: 1\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: "stale-digest-from-an-older-manifest",
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Diagnose(result)
	require.NoError(t, err)
	found := false
	for _, f := range report.Findings {
		if f.Kind == doctor.KindStale {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnose_UnsatisfiedRequiredSchemaPathIsFlagged(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: 1\n")

	result.Composition.Schema.Put(schema.Entry{Path: ".ai/envelope.json", Required: true, OwnerPlugins: []string{""}})

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Diagnose(result)
	require.NoError(t, err)

	var unsatisfied *doctor.Finding
	for i, f := range report.Findings {
		if f.Kind == doctor.KindUnsatisfied {
			unsatisfied = &report.Findings[i]
		}
	}
	require.NotNil(t, unsatisfied)
	assert.Equal(t, ".ai/envelope.json", unsatisfied.Path)
}

func TestDiagnose_LeftoverStagingDirIsFlaggedDirty(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, ".ai", "guardrails", ".staging", "core", ".guardrails-stage-marker"), "component=core\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Diagnose(result)
	require.NoError(t, err)

	found := false
	for _, f := range report.Findings {
		if f.Kind == doctor.KindDirty {
			found = true
			assert.Equal(t, filepath.Join(".staging", "core"), f.Path)
		}
	}
	assert.True(t, found)
}

func TestRepair_ReportOnlyNeverWrites(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")

	report, err := d.Repair(context.Background(), result, doctor.PolicyReportOnly)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Findings)
	assert.Empty(t, report.Repaired)

	fs := filesystem.New()
	assert.False(t, fs.Exists(filepath.Join(tgtRoot, "a.yaml")))
}

func TestRepair_RestoreMissingReinstallsAbsentFile(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Repair(context.Background(), result, doctor.PolicyRestoreMissing)
	require.NoError(t, err)
	assert.Contains(t, report.Repaired, "core")

	restored, readErr := os.ReadFile(filepath.Join(tgtRoot, "a.yaml"))
	require.NoError(t, readErr)
	assert.Equal(t, "a: 1\n", string(restored))
}

func TestRepair_RestoreMissingOverwritesDriftedContent(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: edited-by-user\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: digestFor(t, c),
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Repair(context.Background(), result, doctor.PolicyRestoreMissing)
	require.NoError(t, err)
	assert.Contains(t, report.Repaired, "core")

	restored, readErr := os.ReadFile(filepath.Join(tgtRoot, "a.yaml"))
	require.NoError(t, readErr)
	assert.Equal(t, "a: 1\n", string(restored))

	r, ok, err := d.Receipts.Get("core")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, r.InstalledFiles, 1)
	assert.Equal(t, "a.yaml", r.InstalledFiles[0].Path)
	assert.Equal(t, hashing.SHA256Bytes([]byte("a: 1\n")), r.InstalledFiles[0].SHA256)

	clean, diagErr := d.Diagnose(result)
	require.NoError(t, diagErr)
	assert.True(t, clean.Clean())
}

func TestRepair_ReinstallStaleFixesDigestMismatch(t *testing.T) {
	t.Parallel()

	c := manifest.Component{Name: "core", Files: []string{"a.yaml"}, InstallOrder: 0}
	d, result, srcRoot, tgtRoot := newFixture(t, c)
	writeFile(t, filepath.Join(srcRoot, "a.yaml"), "a: 2\n")
	writeFile(t, filepath.Join(tgtRoot, "a.yaml"), "a: 1\n")

	require.NoError(t, d.Receipts.Put("core", receipt.Receipt{
		Component:      "core",
		ManifestDigest: "stale-digest-from-an-older-manifest",
		EngineVersion:  "v1.0.0",
		InstalledFiles: []receipt.InstalledFile{
			{Path: "a.yaml", SHA256: hashing.SHA256Bytes([]byte("a: 1\n")), Mode: 0o644, Size: 5},
		},
	}))

	report, err := d.Repair(context.Background(), result, doctor.PolicyReinstallStale)
	require.NoError(t, err)
	assert.Contains(t, report.Repaired, "core")

	r, ok, err := d.Receipts.Get("core")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, digestFor(t, c), r.ManifestDigest)

	updated, readErr := os.ReadFile(filepath.Join(tgtRoot, "a.yaml"))
	require.NoError(t, readErr)
	assert.Equal(t, "a: 2\n", string(updated))
}
