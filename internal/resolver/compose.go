package resolver

import (
	"sort"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/manifest"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/schema"
	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// CompositionPolicy is the default merge strategy applied when a
// structure entry does not declare its own (spec.md §4.1: "directories
// use UNION by default; files use STRICT unless the policy grants
// OVERRIDE/UNION").
type CompositionPolicy struct {
	DefaultDirStrategy  manifest.MergeStrategy
	DefaultFileStrategy manifest.MergeStrategy
	Callback            ports.ResolverCallback
}

// DefaultPolicy returns the authoritative default policy from spec.md
// §4.1: directories UNION, files STRICT.
func DefaultPolicy() CompositionPolicy {
	return CompositionPolicy{
		DefaultDirStrategy:  manifest.StrategyUnion,
		DefaultFileStrategy: manifest.StrategyStrict,
	}
}

// ComposeTargetSchema implements compose_target_schema (spec.md §4.1):
// merges every enabled plugin's structure schema into one composed
// TargetSchema, in plugin installation order, recording provenance and
// applying each path's merge strategy.
func ComposeTargetSchema(spec *ResolvedSpec, enabledPlugins []string, policy CompositionPolicy) (*CompositionResult, error) {
	target := schema.NewTargetSchema()

	for _, pluginID := range enabledPlugins {
		pm, ok := spec.Plugins[pluginID]
		if !ok || pm.Structure == nil {
			continue
		}

		for _, entry := range pm.Structure.Provides {
			strategy := entry.Strategy
			if strategy == "" {
				if entry.IsDir {
					strategy = policy.DefaultDirStrategy
				} else {
					strategy = policy.DefaultFileStrategy
				}
			}

			if err := admitEntry(target, pluginID, entry, strategy, policy.Callback); err != nil {
				return nil, err
			}
		}
	}

	if err := checkRequiresStructure(spec, enabledPlugins, target); err != nil {
		return nil, err
	}

	return &CompositionResult{Schema: target, PluginOrder: append([]string(nil), enabledPlugins...)}, nil
}

// admitEntry applies strategy for one plugin's contribution to path,
// merging with whatever is already composed at that path.
func admitEntry(target *schema.TargetSchema, pluginID string, entry manifest.StructureEntry, strategy manifest.MergeStrategy, callback ports.ResolverCallback) error {
	existing, exists := target.Get(entry.Path)
	if !exists {
		target.Put(schema.Entry{
			Path:          entry.Path,
			Required:      true,
			IsDir:         entry.IsDir,
			MergeStrategy: strategy,
			Description:   entry.Description,
			OwnerPlugins:  []string{pluginID},
		})
		return nil
	}

	switch strategy {
	case manifest.StrategyUnion:
		existing.OwnerPlugins = append(existing.OwnerPlugins, pluginID)
		target.Put(existing)
		return nil

	case manifest.StrategyOverride:
		// Lowest install_order wins, tiebreak lexicographic plugin id
		// (spec.md §4.1, authoritative). admitEntry sees plugins in that
		// exact order already (sortPluginsByInstallOrder sorts
		// enabledPlugins before composition), so whichever plugin first
		// admits this path is the winner: it has the lowest install_order
		// of any contributor seen so far, and every later arrival has a
		// higher (or tied-but-lexicographically-later) order and loses.
		// A losing plugin's contribution at this path is dropped
		// entirely — it does not join OwnerPlugins and is not expected to
		// produce the path itself.
		existing.MergeStrategy = strategy
		target.Put(existing)
		return nil

	case manifest.StrategyInteractive:
		if callback == nil {
			existing.OwnerPlugins = append(existing.OwnerPlugins, pluginID)
			target.Put(existing)
			return nil
		}
		candidates := append(append([]string(nil), existing.OwnerPlugins...), pluginID)
		choice, err := callback(entry.Path, candidates)
		if err != nil {
			return xerrors.NewIOError("resolver callback failed for "+entry.Path, err)
		}
		existing.OwnerPlugins = []string{choice.WinningPlugin}
		target.Put(existing)
		return nil

	default: // StrategyStrict
		return xerrors.NewConflictError(entry.Path, append(existing.OwnerPlugins, pluginID))
	}
}

// checkRequiresStructure verifies every enabled plugin's
// requires_structure entries are satisfied by the composed schema.
func checkRequiresStructure(spec *ResolvedSpec, enabledPlugins []string, target *schema.TargetSchema) error {
	for _, pluginID := range enabledPlugins {
		pm, ok := spec.Plugins[pluginID]
		if !ok || pm.Structure == nil {
			continue
		}
		for _, required := range pm.Structure.Requires {
			if _, ok := target.Get(required); !ok {
				return xerrors.NewUnsatisfiedStructureError(pluginID, required)
			}
		}
	}
	return nil
}

// sortPluginsByInstallOrder orders plugin ids by the lowest install_order
// among their components, tiebroken lexicographically — the order
// composition must process contributions in in order for OVERRIDE's
// "lowest install_order wins, tiebreak lexicographic id" rule to reduce
// to simple first-write-wins.
func sortPluginsByInstallOrder(spec *ResolvedSpec, pluginIDs []string) []string {
	type ranked struct {
		id    string
		order int
	}
	ranks := make([]ranked, 0, len(pluginIDs))
	for _, id := range pluginIDs {
		minOrder := 100
		if pm, ok := spec.Plugins[id]; ok {
			for _, c := range pm.Components {
				if c.InstallOrder < minOrder {
					minOrder = c.InstallOrder
				}
			}
		}
		ranks = append(ranks, ranked{id: id, order: minOrder})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].order != ranks[j].order {
			return ranks[i].order < ranks[j].order
		}
		return ranks[i].id < ranks[j].id
	})
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.id
	}
	return out
}
