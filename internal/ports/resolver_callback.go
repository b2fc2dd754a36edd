package ports

// ConflictChoice is the outcome of an INTERACTIVE conflict resolution: the
// plugin ID the operator chose to win at path.
type ConflictChoice struct {
	Path          string
	WinningPlugin string
}

// ResolverCallback lets the shell resolve an INTERACTIVE merge-strategy
// conflict (spec.md §4.1, §9). The core never calls into a terminal
// directly; if no callback is supplied, INTERACTIVE falls back to UNION.
type ResolverCallback func(path string, candidates []string) (ConflictChoice, error)
