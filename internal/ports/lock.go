package ports

// Locker guards the target repository's .ai/guardrails tree for the
// duration of a run (spec.md §5). Acquire must return a BusyError (see
// internal/domain/xerrors) when another run already holds the lock.
type Locker interface {
	// Acquire takes the advisory lock at path, returning a release func.
	// Acquire never blocks — a contended lock fails fast.
	Acquire(path string) (release func() error, err error)
}
