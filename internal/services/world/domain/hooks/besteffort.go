package hooks

// BestEffort runs a side-effect call whose failure must never roll back the
// state transition that preceded it. Failures are logged with the operation
// name and otherwise dropped.
func BestEffort(logf func(string, ...any), op string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil && logf != nil {
		logf("best-effort %s: %v", op, err)
	}
}
