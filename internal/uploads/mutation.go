package uploads

// Mutation records undo steps for a multi-step change spanning disk and
// the document store. Steps run in reverse order on Rollback; after
// Commit, Rollback is a no-op and the deferred cleanups run instead.
type Mutation struct {
	undo      []func() error
	onCommit  []func() error
	committed bool
	errs      []error
}

// Undo registers a compensating action for a completed step.
func (m *Mutation) Undo(fn func() error) {
	m.undo = append(m.undo, fn)
}

// AfterCommit registers cleanup that must only happen once every step
// succeeded, such as deleting a replaced file.
func (m *Mutation) AfterCommit(fn func() error) {
	m.onCommit = append(m.onCommit, fn)
}

// Commit runs the after-commit actions. Their errors are collected and
// returned but the mutation stays committed.
func (m *Mutation) Commit() []error {
	m.committed = true
	for _, fn := range m.onCommit {
		if err := fn(); err != nil {
			m.errs = append(m.errs, err)
		}
	}
	return m.errs
}

// Rollback undoes completed steps unless the mutation was committed.
func (m *Mutation) Rollback() []error {
	if m.committed {
		return nil
	}
	var errs []error
	for i := len(m.undo) - 1; i >= 0; i-- {
		if err := m.undo[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.undo = nil
	return errs
}
