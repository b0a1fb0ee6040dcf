package ledger

// tx is the undo log of one ledger operation. Every write registers its
// inverse; Rollback replays them newest first unless Commit ran.
//
//	t := newTx()
//	defer t.Rollback()
//	... writes, each followed by t.onRollback(inverse) ...
//	t.Commit()
type tx struct {
	undo []func()
	done bool
}

func newTx() *tx {
	return &tx{undo: make([]func(), 0, 4)}
}

func (t *tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

// Rollback is a no-op after Commit.
func (t *tx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) Commit() {
	t.done = true
	t.undo = nil
}
