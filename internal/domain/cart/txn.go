package cart

import (
	"context"
	"slices"
)

// Txn is a reserve/confirm helper around a Store for optimistic mutations:
// take a snapshot, apply a speculative clear, then either commit it or roll
// the store back to exactly the snapshotted list. A rollback restores the
// full pre-transaction contents wholesale; it does not merge with mutations
// that happened in between.
type Txn struct {
	store    Store
	snapshot []LineItem
	done     bool
}

// Begin snapshots the store's current contents and opens a transaction.
func Begin(store Store) *Txn {
	return &Txn{
		store:    store,
		snapshot: store.Items(),
	}
}

// Snapshot returns the items captured at Begin time.
func (t *Txn) Snapshot() []LineItem {
	return slices.Clone(t.snapshot)
}

// Clear optimistically empties the store. The snapshot is unaffected, so the
// clear remains reversible until Commit.
func (t *Txn) Clear(ctx context.Context) error {
	return t.store.Clear(ctx)
}

// Commit finalizes the transaction. Subsequent Rollback calls are no-ops.
func (t *Txn) Commit() {
	t.done = true
}

// Rollback restores the store to the snapshot taken at Begin. It is a no-op
// after Commit or after a previous Rollback.
func (t *Txn) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.store.Replace(ctx, t.snapshot)
}
