package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockMirror struct {
	saved   [][]LineItem
	drops   int
	saveErr error
	dropErr error
}

func (m *mockMirror) Save(_ context.Context, items []LineItem) error {
	m.saved = append(m.saved, items)
	return m.saveErr
}

func (m *mockMirror) Drop(_ context.Context) error {
	m.drops++
	return m.dropErr
}

// --- Tests ---

func TestMemoryStore_ItemsReturnsCopy(t *testing.T) {
	s := NewMemoryStore([]LineItem{{ProductID: "B1", Quantity: 2}})

	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, 2, s.Items()[0].Quantity)
}

func TestMemoryStore_ReplaceRejectsBadQuantity(t *testing.T) {
	s := NewMemoryStore(nil)

	err := s.Replace(context.Background(), []LineItem{{ProductID: "B1", Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, s.Items())
}

func TestMemoryStore_ReplaceUpdatesMirrors(t *testing.T) {
	m := &mockMirror{}
	s := NewMemoryStore(nil, m)

	items := []LineItem{{ProductID: "B1", Quantity: 1}}
	require.NoError(t, s.Replace(context.Background(), items))

	require.Len(t, m.saved, 1)
	assert.Equal(t, items, m.saved[0])
}

func TestMemoryStore_ClearDropsMirrorsInLockstep(t *testing.T) {
	m := &mockMirror{}
	s := NewMemoryStore([]LineItem{{ProductID: "B1", Quantity: 1}}, m)

	require.NoError(t, s.Clear(context.Background()))

	assert.Empty(t, s.Items())
	assert.Equal(t, 1, m.drops)
}

func TestMemoryStore_MirrorFailureDoesNotBlockMemory(t *testing.T) {
	m := &mockMirror{saveErr: errors.New("cache down")}
	s := NewMemoryStore(nil, m)

	items := []LineItem{{ProductID: "B1", Quantity: 3}}
	err := s.Replace(context.Background(), items)

	require.Error(t, err)
	assert.Equal(t, items, s.Items())
}

func TestTxn_RollbackRestoresSnapshot(t *testing.T) {
	initial := []LineItem{
		{ProductID: "B1", Quantity: 2},
		{ProductID: "B2", Quantity: 1},
	}
	s := NewMemoryStore(initial)

	txn := Begin(s)
	require.NoError(t, txn.Clear(context.Background()))
	assert.Empty(t, s.Items())

	require.NoError(t, txn.Rollback(context.Background()))
	assert.Equal(t, initial, s.Items())
}

func TestTxn_RollbackIsWholesale(t *testing.T) {
	initial := []LineItem{{ProductID: "B1", Quantity: 2}}
	s := NewMemoryStore(initial)

	txn := Begin(s)
	// A concurrent collaborator mutates the cart mid-transaction.
	require.NoError(t, s.Replace(context.Background(), []LineItem{{ProductID: "B9", Quantity: 7}}))

	require.NoError(t, txn.Rollback(context.Background()))
	assert.Equal(t, initial, s.Items())
}

func TestTxn_RollbackAfterCommitIsNoop(t *testing.T) {
	s := NewMemoryStore([]LineItem{{ProductID: "B1", Quantity: 2}})

	txn := Begin(s)
	require.NoError(t, txn.Clear(context.Background()))
	txn.Commit()

	require.NoError(t, txn.Rollback(context.Background()))
	assert.Empty(t, s.Items())
}
