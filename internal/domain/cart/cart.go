package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
)

// ErrInvalidQuantity is returned when a line item carries a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// LineItem is a single cart entry: an opaque product reference and how many
// units of it the customer wants.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Store holds the customer's current cart. Replace and Clear must be atomic
// with respect to concurrent readers: a reader sees either the old list or the
// new one, never a partial mix.
type Store interface {
	Items() []LineItem
	Replace(ctx context.Context, items []LineItem) error
	Clear(ctx context.Context) error
}

// Mirror is a persistence copy of the cart kept in lockstep with a Store,
// such as a remote cache. Mirrors are best-effort for reads but must be
// updated on every successful mutation so that a reload restores the same
// cart the customer last saw.
type Mirror interface {
	Save(ctx context.Context, items []LineItem) error
	Drop(ctx context.Context) error
}

// MemoryStore is an in-memory Store with zero or more attached mirrors.
type MemoryStore struct {
	mu      sync.Mutex
	items   []LineItem
	mirrors []Mirror
}

// NewMemoryStore creates a MemoryStore seeded with the given items. The
// mirrors are updated on every mutation.
func NewMemoryStore(items []LineItem, mirrors ...Mirror) *MemoryStore {
	return &MemoryStore{
		items:   slices.Clone(items),
		mirrors: mirrors,
	}
}

// Items returns a copy of the current cart contents.
func (s *MemoryStore) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Replace swaps the whole cart for the given list and propagates it to all
// mirrors. The in-memory list is updated even when a mirror write fails, so
// the returned error reports a degraded mirror rather than a failed replace.
func (s *MemoryStore) Replace(ctx context.Context, items []LineItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidQuantity, "product %s", item.ProductID)
		}
	}

	s.mu.Lock()
	s.items = slices.Clone(items)
	mirrors := s.mirrors
	s.mu.Unlock()

	var mirrorErr error
	for _, m := range mirrors {
		if err := m.Save(ctx, items); err != nil && mirrorErr == nil {
			mirrorErr = errors.Wrap(err, "save cart mirror")
		}
	}
	return mirrorErr
}

// Clear empties the cart and drops all mirrors in lockstep.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = nil
	mirrors := s.mirrors
	s.mu.Unlock()

	var mirrorErr error
	for _, m := range mirrors {
		if err := m.Drop(ctx); err != nil && mirrorErr == nil {
			mirrorErr = errors.Wrap(err, "drop cart mirror")
		}
	}
	return mirrorErr
}
