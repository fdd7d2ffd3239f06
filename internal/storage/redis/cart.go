// Package redis persists cart contents in Redis so an interrupted
// checkout session can pick up where it left off.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/checkout-flow/internal/domain/cart"
)

// ErrNoCart is returned by Load when no cart is stored for the user.
var ErrNoCart = errors.New("no stored cart")

// DefaultTTL is how long a stored cart outlives the last mutation.
const DefaultTTL = 15 * time.Minute

// CartMirror keeps a copy of the in-memory cart under cart:<userID>.
// Entries expire with a jittered TTL so a fleet of sessions does not
// evict in lockstep.
type CartMirror struct {
	client *goredis.Client
	userID string
	ttl    time.Duration
}

var _ cart.Mirror = (*CartMirror)(nil)

// NewCartMirror builds a mirror scoped to a single user.
func NewCartMirror(client *goredis.Client, userID string, ttl time.Duration) *CartMirror {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CartMirror{
		client: client,
		userID: userID,
		ttl:    ttl,
	}
}

// Save replaces the stored cart with the given items.
func (m *CartMirror) Save(ctx context.Context, items []cart.LineItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}

	jitter := time.Duration(rand.Int63n(int64(m.ttl) / 4))
	if err := m.client.Set(ctx, cartKey(m.userID), payload, m.ttl+jitter).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Drop removes the stored cart.
func (m *CartMirror) Drop(ctx context.Context) error {
	if err := m.client.Del(ctx, cartKey(m.userID)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Load fetches the stored cart, used to seed a fresh session.
func (m *CartMirror) Load(ctx context.Context) ([]cart.LineItem, error) {
	data, err := m.client.Get(ctx, cartKey(m.userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNoCart
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var items []cart.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart")
	}
	return items, nil
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
