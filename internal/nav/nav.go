// Package nav tracks the session's route the way a browser history would.
package nav

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xenking/checkout-flow/internal/domain/checkout"
)

// Router is a headless navigator. Go pushes a new history entry, Replace
// swaps the current one.
type Router struct {
	lg *zap.Logger

	mu      sync.Mutex
	history []string
}

var _ checkout.Navigator = (*Router)(nil)

// NewRouter starts history at the given route.
func NewRouter(lg *zap.Logger, start string) *Router {
	return &Router{
		lg:      lg,
		history: []string{start},
	}
}

// Go pushes route onto the history.
func (r *Router) Go(route string) {
	r.mu.Lock()
	r.history = append(r.history, route)
	r.mu.Unlock()

	r.lg.Info("navigate", zap.String("route", route))
}

// Replace swaps the current history entry for route. Going back will skip
// the replaced entry, matching history.replaceState semantics.
func (r *Router) Replace(route string) {
	r.mu.Lock()
	r.history[len(r.history)-1] = route
	r.mu.Unlock()

	r.lg.Info("navigate", zap.String("route", route), zap.Bool("replace", true))
}

// Current returns the route at the top of the history.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[len(r.history)-1]
}

// Back pops the current entry and returns the new current route. Backing
// out of the first entry is a no-op.
func (r *Router) Back() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.history) > 1 {
		r.history = r.history[:len(r.history)-1]
	}
	return r.history[len(r.history)-1]
}

// History returns a copy of the visited routes, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}
