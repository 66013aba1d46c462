package cart

import "sync"

// Registry holds one cart per user email, created on first access. Cart
// mutation is logically single-writer (one cart per user), but lookup and
// replacement are shared, so the map itself is guarded.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewRegistry returns an empty cart registry.
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// Get returns the cart for the given email, creating it on first access.
func (r *Registry) Get(email string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[email]
	if !ok {
		c = New(email)
		r.carts[email] = c
	}
	return c
}

// Replace discards any existing cart for the email and returns a fresh one.
// Used for replace-style cart updates where each call supplies the full
// desired item set.
func (r *Registry) Replace(email string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := New(email)
	r.carts[email] = c
	return c
}

// Delete removes the cart for the given email, if any.
func (r *Registry) Delete(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, email)
}

// All returns the current carts. Carts already converted to orders have been
// cleared and are skipped.
func (r *Registry) All() []*Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Cart, 0, len(r.carts))
	for _, c := range r.carts {
		if !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}

// Restore replaces the registry contents with the given carts.
func (r *Registry) Restore(carts []*Cart) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts = make(map[string]*Cart, len(carts))
	for _, c := range carts {
		r.carts[c.UserEmail] = c
	}
}
