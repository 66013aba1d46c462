// Package user implements the account registry: registration, login,
// password and profile updates, keyed by email.
package user

import (
	"fmt"
	"sync"
)

// NotFoundError indicates the given email is not registered.
type NotFoundError struct {
	Email string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user %s not found", e.Email)
}

// DuplicateEmailError indicates a registration collided with an existing
// account.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("user %s already registered", e.Email)
}

// Hasher is the one-way password hashing capability. The algorithm is a
// collaborator concern; the registry only requires deterministic hashing and
// comparison.
type Hasher interface {
	Hash(password string) string
	Verify(hash, password string) bool
}

// User is a registered account. OrderIDs lists past orders in creation order.
type User struct {
	Email        string
	Name         string
	Address      string
	PasswordHash string
	OrderIDs     []int
}

// ProfilePatch carries optional profile updates; nil fields are left as-is.
type ProfilePatch struct {
	Name    *string
	Address *string
}

// Registry is the process-wide user table with an explicit lifecycle,
// constructed at startup and passed by reference to collaborators.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]*User
	emails []string // registration order
	hasher Hasher
}

// NewRegistry returns an empty registry using the given password hasher.
func NewRegistry(h Hasher) *Registry {
	return &Registry{
		users:  make(map[string]*User),
		hasher: h,
	}
}

// Register creates a new account. It fails with DuplicateEmailError when the
// email is taken.
func (r *Registry) Register(email, password, name, address string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[email]; ok {
		return nil, &DuplicateEmailError{Email: email}
	}
	u := &User{
		Email:        email,
		Name:         name,
		Address:      address,
		PasswordHash: r.hasher.Hash(password),
	}
	r.users[email] = u
	r.emails = append(r.emails, email)

	out := *u
	return &out, nil
}

// Login returns the account when the email exists and the password matches.
// Unknown email and wrong password are indistinguishable in the result, so
// callers cannot enumerate accounts.
func (r *Registry) Login(email, password string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok || !r.hasher.Verify(u.PasswordHash, password) {
		return nil, false
	}
	out := *u
	return &out, true
}

// CheckPassword reports whether the password matches the stored hash. Unlike
// Login, an unknown email is an explicit NotFoundError.
func (r *Registry) CheckPassword(email, password string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return false, &NotFoundError{Email: email}
	}
	return r.hasher.Verify(u.PasswordHash, password), nil
}

// SetPassword replaces the stored hash with one for the new password.
func (r *Registry) SetPassword(email, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return &NotFoundError{Email: email}
	}
	u.PasswordHash = r.hasher.Hash(password)
	return nil
}

// UpdateProfile overwrites only the supplied profile fields.
func (r *Registry) UpdateProfile(email string, p ProfilePatch) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return nil, &NotFoundError{Email: email}
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	out := *u
	return &out, nil
}

// Delete removes the account. Historical orders are owned by the order
// history and survive the account.
func (r *Registry) Delete(email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[email]; !ok {
		return &NotFoundError{Email: email}
	}
	delete(r.users, email)
	for i, e := range r.emails {
		if e == email {
			r.emails = append(r.emails[:i], r.emails[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the account with the given email.
func (r *Registry) Get(email string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return nil, false
	}
	out := *u
	out.OrderIDs = append([]int(nil), u.OrderIDs...)
	return &out, true
}

// List returns copies of all accounts in registration order.
func (r *Registry) List() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.emails))
	for _, email := range r.emails {
		u := r.users[email]
		cp := *u
		cp.OrderIDs = append([]int(nil), u.OrderIDs...)
		out = append(out, cp)
	}
	return out
}

// AttachOrder records a finalized order on the account. Checkouts for
// unregistered emails are allowed; those are silently skipped.
func (r *Registry) AttachOrder(email string, orderID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[email]; ok {
		u.OrderIDs = append(u.OrderIDs, orderID)
	}
}

// Restore replaces the registry contents, preserving the given order.
func (r *Registry) Restore(users []User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]*User, len(users))
	r.emails = r.emails[:0]
	for i := range users {
		u := users[i]
		r.users[u.Email] = &u
		r.emails = append(r.emails, u.Email)
	}
}
