package httpapi

import (
	"net/http"

	"github.com/xenking/furniture-store/internal/domain/user"
)

type userJSON struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	OrderHistory []int  `json:"order_history"`
}

func userToJSON(u user.User) userJSON {
	history := u.OrderIDs
	if history == nil {
		history = []int{}
	}
	return userJSON{
		Email:        u.Email,
		Name:         u.Name,
		Address:      u.Address,
		OrderHistory: history,
	}
}

// listUsers handles GET /api/users.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users := h.users.List()
	out := make([]userJSON, len(users))
	for i, u := range users {
		out[i] = userToJSON(u)
	}
	writeJSON(w, http.StatusOK, out)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Address  string `json:"address"`
}

// registerUser handles POST /api/users.
func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.users.Register(req.Email, req.Password, req.Name, req.Address)
	if err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusCreated, userToJSON(*u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/login. Unknown email and wrong password produce
// the same response so accounts cannot be enumerated.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, ok := h.users.Login(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, userToJSON(*u))
}

type profileRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// updateProfile handles POST /api/users/{email}/profile.
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.users.UpdateProfile(r.PathValue("email"), user.ProfilePatch{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, userToJSON(*u))
}

type passwordRequest struct {
	Password string `json:"password"`
}

// setPassword handles POST /api/users/{email}/password.
func (h *Handler) setPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.users.SetPassword(r.PathValue("email"), req.Password); err != nil {
		respondError(w, err)
		return
	}
	h.persist(r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// deleteUser handles DELETE /api/users/{email}. Historical orders survive
// the account.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if err := h.users.Delete(email); err != nil {
		respondError(w, err)
		return
	}
	h.carts.Delete(email)
	h.persist(r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
