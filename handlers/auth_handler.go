package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"productsapi/auth"
	"productsapi/models"
	"productsapi/repository"
)

type AuthHandler struct {
	Repo   repository.UserRepository
	Tokens *auth.TokenManager
	Log    *zap.Logger
}

type registerInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token"`
	User    *models.AppUser `json:"user"`
}

// Register creates an account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, "Email, password, and name are required")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &models.AppUser{Email: in.Email, PasswordHash: hash, Name: in.Name, Role: in.Role}
	if err := h.Repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.Log.Error("registration failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.Log.Info("user registered", zap.Int64("user_id", user.ID))
	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    user,
	})
}

// Login checks credentials. Unknown email and wrong password get the same
// answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.Repo.GetUserByEmail(r.Context(), in.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.Log.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, in.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: token, User: user})
}

// Me returns the profile of the token's owner.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	user, err := h.Repo.GetUserByID(r.Context(), claims.ID)
	if err != nil {
		writeRepoError(w, h.Log, err, "User not found", "Failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: user})
}
