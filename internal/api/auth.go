package api

import (
	"errors"
	"net/http"

	"github.com/kailoud/blueme/internal/auth"
)

// registerRequest is the body of POST /api/auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// loginRequest is the body of POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is returned by register and login.
type authResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    *auth.User `json:"user"`
}

// handleRegister creates a new account and returns a session token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := auth.ValidateEmail(req.Email); err != nil {
		writeBadRequest(w, "valid email is required")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeBadRequest(w, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("user creation failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	token, err := auth.GenerateToken(user, s.cfg.Security.JWT.Secret, s.cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	s.logger.Info("user registered", "user", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Token: token, User: user})
}

// handleLogin verifies credentials and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Same response as a wrong password; do not leak which emails exist.
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(user, s.cfg.Security.JWT.Secret, s.cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.logger.Info("user logged in", "user", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: token, User: user})
}

// updateProfileRequest is the body of PUT /api/auth/profile.
type updateProfileRequest struct {
	Username string `json:"username"`
}

// changePasswordRequest is the body of PUT /api/auth/change-password.
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// deleteAccountRequest is the body of DELETE /api/auth/account.
type deleteAccountRequest struct {
	Password string `json:"password"`
}

// handleMe returns the authenticated user's account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Token outlived the account.
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// handleUpdateProfile changes the authenticated user's display name.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeBadRequest(w, "username is required")
		return
	}

	if err := s.users.UpdateUsername(r.Context(), claims.Subject, req.Username); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("profile update failed", "error", err)
		writeInternalError(w, "profile update failed")
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w, "profile update failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// handleChangePassword verifies the current password and replaces it.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeBadRequest(w, "new password must be at least 6 characters")
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w, "password change failed")
		return
	}
	if !auth.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		writeUnauthorized(w, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		writeInternalError(w, "password change failed")
		return
	}
	if err := s.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.logger.Error("password update failed", "error", err)
		writeInternalError(w, "password change failed")
		return
	}

	s.logger.Info("password changed", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleDeleteAccount removes the authenticated user's account after a
// password confirmation. Playlists and file metadata go with it via the
// schema's cascading deletes.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req deleteAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w, "account deletion failed")
		return
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeUnauthorized(w, "password is incorrect")
		return
	}

	if err := s.users.Delete(r.Context(), user.ID); err != nil {
		s.logger.Error("account deletion failed", "error", err)
		writeInternalError(w, "account deletion failed")
		return
	}

	s.logger.Info("account deleted", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleAuthStatus reports whether the caller presented a valid token.
// It never fails; anonymous callers get authenticated=false.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "authenticated": false})
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"authenticated": true,
		"user":          user,
	})
}
