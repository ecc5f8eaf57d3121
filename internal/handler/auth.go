package handler

import (
	"net/http"
	"time"

	"github.com/Dan9191/money-dashboard/internal/auth"
	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/repository"
	"github.com/Dan9191/money-dashboard/internal/service"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.fail(w, r, err, "Internal server error")
		return
	}
	h.setAuthCookies(w, res)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    userResponse{ID: res.User.ID, Email: res.User.Email, Name: res.User.Name},
		"message": "User registered successfully",
	})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, "Internal server error")
		return
	}
	h.setAuthCookies(w, res)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    userResponse{ID: res.User.ID, Email: res.User.Email, Name: res.User.Name},
		"message": "Login successful",
	})
}

// Logout deletes the session and clears the auth cookies
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookie); err == nil && c.Value != "" {
		if err := h.svc.Logout(r.Context(), c.Value); err != nil {
			h.fail(w, r, err, "Internal server error")
			return
		}
	}
	for _, name := range []string{middleware.SessionCookie, middleware.AccessCookie, middleware.RefreshCookie} {
		h.setCookie(w, name, "", -1)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Refresh trades the refresh token cookie for a new access token
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(middleware.RefreshCookie); err == nil {
		token = c.Value
	}
	access, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		h.fail(w, r, err, "Internal server error")
		return
	}
	h.setCookie(w, middleware.AccessCookie, access, auth.AccessTokenTTL)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// Me returns the authenticated user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u := user(r)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": userResponse{ID: u.ID, Email: u.Email, Name: u.Name},
	})
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, res *service.AuthResult) {
	h.setCookie(w, middleware.SessionCookie, res.Session.ID, repository.SessionTTL)
	h.setCookie(w, middleware.AccessCookie, res.AccessToken, auth.AccessTokenTTL)
	h.setCookie(w, middleware.RefreshCookie, res.RefreshToken, auth.RefreshTokenTTL)
}

// setCookie writes an httpOnly cookie; a negative ttl deletes it
func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
