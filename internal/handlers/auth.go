package handlers

import (
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/respond"
)

// AuthHandler implements the account and session endpoints.
type AuthHandler struct {
	Sessions     SessionService
	Uploads      Uploads
	CookieSecure bool
}

// Register handles POST /api/v1/users/register. The body is multipart with a
// required avatar file and an optional coverimage file.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	form, err := h.Uploads.parseForm(w, r, "avatar", "coverimage")
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	defer form.cleanup()

	user, err := h.Sessions.Register(ctx, auth.RegisterInput{
		Username:       form.value("username"),
		Email:          form.value("email"),
		Fullname:       form.value("fullname"),
		Password:       form.value("password"),
		AvatarPath:     form.file("avatar"),
		CoverImagePath: form.file("coverimage"),
	})
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	respond.JSON(ctx, w, http.StatusCreated, user, "User registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	result, err := h.Sessions.Login(ctx, auth.LoginInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	setSessionCookies(w, result.Tokens, h.CookieSecure)
	respond.JSON(ctx, w, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.Sessions.Logout(ctx, user.ID); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	clearSessionCookies(w, h.CookieSecure)
	respond.JSON(ctx, w, http.StatusOK, nil, "User logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The token is taken from the
// refresh cookie, falling back to the JSON body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			respond.Error(ctx, w, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	setSessionCookies(w, tokens, h.CookieSecure)
	respond.JSON(ctx, w, http.StatusOK, tokens, "Access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	if err := h.Sessions.ChangePassword(ctx, user.ID, req.OldPassword, req.NewPassword); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	respond.JSON(ctx, w, http.StatusOK, nil, "Password changed successfully")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
