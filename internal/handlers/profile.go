package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/respond"
)

// ProfileHandler serves the authenticated user's account and channel endpoints.
type ProfileHandler struct {
	Profiles ProfileService
	Uploads  Uploads
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h ProfileHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	current, err := h.Profiles.CurrentUser(ctx, user.ID)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, current, "Current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h ProfileHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPatch) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	updated, err := h.Profiles.UpdateAccountDetails(ctx, user.ID, req.Fullname, req.Email)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPatch) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	form, err := h.Uploads.parseForm(w, r, "avatar")
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	defer form.cleanup()

	updated, err := h.Profiles.UpdateAvatar(ctx, user.ID, form.file("avatar"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, updated, "Avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h ProfileHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPatch) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	form, err := h.Uploads.parseForm(w, r, "coverimage")
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	defer form.cleanup()

	updated, err := h.Profiles.UpdateCoverImage(ctx, user.ID, form.file("coverimage"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, updated, "Cover image updated successfully")
}

// Channel handles GET /api/v1/users/c/{username}.
func (h ProfileHandler) Channel(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	profile, err := h.Profiles.ChannelProfile(ctx, r.PathValue("username"), user.ID)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

// History handles GET /api/v1/users/history.
func (h ProfileHandler) History(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	history, err := h.Profiles.WatchHistory(ctx, user.ID)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, history, "Watch history fetched successfully")
}

// ToggleSubscription handles POST /api/v1/subscriptions/c/{channelId}.
func (h ProfileHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	subscribed, err := h.Profiles.ToggleSubscription(ctx, user.ID, r.PathValue("channelId"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}
	respond.JSON(ctx, w, http.StatusOK, subscriptionResponse{Subscribed: subscribed}, message)
}

type updateAccountRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

type subscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}
