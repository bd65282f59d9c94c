package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/respond"
	"github.com/videotube/backend/internal/videos"
)

// VideoHandler provides endpoints for publishing and watching videos.
type VideoHandler struct {
	Videos  VideoService
	Uploads Uploads
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodPost) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	form, err := h.Uploads.parseForm(w, r, "videoFile", "thumbnail")
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	defer form.cleanup()

	video, err := h.Videos.Publish(ctx, videos.PublishInput{
		OwnerID:       user.ID,
		Title:         form.value("title"),
		Description:   form.value("description"),
		VideoPath:     form.file("videoFile"),
		ThumbnailPath: form.file("thumbnail"),
	})
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusCreated, video, "Video published successfully")
}

// Watch handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r, http.MethodGet) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	video, err := h.Videos.Watch(ctx, r.PathValue("videoId"), user.ID)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.JSON(ctx, w, http.StatusOK, video, "Video fetched successfully")
}
