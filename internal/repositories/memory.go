package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/password"
)

// MemoryStore keeps users, videos, subscriptions and watch history in process
// memory. It backs unit tests and local runs without a database. The Users,
// Channels and Videos views satisfy the repository interfaces.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	videos        map[string]models.Video
	subscriptions map[[2]string]time.Time
	history       map[string][]string
	now           func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		videos:        make(map[string]models.Video),
		subscriptions: make(map[[2]string]time.Time),
		history:       make(map[string][]string),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the UserRepository view of the store.
func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{s: s} }

// Channels returns the ChannelRepository view of the store.
func (s *MemoryStore) Channels() *MemoryChannelRepository { return &MemoryChannelRepository{s: s} }

// Videos returns the VideoRepository view of the store.
func (s *MemoryStore) Videos() *MemoryVideoRepository { return &MemoryVideoRepository{s: s} }

// MemoryUserRepository implements UserRepository over a MemoryStore.
type MemoryUserRepository struct {
	s *MemoryStore
}

// Create hashes the password and stores the user. Username and email collisions
// return ErrConflict.
func (r *MemoryUserRepository) Create(_ context.Context, user models.NewUser) (string, error) {
	hashed, err := password.Hash(user.Password)
	if err != nil {
		return "", err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return "", ErrConflict
		}
	}

	now := r.s.now()
	id := uuid.NewString()
	r.s.users[id] = models.User{
		ID:           id,
		Username:     user.Username,
		Email:        user.Email,
		Fullname:     user.Fullname,
		Avatar:       user.Avatar,
		CoverImage:   user.CoverImage,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return id, nil
}

// FindByID returns a copy of the stored user.
func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return copyUser(user), nil
}

// FindByIdentifier returns the oldest user matching username or email.
func (r *MemoryUserRepository) FindByIdentifier(_ context.Context, username, email string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matches []models.User
	for _, user := range r.s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			matches = append(matches, user)
		}
	}
	if len(matches) == 0 {
		return models.User{}, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return copyUser(matches[0]), nil
}

// SetRefreshToken overwrites the stored refresh token.
func (r *MemoryUserRepository) SetRefreshToken(_ context.Context, id, token string) error {
	return r.mutate(id, func(u *models.User) error {
		u.RefreshToken = &token
		return nil
	})
}

// ClearRefreshToken removes the stored refresh token.
func (r *MemoryUserRepository) ClearRefreshToken(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) error {
		u.RefreshToken = nil
		return nil
	})
}

// UpdatePassword hashes plain and replaces the stored hash.
func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, plain string) error {
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}
	return r.mutate(id, func(u *models.User) error {
		u.PasswordHash = hashed
		return nil
	})
}

// UpdateAccountDetails replaces fullname and email. Taking another user's email
// returns ErrConflict.
func (r *MemoryUserRepository) UpdateAccountDetails(_ context.Context, id, fullname, email string) (models.User, error) {
	var updated models.User
	err := r.mutate(id, func(u *models.User) error {
		for otherID, other := range r.s.users {
			if otherID != id && other.Email == email {
				return ErrConflict
			}
		}
		u.Fullname = fullname
		u.Email = email
		updated = *u
		return nil
	})
	return copyUser(updated), err
}

// UpdateAvatar replaces the avatar URL.
func (r *MemoryUserRepository) UpdateAvatar(_ context.Context, id, url string) (models.User, error) {
	var updated models.User
	err := r.mutate(id, func(u *models.User) error {
		u.Avatar = url
		updated = *u
		return nil
	})
	return copyUser(updated), err
}

// UpdateCoverImage replaces the cover image URL.
func (r *MemoryUserRepository) UpdateCoverImage(_ context.Context, id, url string) (models.User, error) {
	var updated models.User
	err := r.mutate(id, func(u *models.User) error {
		u.CoverImage = url
		updated = *u
		return nil
	})
	return copyUser(updated), err
}

func (r *MemoryUserRepository) mutate(id string, fn func(*models.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&user); err != nil {
		return err
	}
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return nil
}

func copyUser(u models.User) models.User {
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		u.RefreshToken = &token
	}
	return u
}

// MemoryChannelRepository implements ChannelRepository over a MemoryStore.
type MemoryChannelRepository struct {
	s *MemoryStore
}

// ChannelProfile loads the channel owned by username with its counters.
func (r *MemoryChannelRepository) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if user.Username != username {
			continue
		}
		profile := models.ChannelProfile{
			ID:         user.ID,
			Username:   user.Username,
			Email:      user.Email,
			Fullname:   user.Fullname,
			Avatar:     user.Avatar,
			CoverImage: user.CoverImage,
		}
		for key := range r.s.subscriptions {
			if key[1] == user.ID {
				profile.SubscribersCount++
				if key[0] == viewerID {
					profile.IsSubscribed = true
				}
			}
			if key[0] == user.ID {
				profile.ChannelsSubscribedToCount++
			}
		}
		return profile, nil
	}
	return models.ChannelProfile{}, ErrNotFound
}

// WatchHistory returns the user's watched videos in watch order.
func (r *MemoryChannelRepository) WatchHistory(_ context.Context, userID string) ([]models.WatchedVideo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.users[userID]; !ok {
		return nil, ErrNotFound
	}

	history := []models.WatchedVideo{}
	for _, videoID := range r.s.history[userID] {
		video, ok := r.s.videos[videoID]
		if !ok {
			continue
		}
		owner := r.s.users[video.OwnerID]
		history = append(history, models.WatchedVideo{
			ID:          video.ID,
			VideoFile:   video.VideoFile,
			Thumbnail:   video.Thumbnail,
			Title:       video.Title,
			Description: video.Description,
			Views:       video.Views,
			IsPublished: video.IsPublished,
			CreatedAt:   video.CreatedAt,
			Owner: models.VideoOwner{
				ID:       owner.ID,
				Username: owner.Username,
				Fullname: owner.Fullname,
				Avatar:   owner.Avatar,
			},
		})
	}
	return history, nil
}

// ToggleSubscription adds or removes the subscription and reports the new state.
func (r *MemoryChannelRepository) ToggleSubscription(_ context.Context, subscriberID, channelID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[channelID]; !ok {
		return false, ErrNotFound
	}
	if _, ok := r.s.users[subscriberID]; !ok {
		return false, ErrNotFound
	}

	key := [2]string{subscriberID, channelID}
	if _, ok := r.s.subscriptions[key]; ok {
		delete(r.s.subscriptions, key)
		return false, nil
	}
	r.s.subscriptions[key] = r.s.now()
	return true, nil
}

// MemoryVideoRepository implements VideoRepository over a MemoryStore.
type MemoryVideoRepository struct {
	s *MemoryStore
}

// Create stores the video. The owner must exist.
func (r *MemoryVideoRepository) Create(_ context.Context, video models.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.videos[video.ID]; ok {
		return ErrConflict
	}
	if _, ok := r.s.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	r.s.videos[video.ID] = video
	return nil
}

// FindByID loads a video by id.
func (r *MemoryVideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	video, ok := r.s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// RecordView appends the video to the user's history and bumps its view count.
func (r *MemoryVideoRepository) RecordView(_ context.Context, videoID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	video, ok := r.s.videos[videoID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := r.s.users[userID]; !ok {
		return ErrNotFound
	}

	video.Views++
	r.s.videos[videoID] = video
	r.s.history[userID] = append(r.s.history[userID], videoID)
	return nil
}

var _ UserRepository = (*MemoryUserRepository)(nil)
var _ ChannelRepository = (*MemoryChannelRepository)(nil)
var _ VideoRepository = (*MemoryVideoRepository)(nil)
