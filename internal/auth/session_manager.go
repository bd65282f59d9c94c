package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/password"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/validation"
)

// UserStore is the credential persistence the Manager depends on.
type UserStore interface {
	Create(ctx context.Context, user models.NewUser) (string, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, username, email string) (models.User, error)
	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, plain string) error
}

// MediaUploader moves a local temp file to the media host.
type MediaUploader interface {
	UploadAsset(ctx context.Context, localPath string) (models.Asset, error)
}

// RegisterInput carries the fields submitted at registration. The paths point at
// temp files holding the uploaded images.
type RegisterInput struct {
	Username       string `json:"username" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Fullname       string `json:"fullname" validate:"required"`
	Password       string `json:"password" validate:"required,notblank,maxbytes=72"`
	AvatarPath     string `json:"-"`
	CoverImagePath string `json:"-"`
}

// LoginInput identifies the account by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User   models.PublicUser
	Tokens models.SessionTokens
}

type passwordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,notblank,maxbytes=72"`
}

// Manager drives the session lifecycle: registration, login, logout, refresh-token
// rotation and password changes. Each user holds at most one valid refresh token.
type Manager struct {
	users  UserStore
	tokens *Issuer
	media  MediaUploader
}

// NewManager constructs a Manager.
func NewManager(users UserStore, tokens *Issuer, media MediaUploader) *Manager {
	if users == nil || tokens == nil || media == nil {
		panic("auth: user store, token issuer and media uploader must not be nil")
	}
	return &Manager{users: users, tokens: tokens, media: media}
}

// Register creates an account after checking required fields and uniqueness and
// uploading the avatar. The cover image is optional and a failed cover upload only
// leaves it empty.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (user models.PublicUser, err error) {
	ctx, span := logging.StartSpan(ctx, "auth.register")
	defer func() { span.End(err) }()

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Fullname = strings.TrimSpace(in.Fullname)

	if err := validation.Struct(in, "All fields are required"); err != nil {
		return models.PublicUser{}, err
	}
	if strings.TrimSpace(in.AvatarPath) == "" {
		return models.PublicUser{}, apperrors.New(apperrors.KindValidation, "Avatar file is required")
	}

	_, err = m.users.FindByIdentifier(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return models.PublicUser{}, apperrors.New(apperrors.KindDuplicateUser, "User with email or username already exists")
	case !errors.Is(err, repositories.ErrNotFound):
		return models.PublicUser{}, apperrors.Internal(err)
	}

	avatar, err := m.media.UploadAsset(ctx, in.AvatarPath)
	if err != nil {
		return models.PublicUser{}, apperrors.Wrap(apperrors.KindUploadFailed, "Failed to upload avatar", err)
	}

	var coverURL string
	if in.CoverImagePath != "" {
		cover, err := m.media.UploadAsset(ctx, in.CoverImagePath)
		if err != nil {
			logging.FromContext(ctx).Warn("cover image upload failed", "error", err)
		} else {
			coverURL = cover.URL
		}
	}

	id, err := m.users.Create(ctx, models.NewUser{
		Username:   in.Username,
		Email:      in.Email,
		Fullname:   in.Fullname,
		Password:   in.Password,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.PublicUser{}, apperrors.New(apperrors.KindDuplicateUser, "User with email or username already exists")
		}
		return models.PublicUser{}, apperrors.Internal(err)
	}

	created, err := m.users.FindByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal(err)
	}

	logging.FromContext(ctx).Info("user registered", "user_id", id)
	return created.Public(), nil
}

// Login verifies the password of the account matching either identifier and issues
// a new token pair. The new refresh token replaces whatever was stored before.
func (m *Manager) Login(ctx context.Context, in LoginInput) (result LoginResult, err error) {
	ctx, span := logging.StartSpan(ctx, "auth.login")
	defer func() { span.End(err) }()

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" && email == "" {
		return LoginResult{}, apperrors.New(apperrors.KindValidation, "username or email is required")
	}
	if in.Password == "" {
		return LoginResult{}, apperrors.New(apperrors.KindValidation, "password is required")
	}

	user, err := m.users.FindByIdentifier(ctx, username, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return LoginResult{}, apperrors.New(apperrors.KindNotFound, "User does not exist")
		}
		return LoginResult{}, apperrors.Internal(err)
	}

	ok, err := password.Verify(user.PasswordHash, in.Password)
	if err != nil {
		return LoginResult{}, apperrors.Internal(err)
	}
	if !ok {
		return LoginResult{}, apperrors.New(apperrors.KindInvalidCredentials, "Invalid user credentials")
	}

	tokens, err := m.rotate(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user.Public(), Tokens: tokens}, nil
}

// Logout revokes the user's refresh token. Logging out twice succeeds.
func (m *Manager) Logout(ctx context.Context, userID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "auth.logout")
	defer func() { span.End(err) }()

	if err := m.users.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. A token that verifies but no
// longer matches the stored one has already been rotated or revoked and is rejected
// as reuse.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (tokens models.SessionTokens, err error) {
	ctx, span := logging.StartSpan(ctx, "auth.refresh")
	defer func() { span.End(err) }()

	if refreshToken == "" {
		return models.SessionTokens{}, apperrors.New(apperrors.KindUnauthorized, "unauthorized request")
	}

	claims, err := m.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, apperrors.New(apperrors.KindInvalidToken, "Invalid refresh token")
		}
		return models.SessionTokens{}, apperrors.Internal(err)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		logging.FromContext(ctx).Warn("refresh token reuse detected", "user_id", user.ID)
		return models.SessionTokens{}, apperrors.New(apperrors.KindTokenReuse, "Refresh token is expired or used")
	}

	return m.rotate(ctx, user)
}

// ChangePassword replaces the password after verifying the old one. The stored
// refresh token is left alone.
func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	ctx, span := logging.StartSpan(ctx, "auth.change_password")
	defer func() { span.End(err) }()

	if err := validation.Struct(passwordChange{OldPassword: oldPassword, NewPassword: newPassword}, "Old and new password are required"); err != nil {
		return err
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.New(apperrors.KindUnauthorized, "unauthorized request")
		}
		return apperrors.Internal(err)
	}

	ok, err := password.Verify(user.PasswordHash, oldPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !ok {
		return apperrors.New(apperrors.KindInvalidCredentials, "Invalid old password")
	}

	if err := m.users.UpdatePassword(ctx, userID, newPassword); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Authenticate resolves an access token to the user it was issued for.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.PublicUser, error) {
	if accessToken == "" {
		return models.PublicUser{}, apperrors.New(apperrors.KindUnauthorized, "unauthorized request")
	}

	claims, err := m.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return models.PublicUser{}, err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.PublicUser{}, apperrors.New(apperrors.KindInvalidToken, "Invalid access token")
		}
		return models.PublicUser{}, apperrors.Internal(err)
	}
	return user.Public(), nil
}

func (m *Manager) rotate(ctx context.Context, user models.User) (models.SessionTokens, error) {
	tokens, err := m.tokens.IssuePair(user)
	if err != nil {
		return models.SessionTokens{}, apperrors.Internal(err)
	}
	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, apperrors.Internal(err)
	}
	return tokens, nil
}
