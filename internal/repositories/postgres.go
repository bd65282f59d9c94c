package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/password"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Create hashes the password and persists a new user, returning its id.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.NewUser) (string, error) {
	hashed, err := password.Hash(user.Password)
	if err != nil {
		return "", err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	id := uuid.NewString()
	now := r.now()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, fullname, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
    `, id, user.Username, user.Email, user.Fullname, user.Avatar, user.CoverImage, hashed, now)
	if err != nil {
		return "", classify(err, "insert user")
	}

	return id, nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, classify(err, "select user by id")
	}
	return user, nil
}

// FindByIdentifier fetches the first user whose username or email matches. Empty
// identifiers are ignored.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, username, email string) (models.User, error) {
	if username == "" && email == "" {
		return models.User{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
        ORDER BY created_at
        LIMIT 1
    `, username, email))
	if err != nil {
		return models.User{}, classify(err, "select user by identifier")
	}
	return user, nil
}

// SetRefreshToken overwrites the stored refresh token without touching other columns.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, "update refresh token", id, `
        UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1
    `, token, r.now())
}

// ClearRefreshToken removes the stored refresh token. Clearing an already empty
// token succeeds.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.exec(ctx, "clear refresh token", id, `
        UPDATE users SET refresh_token = NULL, updated_at = $2 WHERE id = $1
    `, r.now())
}

// UpdatePassword hashes plain and replaces the stored hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, plain string) error {
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}
	return r.exec(ctx, "update password", id, `
        UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, hashed, r.now())
}

// UpdateAccountDetails replaces the fullname and email and returns the updated user.
func (r *PostgresUserRepository) UpdateAccountDetails(ctx context.Context, id, fullname, email string) (models.User, error) {
	return r.updateReturning(ctx, "update account details", id, `
        UPDATE users SET fullname = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+userColumns, fullname, email, r.now())
}

// UpdateAvatar replaces the avatar URL and returns the updated user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, "update avatar", id, `
        UPDATE users SET avatar = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns, url, r.now())
}

// UpdateCoverImage replaces the cover image URL and returns the updated user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, "update cover image", id, `
        UPDATE users SET cover_image = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+userColumns, url, r.now())
}

// exec runs a single-row update keyed by id ($1) and reports ErrNotFound when no
// row matched.
func (r *PostgresUserRepository) exec(ctx context.Context, op, id, query string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, op, id, query string, args ...any) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		return models.User{}, classify(err, op)
	}
	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Fullname,
		&user.Avatar,
		&user.CoverImage,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// PostgresChannelRepository answers channel profile, watch history and
// subscription queries.
type PostgresChannelRepository struct {
	pool db.Pool
}

// NewPostgresChannelRepository constructs a channel repository backed by PostgreSQL.
func NewPostgresChannelRepository(pool db.Pool) *PostgresChannelRepository {
	return &PostgresChannelRepository{pool: pool}
}

// ChannelProfile loads the channel owned by username along with its subscription
// counters. isSubscribed reports whether viewerID follows the channel.
func (r *PostgresChannelRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var viewer *string
	if _, err := uuid.Parse(viewerID); err == nil {
		viewer = &viewerID
	}

	var p models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.fullname, u.avatar, u.cover_image,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (
                   SELECT 1 FROM subscriptions s
                   WHERE s.channel_id = u.id AND s.subscriber_id = $2
               )
        FROM users u
        WHERE u.username = $1
    `, username, viewer).Scan(
		&p.ID, &p.Username, &p.Email, &p.Fullname, &p.Avatar, &p.CoverImage,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed,
	)
	if err != nil {
		return models.ChannelProfile{}, classify(err, "select channel profile")
	}
	return p, nil
}

// WatchHistory returns the user's watched videos in the order they were watched,
// each joined with a projection of its owner.
func (r *PostgresChannelRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.views, v.is_published, v.created_at,
               o.id, o.username, o.fullname, o.avatar
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE wh.user_id = $1
        ORDER BY wh.seq
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	history := []models.WatchedVideo{}
	for rows.Next() {
		var w models.WatchedVideo
		if err := rows.Scan(
			&w.ID, &w.VideoFile, &w.Thumbnail, &w.Title, &w.Description, &w.Views, &w.IsPublished, &w.CreatedAt,
			&w.Owner.ID, &w.Owner.Username, &w.Owner.Fullname, &w.Owner.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		w.CreatedAt = w.CreatedAt.UTC()
		history = append(history, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return history, nil
}

// ToggleSubscription subscribes subscriberID to channelID, or removes the existing
// subscription. It reports whether the subscriber is subscribed afterwards.
func (r *PostgresChannelRepository) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if _, err := uuid.Parse(channelID); err != nil {
		return false, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin subscription transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}

	subscribed := false
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `
            INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
            VALUES ($1, $2, $3, $4)
        `, uuid.NewString(), subscriberID, channelID, time.Now().UTC())
		if err != nil {
			return false, classify(err, "insert subscription")
		}
		subscribed = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit subscription: %w", err)
	}
	return subscribed, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_file, thumbnail, title, description, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return classify(err, "insert video")
	}
	return nil
}

// FindByID loads a video by id.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Video{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var v models.Video
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, video_file, thumbnail, title, description, views, is_published, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id).Scan(&v.ID, &v.OwnerID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description,
		&v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return models.Video{}, classify(err, "select video")
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

// RecordView appends the video to the user's watch history and bumps its view count.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, videoID, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin view transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at) VALUES ($1, $2, $3)
    `, userID, videoID, time.Now().UTC()); err != nil {
		return classify(err, "append watch history")
	}

	if _, err := tx.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, videoID); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit view: %w", err)
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ChannelRepository = (*PostgresChannelRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
