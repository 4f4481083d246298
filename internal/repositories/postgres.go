package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/models"
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const userColumns = `id, username, email, full_name, avatar, cover_image, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users
// and the session stored inline on each user row.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, lower($2), lower($3), $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByIdentifier fetches a user, secrets included, by handle or email.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	return r.findCredentials(ctx, `username = lower($1) OR email = lower($1)`, identifier)
}

// FindCredentialsByID fetches a user, secrets included, by id.
func (r *PostgresUserRepository) FindCredentialsByID(ctx context.Context, userID string) (models.User, error) {
	return r.findCredentials(ctx, `id = $1`, userID)
}

func (r *PostgresUserRepository) findCredentials(ctx context.Context, where string, arg string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+userColumns+`, password_hash, refresh_token, refresh_expires_at, watch_history
        FROM users
        WHERE `+where+`
        LIMIT 1
    `, arg)

	var (
		user          models.User
		refreshToken  sql.NullString
		refreshExpiry sql.NullTime
	)
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage, &user.CreatedAt, &user.UpdatedAt,
		&user.PasswordHash, &refreshToken, &refreshExpiry, &user.WatchHistory,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user credentials: %w", err)
	}

	user.RefreshToken = refreshToken.String
	if refreshExpiry.Valid {
		user.RefreshExpiresAt = refreshExpiry.Time.UTC()
	}
	return user, nil
}

// SaveSession overwrites the refresh token stored on the user row.
func (r *PostgresUserRepository) SaveSession(ctx context.Context, session auth.Session) error {
	return r.execOne(ctx, `
        UPDATE users
        SET refresh_token = $2, refresh_expires_at = $3
        WHERE id = $1
    `, "save session", session.UserID, session.RefreshToken, session.ExpiresAt)
}

// RotateSession replaces the refresh token only while previousToken is still
// the stored one. The comparison and the write are a single statement, so of
// two concurrent rotations of the same token exactly one matches.
func (r *PostgresUserRepository) RotateSession(ctx context.Context, previousToken string, next auth.Session) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3, refresh_expires_at = $4
        WHERE id = $1 AND refresh_token = $2
    `, next.UserID, previousToken, next.RefreshToken, next.ExpiresAt)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// ClearSession removes the refresh token from the user row.
func (r *PostgresUserRepository) ClearSession(ctx context.Context, userID string) error {
	return r.execOne(ctx, `
        UPDATE users
        SET refresh_token = NULL, refresh_expires_at = NULL
        WHERE id = $1
    `, "clear session", userID)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	return r.execOne(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, "update password", userID, passwordHash, updatedAt)
}

// FindByID fetches the public fields of a user.
func (r *PostgresUserRepository) FindByID(ctx context.Context, userID string) (models.User, error) {
	return r.findPublic(ctx, `id = $1`, userID)
}

// FindByHandle fetches the public fields of a user by handle, case-insensitively.
func (r *PostgresUserRepository) FindByHandle(ctx context.Context, handle string) (models.User, error) {
	return r.findPublic(ctx, `username = lower($1)`, handle)
}

func (r *PostgresUserRepository) findPublic(ctx context.Context, where string, arg string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// FindManyByIDs fetches the public fields of every existing user in userIDs.
func (r *PostgresUserRepository) FindManyByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateProfile changes the user's full name and email.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, userID, fullName, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = $2, email = lower($3), updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, userID, fullName, email))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return models.User{}, ErrNotFound
		case pgCode(err) == pgUniqueViolation:
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// UpdateAvatar stores url and returns the previous avatar.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, userID, url string) (string, error) {
	return r.swapImage(ctx, "avatar", userID, url)
}

// UpdateCoverImage stores url and returns the previous cover image.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, userID, url string) (string, error) {
	return r.swapImage(ctx, "cover_image", userID, url)
}

func (r *PostgresUserRepository) swapImage(ctx context.Context, column, userID, url string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// The FROM subquery reads the row as it was before this statement's write.
	var previous string
	err = conn.QueryRow(ctx, `
        UPDATE users AS u
        SET `+column+` = $2, updated_at = now()
        FROM (SELECT id, `+column+` AS previous FROM users WHERE id = $1) AS old
        WHERE u.id = old.id
        RETURNING old.previous
    `, userID, url).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update %s: %w", column, err)
	}
	return previous, nil
}

// AppendWatchHistory moves videoID to the most recent end of the history.
func (r *PostgresUserRepository) AppendWatchHistory(ctx context.Context, userID, videoID string) error {
	return r.execOne(ctx, `
        UPDATE users
        SET watch_history = array_append(array_remove(watch_history, $2), $2)
        WHERE id = $1
    `, "append watch history", userID, videoID)
}

// WatchHistory returns the user's watched video ids, oldest first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var history []string
	if err := conn.QueryRow(ctx, `SELECT watch_history FROM users WHERE id = $1`, userID).Scan(&history); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select watch history: %w", err)
	}
	return history, nil
}

func (r *PostgresUserRepository) execOne(ctx context.Context, query, op string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const videoColumns = `id, owner_id, title, description, video_file, thumbnail, duration, views, is_published, created_at, updated_at`

func scanVideo(row rowScanner) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	return v, err
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
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.Thumbnail, video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, videoID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// FindManyByIDs fetches every existing video in videoIDs.
func (r *PostgresVideoRepository) FindManyByIDs(ctx context.Context, videoIDs []string) ([]models.Video, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ANY($1)`, videoIDs)
}

// List returns videos newest first, optionally restricted to ownerID.
func (r *PostgresVideoRepository) List(ctx context.Context, ownerID string) ([]models.Video, error) {
	return r.query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE $1 = '' OR owner_id = $1
        ORDER BY created_at DESC, id
    `, ownerID)
}

func (r *PostgresVideoRepository) query(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var list []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		list = append(list, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return list, nil
}

// UpdateDetails replaces the non-empty fields among title, description and thumbnail.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, videoID, title, description, thumbnail string) (models.Video, error) {
	return r.updateReturning(ctx, `
        UPDATE videos
        SET title = COALESCE(NULLIF($2, ''), title),
            description = COALESCE(NULLIF($3, ''), description),
            thumbnail = COALESCE(NULLIF($4, ''), thumbnail),
            updated_at = now()
        WHERE id = $1
        RETURNING `+videoColumns, videoID, title, description, thumbnail)
}

// SetPublished sets the publish flag.
func (r *PostgresVideoRepository) SetPublished(ctx context.Context, videoID string, published bool) (models.Video, error) {
	return r.updateReturning(ctx, `
        UPDATE videos
        SET is_published = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+videoColumns, videoID, published)
}

// Delete removes a video and returns the deleted row.
func (r *PostgresVideoRepository) Delete(ctx context.Context, videoID string) (models.Video, error) {
	return r.updateReturning(ctx, `DELETE FROM videos WHERE id = $1 RETURNING `+videoColumns, videoID)
}

func (r *PostgresVideoRepository) updateReturning(ctx context.Context, query string, args ...any) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("write video: %w", err)
	}
	return video, nil
}

// IncrementViews adds one view to the video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const commentColumns = `id, video_id, owner_id, content, created_at, updated_at`

func scanComment(row rowScanner) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a new comment.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (`+commentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// FindByID fetches a single comment.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, commentID string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	comment, err := scanComment(conn.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}
	return comment, nil
}

// ListForVideo returns a video's comments, newest first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+commentColumns+`
        FROM comments
        WHERE video_id = $1
        ORDER BY created_at DESC, id
    `, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var list []models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		list = append(list, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return list, nil
}

// UpdateContent replaces a comment's text.
func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, commentID, content string) (models.Comment, error) {
	return r.writeReturning(ctx, `
        UPDATE comments
        SET content = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+commentColumns, commentID, content)
}

// Delete removes a comment and returns the deleted row.
func (r *PostgresCommentRepository) Delete(ctx context.Context, commentID string) (models.Comment, error) {
	return r.writeReturning(ctx, `DELETE FROM comments WHERE id = $1 RETURNING `+commentColumns, commentID)
}

func (r *PostgresCommentRepository) writeReturning(ctx context.Context, query string, args ...any) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	comment, err := scanComment(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("write comment: %w", err)
	}
	return comment, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ CommentRepository = (*PostgresCommentRepository)(nil)
