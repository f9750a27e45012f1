package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// LikeRepository defines data access for likes across target types.
type LikeRepository interface {
	Find(ctx context.Context, userID, targetType, targetID string) (models.Like, error)
	Create(ctx context.Context, like models.Like) error
	DeleteByTarget(ctx context.Context, userID, targetType, targetID string) error
	CountForTarget(ctx context.Context, targetType, targetID string) (int64, error)
	ListVideosForUser(ctx context.Context, userID string, page, limit int) ([]models.Video, int64, error)
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Find returns the like a user placed on a target, if any.
func (r *PostgresLikeRepository) Find(ctx context.Context, userID, targetType, targetID string) (models.Like, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Like{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, user_id, target_type, target_id, created_at
        FROM likes
        WHERE user_id = $1 AND target_type = $2 AND target_id = $3
    `, userID, targetType, targetID)

	var like models.Like
	if err := row.Scan(&like.ID, &like.UserID, &like.TargetType, &like.TargetID, &like.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Like{}, ErrNotFound
		}
		return models.Like{}, fmt.Errorf("select like: %w", err)
	}

	return like, nil
}

// Create persists a new like. Liking the same target twice is a conflict.
func (r *PostgresLikeRepository) Create(ctx context.Context, like models.Like) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, user_id, target_type, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, like.ID, like.UserID, like.TargetType, like.TargetID, like.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert like: %w", err)
	}

	return nil
}

// DeleteByTarget removes a user's like from a target.
func (r *PostgresLikeRepository) DeleteByTarget(ctx context.Context, userID, targetType, targetID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes WHERE user_id = $1 AND target_type = $2 AND target_id = $3
    `, userID, targetType, targetID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// CountForTarget returns how many likes a target has received.
func (r *PostgresLikeRepository) CountForTarget(ctx context.Context, targetType, targetID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM likes WHERE target_type = $1 AND target_id = $2
    `, targetType, targetID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}

	return total, nil
}

const likedVideoColumns = `v.id, v.owner_ids, v.title, v.description, v.video_url, v.video_key, v.thumbnail_url, v.thumbnail_key, v.duration, v.views, v.is_published, v.created_at, v.updated_at`

// ListVideosForUser returns the videos a user has liked, most recent like
// first. Likes whose video has since been deleted are skipped.
func (r *PostgresLikeRepository) ListVideosForUser(ctx context.Context, userID string, page, limit int) ([]models.Video, int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        WHERE l.user_id = $1 AND l.target_type = $2
    `, userID, models.LikeTargetVideo).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count liked videos: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	rows, err := conn.Query(ctx, `
        SELECT `+likedVideoColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        WHERE l.user_id = $1 AND l.target_type = $2
        ORDER BY l.created_at DESC
        LIMIT $3 OFFSET $4
    `, userID, models.LikeTargetVideo, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan liked video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate liked videos: %w", err)
	}

	return videos, total, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
