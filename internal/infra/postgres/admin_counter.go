package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AdminCounter is the single elevated-privilege capability: it counts submissions across all
// learners through a separate pool opened with the administrative DSN. It exposes nothing else.
type AdminCounter struct {
	pool *pgxpool.Pool
}

func NewAdminCounter(ctx context.Context, dsn string) (*AdminCounter, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect admin pool: %w", err)
	}
	return &AdminCounter{pool: pool}, nil
}

func (c *AdminCounter) CountSubmissions(ctx context.Context, quizID string) (int, error) {
	if _, err := uuid.Parse(quizID); err != nil {
		return 0, nil
	}
	var n int
	err := c.pool.QueryRow(ctx, `SELECT count(*) FROM quiz_submissions WHERE quiz_id = $1`, quizID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func (c *AdminCounter) Close() {
	c.pool.Close()
}
