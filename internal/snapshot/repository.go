package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that no snapshot has been stored yet.
var ErrNotFound = errors.New("snapshot not found")

const defaultListLimit = 30

// Snapshot is a stored export of the tracker state.
type Snapshot struct {
	ID        string          `json:"id"`
	TakenAt   time.Time       `json:"takenAt"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, s Snapshot) error
	GetLatest(ctx context.Context) (*Snapshot, error)
	List(ctx context.Context, limit int) ([]Snapshot, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, s Snapshot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tracker_snapshots (id, taken_at, data)
		 VALUES ($1, $2, $3::jsonb)`,
		s.ID, s.TakenAt, s.Data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx,
		`SELECT id, taken_at, data, created_at
		 FROM tracker_snapshots
		 ORDER BY taken_at DESC, created_at DESC
		 LIMIT 1`).Scan(&s.ID, &s.TakenAt, &s.Data, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, taken_at, data, created_at
		 FROM tracker_snapshots
		 ORDER BY taken_at DESC, created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.TakenAt, &s.Data, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}
