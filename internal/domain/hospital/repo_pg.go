package hospital

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/hms/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const hospitalColumns = `id, name, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO hospital (id, name, active) VALUES ($1, $2, $3)`,
		h.ID, h.Name, h.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	h := &Hospital{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospital WHERE id = $1`, id,
	).Scan(&h.ID, &h.Name, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *repoPG) Update(ctx context.Context, h *Hospital) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE hospital SET name = $2, active = $3, updated_at = NOW() WHERE id = $1`,
		h.ID, h.Name, h.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospital WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospital`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalColumns+` FROM hospital ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var hospitals []*Hospital
	for rows.Next() {
		h := &Hospital{}
		if err := rows.Scan(&h.ID, &h.Name, &h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, 0, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, total, rows.Err()
}

func (r *repoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospital WHERE id = $1 AND active)`, id,
	).Scan(&exists)
	return exists, err
}
