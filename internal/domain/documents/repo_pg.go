package documents

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

const docColumns = `id, hospital_id, case_id, case_exam_procedure_id, name, content_type, storage_key, size, uploaded_by, created_at`

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO document (id, hospital_id, case_id, case_exam_procedure_id, name, content_type, storage_key, size, uploaded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.HospitalID, d.CaseID, d.CaseExamProcedureID, d.Name, d.ContentType, d.StorageKey, d.Size, d.UploadedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*Document, error) {
	d := &Document{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+docColumns+` FROM document WHERE id = $1 AND hospital_id = $2`,
		id, hospitalID,
	).Scan(&d.ID, &d.HospitalID, &d.CaseID, &d.CaseExamProcedureID, &d.Name, &d.ContentType, &d.StorageKey, &d.Size, &d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repoPG) ListByCase(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+docColumns+` FROM document WHERE case_id = $1 AND hospital_id = $2 ORDER BY created_at`,
		caseID, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.HospitalID, &d.CaseID, &d.CaseExamProcedureID, &d.Name, &d.ContentType,
			&d.StorageKey, &d.Size, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM document WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
