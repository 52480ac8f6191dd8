package reports

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

const reportColumns = `id, hospital_id, case_id, title, body, narrative, generated_by, created_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO report (id, hospital_id, case_id, title, body, narrative, generated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rep.ID, rep.HospitalID, rep.CaseID, rep.Title, rep.Body, rep.Narrative, rep.GeneratedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*Report, error) {
	rep := &Report{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportColumns+` FROM report WHERE id = $1 AND hospital_id = $2`,
		id, hospitalID,
	).Scan(&rep.ID, &rep.HospitalID, &rep.CaseID, &rep.Title, &rep.Body, &rep.Narrative,
		&rep.GeneratedBy, &rep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *repoPG) ListByCase(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*Report, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportColumns+` FROM report WHERE case_id = $1 AND hospital_id = $2 ORDER BY created_at DESC`,
		caseID, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		rep := &Report{}
		if err := rows.Scan(&rep.ID, &rep.HospitalID, &rep.CaseID, &rep.Title, &rep.Body,
			&rep.Narrative, &rep.GeneratedBy, &rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM report WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSlides assigns positions inside the insert so concurrent appends
// cannot collide on the per-report position constraint.
func (r *repoPG) AddSlides(ctx context.Context, slides []*Slide) error {
	for _, s := range slides {
		s.ID = uuid.New()
		if err := r.conn(ctx).QueryRow(ctx,
			`INSERT INTO report_slide (id, report_id, position, heading, body, image_key)
			 VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM report_slide WHERE report_id = $2), $3, $4, $5)
			 RETURNING position`,
			s.ID, s.ReportID, s.Heading, s.Body, s.ImageKey,
		).Scan(&s.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListSlides(ctx context.Context, hospitalID, reportID uuid.UUID) ([]*Slide, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT s.id, s.report_id, s.position, s.heading, s.body, s.image_key, s.created_at
		 FROM report_slide s JOIN report r ON r.id = s.report_id
		 WHERE s.report_id = $1 AND r.hospital_id = $2 ORDER BY s.position`,
		reportID, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Slide
	for rows.Next() {
		s := &Slide{}
		if err := rows.Scan(&s.ID, &s.ReportID, &s.Position, &s.Heading, &s.Body, &s.ImageKey, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
