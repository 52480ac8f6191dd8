package intake

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

func NewRepo(pool *pgxpool.Pool) DraftRepository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const draftColumns = `id, hospital_id, technician_id, case_id, state, patient_id, date, symptoms,
	recommendation, department_id, sedation_id, priority, exam_procedure_ids,
	technician_notes, ai_notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Draft) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO case_intake_draft (id, hospital_id, technician_id, case_id, state, patient_id,
		   date, symptoms, recommendation, department_id, sedation_id, priority, exam_procedure_ids,
		   technician_notes, ai_notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.HospitalID, d.TechnicianID, d.CaseID, d.State, d.PatientID,
		d.Date, d.Symptoms, d.Recommendation, d.DepartmentID, d.SedationID, d.Priority, d.ExamProcedureIDs,
		d.TechnicianNotes, d.AINotes,
	)
	return err
}

func scanDraft(row pgx.Row) (*Draft, error) {
	d := &Draft{}
	err := row.Scan(&d.ID, &d.HospitalID, &d.TechnicianID, &d.CaseID, &d.State, &d.PatientID,
		&d.Date, &d.Symptoms, &d.Recommendation, &d.DepartmentID, &d.SedationID, &d.Priority,
		&d.ExamProcedureIDs, &d.TechnicianNotes, &d.AINotes, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repoPG) GetByID(ctx context.Context, hospitalID, technicianID, id uuid.UUID) (*Draft, error) {
	return scanDraft(r.conn(ctx).QueryRow(ctx,
		`SELECT `+draftColumns+` FROM case_intake_draft
		 WHERE id = $1 AND hospital_id = $2 AND technician_id = $3`,
		id, hospitalID, technicianID))
}

func (r *repoPG) Update(ctx context.Context, d *Draft) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE case_intake_draft SET case_id = $4, state = $5, patient_id = $6, date = $7,
		   symptoms = $8, recommendation = $9, department_id = $10, sedation_id = $11, priority = $12,
		   exam_procedure_ids = $13, technician_notes = $14, ai_notes = $15, updated_at = NOW()
		 WHERE id = $1 AND hospital_id = $2 AND technician_id = $3`,
		d.ID, d.HospitalID, d.TechnicianID, d.CaseID, d.State, d.PatientID, d.Date,
		d.Symptoms, d.Recommendation, d.DepartmentID, d.SedationID, d.Priority,
		d.ExamProcedureIDs, d.TechnicianNotes, d.AINotes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, hospitalID, technicianID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM case_intake_draft WHERE id = $1 AND hospital_id = $2 AND technician_id = $3`,
		id, hospitalID, technicianID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByTechnician(ctx context.Context, hospitalID, technicianID uuid.UUID) ([]*Draft, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+draftColumns+` FROM case_intake_draft
		 WHERE hospital_id = $1 AND technician_id = $2 ORDER BY updated_at DESC`,
		hospitalID, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Draft
	for rows.Next() {
		d := &Draft{}
		if err := rows.Scan(&d.ID, &d.HospitalID, &d.TechnicianID, &d.CaseID, &d.State, &d.PatientID,
			&d.Date, &d.Symptoms, &d.Recommendation, &d.DepartmentID, &d.SedationID, &d.Priority,
			&d.ExamProcedureIDs, &d.TechnicianNotes, &d.AINotes, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
