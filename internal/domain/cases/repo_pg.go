package cases

import (
	"context"
	"errors"
	"fmt"

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

const caseColumns = `id, hospital_id, patient_id, department_id, sedation_id, priority, status,
	symptoms, notes, ai_notes, date, user_id, current_user_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *MedicalCase) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO medical_case (id, hospital_id, patient_id, department_id, sedation_id, priority,
		   status, symptoms, notes, ai_notes, date, user_id, current_user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.HospitalID, c.PatientID, c.DepartmentID, c.SedationID, c.Priority,
		c.Status, c.Symptoms, c.Notes, c.AINotes, c.Date, c.UserID, c.CurrentUserID,
	)
	return err
}

func scanCase(row pgx.Row) (*MedicalCase, error) {
	c := &MedicalCase{}
	err := row.Scan(&c.ID, &c.HospitalID, &c.PatientID, &c.DepartmentID, &c.SedationID, &c.Priority,
		&c.Status, &c.Symptoms, &c.Notes, &c.AINotes, &c.Date, &c.UserID, &c.CurrentUserID,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*MedicalCase, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseColumns+` FROM medical_case WHERE id = $1 AND hospital_id = $2`,
		id, hospitalID))
}

func (r *repoPG) Update(ctx context.Context, c *MedicalCase) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE medical_case SET patient_id = $3, department_id = $4, sedation_id = $5, priority = $6,
		   status = $7, symptoms = $8, notes = $9, ai_notes = $10, date = $11, current_user_id = $12,
		   updated_at = NOW()
		 WHERE id = $1 AND hospital_id = $2`,
		c.ID, c.HospitalID, c.PatientID, c.DepartmentID, c.SedationID, c.Priority,
		c.Status, c.Symptoms, c.Notes, c.AINotes, c.Date, c.CurrentUserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM medical_case WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, hospitalID uuid.UUID, f ListFilter, limit, offset int) ([]*MedicalCase, int, error) {
	where := ` WHERE hospital_id = $1`
	args := []any{hospitalID}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.AssigneeID != uuid.Nil {
		args = append(args, f.AssigneeID)
		where += fmt.Sprintf(` AND current_user_id = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_case`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM medical_case%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			caseColumns, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*MedicalCase
	for rows.Next() {
		c := &MedicalCase{}
		if err := rows.Scan(&c.ID, &c.HospitalID, &c.PatientID, &c.DepartmentID, &c.SedationID, &c.Priority,
			&c.Status, &c.Symptoms, &c.Notes, &c.AINotes, &c.Date, &c.UserID, &c.CurrentUserID,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repoPG) AddProcedures(ctx context.Context, procs []*CaseExamProcedure) error {
	for _, p := range procs {
		p.ID = uuid.New()
		if p.Status == "" {
			p.Status = ProcStatusPending
		}
		if _, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO case_exam_procedure (id, hospital_id, case_id, exam_procedure_id, status, scheduled_at, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.HospitalID, p.CaseID, p.ExamProcedureID, p.Status, p.ScheduledAt, p.Notes,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListProcedures(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*CaseExamProcedure, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, hospital_id, case_id, exam_procedure_id, status, scheduled_at, notes, created_at
		 FROM case_exam_procedure WHERE case_id = $1 AND hospital_id = $2 ORDER BY created_at`,
		caseID, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CaseExamProcedure
	for rows.Next() {
		p := &CaseExamProcedure{}
		if err := rows.Scan(&p.ID, &p.HospitalID, &p.CaseID, &p.ExamProcedureID, &p.Status,
			&p.ScheduledAt, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoPG) ReplaceProcedures(ctx context.Context, hospitalID, caseID uuid.UUID, procs []*CaseExamProcedure) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM case_exam_procedure WHERE case_id = $1 AND hospital_id = $2`,
		caseID, hospitalID); err != nil {
		return err
	}
	return r.AddProcedures(ctx, procs)
}

func (r *repoPG) AddVersion(ctx context.Context, v *CaseVersion) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx,
		`INSERT INTO case_version (id, case_id, version, snapshot, created_by)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(version), 0) + 1 FROM case_version WHERE case_id = $2), $3, $4)
		 RETURNING version`,
		v.ID, v.CaseID, v.Snapshot, v.CreatedBy,
	).Scan(&v.Version)
}

func (r *repoPG) ListVersions(ctx context.Context, hospitalID, caseID uuid.UUID) ([]*CaseVersion, error) {
	// Case ownership is checked through the join so versions stay
	// hospital-opaque like everything else.
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT v.id, v.case_id, v.version, v.snapshot, v.created_by, v.created_at
		 FROM case_version v JOIN medical_case c ON c.id = v.case_id
		 WHERE v.case_id = $1 AND c.hospital_id = $2 ORDER BY v.version`,
		caseID, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CaseVersion
	for rows.Next() {
		v := &CaseVersion{}
		if err := rows.Scan(&v.ID, &v.CaseID, &v.Version, &v.Snapshot, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
