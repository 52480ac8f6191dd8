package catalog

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

// -- Reference entity repository --

type refRepoPG struct {
	pool *pgxpool.Pool
}

func NewRefRepo(pool *pgxpool.Pool) RefRepository {
	return &refRepoPG{pool: pool}
}

func (r *refRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const refColumns = `id, hospital_id, name, description, created_at, updated_at`

func table(kind Kind) string {
	t, ok := tableFor[kind]
	if !ok {
		panic(fmt.Sprintf("unknown catalog kind %q", kind))
	}
	return t
}

func (r *refRepoPG) Create(ctx context.Context, kind Kind, ref *Ref) error {
	ref.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO `+table(kind)+` (id, hospital_id, name, description) VALUES ($1, $2, $3, $4)`,
		ref.ID, ref.HospitalID, ref.Name, ref.Description,
	)
	return err
}

func (r *refRepoPG) GetByID(ctx context.Context, kind Kind, hospitalID, id uuid.UUID) (*Ref, error) {
	ref := &Ref{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+refColumns+` FROM `+table(kind)+` WHERE id = $1 AND hospital_id = $2`,
		id, hospitalID,
	).Scan(&ref.ID, &ref.HospitalID, &ref.Name, &ref.Description, &ref.CreatedAt, &ref.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *refRepoPG) Update(ctx context.Context, kind Kind, ref *Ref) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE `+table(kind)+` SET name = $3, description = $4, updated_at = NOW()
		 WHERE id = $1 AND hospital_id = $2`,
		ref.ID, ref.HospitalID, ref.Name, ref.Description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *refRepoPG) Delete(ctx context.Context, kind Kind, hospitalID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM `+table(kind)+` WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *refRepoPG) List(ctx context.Context, kind Kind, hospitalID uuid.UUID, nameFilter string, limit, offset int) ([]*Ref, int, error) {
	where := ` WHERE hospital_id = $1`
	args := []any{hospitalID}
	if nameFilter != "" {
		where += ` AND name ILIKE $2`
		args = append(args, "%"+nameFilter+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table(kind)+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY name LIMIT $%d OFFSET $%d`,
			refColumns, table(kind), where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var refs []*Ref
	for rows.Next() {
		ref := &Ref{}
		if err := rows.Scan(&ref.ID, &ref.HospitalID, &ref.Name, &ref.Description, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, 0, err
		}
		refs = append(refs, ref)
	}
	return refs, total, rows.Err()
}

// -- Exam-procedure repository --

type examProcRepoPG struct {
	pool *pgxpool.Pool
}

func NewExamProcedureRepo(pool *pgxpool.Pool) ExamProcedureRepository {
	return &examProcRepoPG{pool: pool}
}

func (r *examProcRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const examProcColumns = `id, hospital_id, exam_id, procedure_id, modality_id, name, created_at`

func (r *examProcRepoPG) Create(ctx context.Context, ep *ExamProcedure) error {
	ep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO exams_procedure (id, hospital_id, exam_id, procedure_id, modality_id, name)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ep.ID, ep.HospitalID, ep.ExamID, ep.ProcedureID, ep.ModalityID, ep.Name,
	)
	return err
}

func (r *examProcRepoPG) scan(row pgx.Row) (*ExamProcedure, error) {
	ep := &ExamProcedure{}
	err := row.Scan(&ep.ID, &ep.HospitalID, &ep.ExamID, &ep.ProcedureID, &ep.ModalityID, &ep.Name, &ep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ep, nil
}

func (r *examProcRepoPG) GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*ExamProcedure, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+examProcColumns+` FROM exams_procedure WHERE id = $1 AND hospital_id = $2`,
		id, hospitalID))
}

func (r *examProcRepoPG) GetMany(ctx context.Context, hospitalID uuid.UUID, ids []uuid.UUID) ([]*ExamProcedure, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+examProcColumns+` FROM exams_procedure WHERE hospital_id = $1 AND id = ANY($2)`,
		hospitalID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eps []*ExamProcedure
	for rows.Next() {
		ep := &ExamProcedure{}
		if err := rows.Scan(&ep.ID, &ep.HospitalID, &ep.ExamID, &ep.ProcedureID, &ep.ModalityID, &ep.Name, &ep.CreatedAt); err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

func (r *examProcRepoPG) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM exams_procedure WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *examProcRepoPG) List(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*ExamProcedure, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM exams_procedure WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+examProcColumns+` FROM exams_procedure WHERE hospital_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var eps []*ExamProcedure
	for rows.Next() {
		ep := &ExamProcedure{}
		if err := rows.Scan(&ep.ID, &ep.HospitalID, &ep.ExamID, &ep.ProcedureID, &ep.ModalityID, &ep.Name, &ep.CreatedAt); err != nil {
			return nil, 0, err
		}
		eps = append(eps, ep)
	}
	return eps, total, rows.Err()
}
