package user

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

type roleRepoPG struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) RoleRepository {
	return &roleRepoPG{pool: pool}
}

func (r *roleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *roleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	role := &Role{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, type FROM role WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepoPG) GetByType(ctx context.Context, roleType string) (*Role, error) {
	role := &Role{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, type FROM role WHERE type = $1`, roleType,
	).Scan(&role.ID, &role.Name, &role.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepoPG) List(ctx context.Context) ([]*Role, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, type FROM role ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role := &Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Type); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
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

const userColumns = `id, hospital_id, role_id, name, email, phone, status, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	if u.Status == "" {
		u.Status = StatusActive
	}
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO users (id, hospital_id, role_id, name, email, phone, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.HospitalID, u.RoleID, u.Name, u.Email, u.Phone, u.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, hospitalID, id uuid.UUID) (*User, error) {
	u := &User{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND hospital_id = $2`,
		id, hospitalID,
	).Scan(&u.ID, &u.HospitalID, &u.RoleID, &u.Name, &u.Email, &u.Phone, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET role_id = $3, name = $4, email = $5, phone = $6, status = $7, updated_at = NOW()
		 WHERE id = $1 AND hospital_id = $2`,
		u.ID, u.HospitalID, u.RoleID, u.Name, u.Email, u.Phone, u.Status,
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
		`DELETE FROM users WHERE id = $1 AND hospital_id = $2`, id, hospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, hospitalID uuid.UUID, roleType string, limit, offset int) ([]*User, int, error) {
	where := ` WHERE u.hospital_id = $1`
	args := []any{hospitalID}
	if roleType != "" {
		where += ` AND r.type = $2`
		args = append(args, roleType)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users u JOIN role r ON r.id = u.role_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT u.id, u.hospital_id, u.role_id, u.name, u.email, u.phone, u.status, u.created_at, u.updated_at
		 FROM users u JOIN role r ON r.id = u.role_id%s ORDER BY u.name LIMIT $%d OFFSET $%d`,
			where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.HospitalID, &u.RoleID, &u.Name, &u.Email, &u.Phone, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// specializedTables maps role types onto their side tables. Role types
// absent from this map have no specialized record.
var specializedTables = map[string]string{
	RoleDoctor:     "doctor",
	RoleNurse:      "nurse",
	RoleScientist:  "scientist",
	RolePatient:    "patient",
	RoleTechnician: "technician",
}

type specializedRepoPG struct {
	pool *pgxpool.Pool
}

func NewSpecializedRepo(pool *pgxpool.Pool) SpecializedRepository {
	return &specializedRepoPG{pool: pool}
}

func (r *specializedRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func specializedTable(roleType string) (string, error) {
	t, ok := specializedTables[roleType]
	if !ok {
		return "", fmt.Errorf("role type %q has no specialized record table", roleType)
	}
	return t, nil
}

const specializedColumns = `id, user_id, hospital_id, gender, dob, age, record_number, phone, created_at`

func (r *specializedRepoPG) Create(ctx context.Context, roleType string, rec *SpecializedRecord) error {
	table, err := specializedTable(roleType)
	if err != nil {
		return err
	}
	rec.ID = uuid.New()
	_, err = r.conn(ctx).Exec(ctx,
		`INSERT INTO `+table+` (id, user_id, hospital_id, gender, dob, age, record_number, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.HospitalID, rec.Gender, rec.DOB, rec.Age, rec.RecordNumber, rec.Phone,
	)
	return err
}

func (r *specializedRepoPG) GetByUser(ctx context.Context, roleType string, hospitalID, userID uuid.UUID) (*SpecializedRecord, error) {
	table, err := specializedTable(roleType)
	if err != nil {
		return nil, ErrNotFound
	}
	rec := &SpecializedRecord{}
	err = r.conn(ctx).QueryRow(ctx,
		`SELECT `+specializedColumns+` FROM `+table+` WHERE user_id = $1 AND hospital_id = $2`,
		userID, hospitalID,
	).Scan(&rec.ID, &rec.UserID, &rec.HospitalID, &rec.Gender, &rec.DOB, &rec.Age, &rec.RecordNumber, &rec.Phone, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *specializedRepoPG) Update(ctx context.Context, roleType string, rec *SpecializedRecord) error {
	table, err := specializedTable(roleType)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE `+table+` SET gender = $3, dob = $4, age = $5, record_number = $6, phone = $7
		 WHERE user_id = $1 AND hospital_id = $2`,
		rec.UserID, rec.HospitalID, rec.Gender, rec.DOB, rec.Age, rec.RecordNumber, rec.Phone,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *specializedRepoPG) DeleteByUser(ctx context.Context, roleType string, hospitalID, userID uuid.UUID) error {
	table, err := specializedTable(roleType)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx,
		`DELETE FROM `+table+` WHERE user_id = $1 AND hospital_id = $2`,
		userID, hospitalID)
	return err
}
