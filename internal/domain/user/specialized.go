package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SpecializedInput carries the optional role-specific form fields supplied
// alongside a user create or edit.
type SpecializedInput struct {
	Gender       string     `json:"gender"`
	DOB          *time.Time `json:"dob"`
	Age          *int       `json:"age"`
	RecordNumber string     `json:"record_number"`
	Phone        *string    `json:"phone"`
}

// placeholderDOB fills in when a date of birth was not supplied.
var placeholderDOB = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// recordHandler builds the specialized row for one role type. Defaults
// differ per role, so each handler owns its own fill function.
type recordHandler struct {
	roleType string
	fill     func(rec *SpecializedRecord, now time.Time)
}

func fillCommon(rec *SpecializedRecord, now time.Time) {
	if rec.DOB == nil {
		dob := placeholderDOB
		rec.DOB = &dob
	}
	if rec.RecordNumber == "" {
		rec.RecordNumber = strconv.FormatInt(now.Unix(), 10)
	}
}

// Registry dispatches specialized-record maintenance by role type. Role
// types without a handler are silently skipped: only the five mapped types
// keep side records, and an admin role syncing nothing is correct.
type Registry struct {
	handlers map[string]*recordHandler
	repo     SpecializedRepository
	now      func() time.Time
}

func NewRegistry(repo SpecializedRepository) *Registry {
	r := &Registry{
		handlers: make(map[string]*recordHandler),
		repo:     repo,
		now:      time.Now,
	}
	r.register(&recordHandler{roleType: RoleDoctor, fill: fillCommon})
	r.register(&recordHandler{roleType: RoleScientist, fill: fillCommon})
	r.register(&recordHandler{roleType: RoleTechnician, fill: fillCommon})
	r.register(&recordHandler{roleType: RoleNurse, fill: func(rec *SpecializedRecord, now time.Time) {
		if rec.Gender == "" {
			rec.Gender = "F"
		}
		fillCommon(rec, now)
	}})
	r.register(&recordHandler{roleType: RolePatient, fill: func(rec *SpecializedRecord, now time.Time) {
		if rec.Gender == "" {
			rec.Gender = "M"
		}
		fillCommon(rec, now)
	}})
	return r
}

func (r *Registry) register(h *recordHandler) {
	r.handlers[h.roleType] = h
}

// Create inserts the specialized row for the user's role type, filling
// role defaults for absent fields. No-op for unmapped role types.
func (r *Registry) Create(ctx context.Context, roleType string, u *User, in *SpecializedInput) error {
	h, ok := r.handlers[roleType]
	if !ok {
		return nil
	}
	rec := recordFromInput(u, in)
	h.fill(rec, r.now())
	if err := r.repo.Create(ctx, roleType, rec); err != nil {
		return fmt.Errorf("failed to create %s record: %w", roleType, err)
	}
	return nil
}

// Update rewrites the specialized row for an unchanged role, preserving
// stored values that the input leaves blank. A missing row is recreated.
func (r *Registry) Update(ctx context.Context, roleType string, u *User, in *SpecializedInput) error {
	h, ok := r.handlers[roleType]
	if !ok {
		return nil
	}
	cur, err := r.repo.GetByUser(ctx, roleType, u.HospitalID, u.ID)
	if errors.Is(err, ErrNotFound) {
		log.Warn().Str("user_id", u.ID.String()).Str("role_type", roleType).
			Msg("specialized record missing on update, recreating")
		return r.Create(ctx, roleType, u, in)
	}
	if err != nil {
		return err
	}

	rec := recordFromInput(u, in)
	if rec.Gender == "" {
		rec.Gender = cur.Gender
	}
	if rec.DOB == nil {
		rec.DOB = cur.DOB
	}
	if rec.Age == nil {
		rec.Age = cur.Age
	}
	if rec.RecordNumber == "" {
		rec.RecordNumber = cur.RecordNumber
	}
	if rec.Phone == nil {
		rec.Phone = cur.Phone
	}
	h.fill(rec, r.now())
	if err := r.repo.Update(ctx, roleType, rec); err != nil {
		return fmt.Errorf("failed to update %s record: %w", roleType, err)
	}
	return nil
}

// Delete removes the specialized row. No-op for unmapped role types and
// for rows already gone.
func (r *Registry) Delete(ctx context.Context, roleType string, hospitalID, userID uuid.UUID) error {
	if _, ok := r.handlers[roleType]; !ok {
		return nil
	}
	return r.repo.DeleteByUser(ctx, roleType, hospitalID, userID)
}

// Sync reconciles the specialized row after a role change: the old role's
// row is deleted before the new role's row is created, so the two are
// never present together.
func (r *Registry) Sync(ctx context.Context, oldRoleType, newRoleType string, u *User, in *SpecializedInput) error {
	if oldRoleType == newRoleType {
		return r.Update(ctx, newRoleType, u, in)
	}
	if err := r.Delete(ctx, oldRoleType, u.HospitalID, u.ID); err != nil {
		return err
	}
	return r.Create(ctx, newRoleType, u, in)
}

func recordFromInput(u *User, in *SpecializedInput) *SpecializedRecord {
	rec := &SpecializedRecord{UserID: u.ID, HospitalID: u.HospitalID}
	if in != nil {
		rec.Gender = in.Gender
		rec.DOB = in.DOB
		rec.Age = in.Age
		rec.RecordNumber = in.RecordNumber
		rec.Phone = in.Phone
	}
	if rec.Phone == nil {
		rec.Phone = u.Phone
	}
	return rec
}
