// Package user manages hospital staff and patient accounts. Each user
// carries a role, and five role types (doctor, nurse, scientist, patient,
// technician) keep a specialized side record in lockstep with the role:
// exactly one side record per user, swapped when the role changes and
// removed when the user is deleted.
package user

import (
	"time"

	"github.com/google/uuid"
)

// RoleType values that carry a specialized side record. Other role types
// (admin, for instance) have no side table.
const (
	RoleDoctor     = "doctor"
	RoleNurse      = "nurse"
	RoleScientist  = "scientist"
	RolePatient    = "patient"
	RoleTechnician = "technician"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Role is a global lookup row seeded by migration.
type Role struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Type string    `db:"type" json:"type"`
}

type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	HospitalID uuid.UUID `db:"hospital_id" json:"hospital_id"`
	RoleID     uuid.UUID `db:"role_id" json:"role_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SpecializedRecord is the shared shape of all five side tables. Fields
// unused by a given role stay at their zero value in that role's table.
type SpecializedRecord struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	HospitalID   uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	Gender       string     `db:"gender" json:"gender,omitempty"`
	DOB          *time.Time `db:"dob" json:"dob,omitempty"`
	Age          *int       `db:"age" json:"age,omitempty"`
	RecordNumber string     `db:"record_number" json:"record_number,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
