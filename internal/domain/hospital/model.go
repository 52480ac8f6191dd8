package hospital

import (
	"time"

	"github.com/google/uuid"
)

// Hospital is the tenant root. Every other entity carries a hospital_id
// foreign key and is invisible outside its hospital.
type Hospital struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
