package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted account model. This package only reads it during
// sign in; the seed command is the only writer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Record projects the model into the read-only shape the verifier consumes
func (u *User) Record() *UserRecord {
	if u == nil {
		return nil
	}

	id := ""
	if u.ID != uuid.Nil {
		id = u.ID.String()
	}

	return &UserRecord{
		ID:             id,
		Name:           u.Name,
		Email:          u.Email,
		PasswordDigest: u.PasswordHash,
	}
}

// UserRecord is what the store adapter hands to the verifier
type UserRecord struct {
	ID             string
	Name           string
	Email          string
	PasswordDigest string
}

// Identity is the minimal set of facts carried forward after a
// successful verification. It never holds secret material.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IsZero reports whether the identity carries no subject
func (i Identity) IsZero() bool {
	return i.ID == "" && i.Email == ""
}

func identityFromRecord(r *UserRecord) Identity {
	id := r.ID
	if id == "" {
		id = r.Email
	}

	name := r.Name
	if name == "" {
		name = r.Email
	}

	return Identity{
		ID:    id,
		Name:  name,
		Email: r.Email,
	}
}
