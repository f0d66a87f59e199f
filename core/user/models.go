package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/unbfeelings/backend/core"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool {
	return u.IsStaff
}

// Student is a User attending a course.
type Student struct {
	User
	CourseID int `json:"course" db:"course_id"`
}

// Block is a one-way relation: Blocker no longer sees Blocked's posts.
type Block struct {
	ID        int       `json:"id" db:"id"`
	BlockerID int       `json:"blocker" db:"blocker_id"`
	BlockedID int       `json:"blocked" db:"blocked_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Ordering fields accepted by the students query endpoints.
var StudentOrderingFields = []string{"id", "email", "name", "created_at"}

// NewStudent contains information needed to sign up a new Student.
type NewStudent struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password" validate:"required"`
	CourseID int    `json:"course" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// UpdateStudent is used for both full (PUT) and partial (PATCH) updates.
// On partial updates, missing fields keep their original value.
// An empty Password keeps the current one.
type UpdateStudent struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password"`
	CourseID int    `json:"course" validate:"required"`
	IsActive *bool  `json:"is_active"` // admin only
}

func (us *UpdateStudent) Validate(orig Student, partial bool, validate *validator.Validate) error {
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Name = core.CleanString(us.Name)
	if partial {
		if us.Email == "" {
			us.Email = orig.Email
		}
		if us.Name == "" {
			us.Name = orig.Name
		}
		if us.CourseID == 0 {
			us.CourseID = orig.CourseID
		}
	}
	return validate.Struct(us)
}

type NewBlock struct {
	BlockedID int `json:"blocked" validate:"required"`
}

func (nb NewBlock) Validate(validate *validator.Validate) error { return validate.Struct(nb) }

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single user; the first non-zero field wins.
type GetFilter struct {
	ID    int
	Email string
}

type StudentFilter struct {
	Search   string `query:"search"`
	CourseID int    `query:"course"`
}

func (sf *StudentFilter) Clean() {
	sf.Search = core.CleanString(sf.Search)
}
