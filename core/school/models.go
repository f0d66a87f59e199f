package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/unbfeelings/backend/core"
)

type Campus struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Course struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	CampusID int    `json:"campus" db:"campus_id"`
}

type Subject struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	CourseID int    `json:"course" db:"course_id"`
}

// Ordering fields accepted by the query endpoints.
var (
	CampusOrderingFields  = []string{"id", "name"}
	CourseOrderingFields  = []string{"id", "name", "campus"}
	SubjectOrderingFields = []string{"id", "name", "course"}
)

type NewCampus struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (nc *NewCampus) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateCampus is used for both full (PUT) and partial (PATCH) updates.
// On partial updates, missing fields keep their original value.
type UpdateCampus struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (uc *UpdateCampus) Validate(orig Campus, partial bool, validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	if partial && uc.Name == "" {
		uc.Name = orig.Name
	}
	return validate.Struct(uc)
}

type NewCourse struct {
	Name     string `json:"name" validate:"required,max=255"`
	CampusID int    `json:"campus" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Name     string `json:"name" validate:"required,max=255"`
	CampusID int    `json:"campus" validate:"required"`
}

func (uc *UpdateCourse) Validate(orig Course, partial bool, validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	if partial {
		if uc.Name == "" {
			uc.Name = orig.Name
		}
		if uc.CampusID == 0 {
			uc.CampusID = orig.CampusID
		}
	}
	return validate.Struct(uc)
}

type NewSubject struct {
	Name     string `json:"name" validate:"required,max=255"`
	CourseID int    `json:"course" validate:"required"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type UpdateSubject struct {
	Name     string `json:"name" validate:"required,max=255"`
	CourseID int    `json:"course" validate:"required"`
}

func (us *UpdateSubject) Validate(orig Subject, partial bool, validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	if partial {
		if us.Name == "" {
			us.Name = orig.Name
		}
		if us.CourseID == 0 {
			us.CourseID = orig.CourseID
		}
	}
	return validate.Struct(us)
}

type CourseFilter struct {
	CampusID int `query:"campus"`
}

type SubjectFilter struct {
	CourseID int `query:"course"`
}
