package school

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
)

var (
	// errors
	ErrCampusNotFound  = errors.New("campus not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrProtected       = errors.New("cannot delete this object: other objects still reference it")
)

type (
	Repository interface {
		CreateCampus(ctx context.Context, campus Campus) (Campus, error)
		QueryCampuses(ctx context.Context, ordering []core.DBOrdering, page core.Pagination) ([]Campus, int, error)
		GetCampus(ctx context.Context, id int) (Campus, error)
		UpdateCampus(ctx context.Context, campus Campus) (Campus, error)
		// DeleteCampus returns ErrProtected while courses reference the campus.
		DeleteCampus(ctx context.Context, id int) error

		CreateCourse(ctx context.Context, course Course) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, course Course) (Course, error)
		// DeleteCourse returns ErrProtected while students or subjects reference the course.
		DeleteCourse(ctx context.Context, id int) error

		CreateSubject(ctx context.Context, subject Subject) (Subject, error)
		QuerySubjects(ctx context.Context, filter SubjectFilter, ordering []core.DBOrdering, page core.Pagination) ([]Subject, int, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, subject Subject) (Subject, error)
		// DeleteSubject returns ErrProtected while posts reference the subject.
		DeleteSubject(ctx context.Context, id int) error
	}

	Service interface {
		CreateCampus(ctx context.Context, nc NewCampus) (Campus, error)
		QueryCampuses(ctx context.Context, ordering []core.DBOrdering, page core.Pagination) ([]Campus, int, error)
		GetCampus(ctx context.Context, id int) (Campus, error)
		UpdateCampus(ctx context.Context, id int, uc UpdateCampus) (Campus, error)
		DeleteCampus(ctx context.Context, id int) error

		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, id int, uc UpdateCourse) (Course, error)
		DeleteCourse(ctx context.Context, id int) error

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, filter SubjectFilter, ordering []core.DBOrdering, page core.Pagination) ([]Subject, int, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, id int, us UpdateSubject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error
	}

	service struct {
		repo         Repository
		invalidators []core.Invalidator
	}
)

var _ Service = (*service)(nil)

// NewService returns a school Service. invalidators are run after a course or subject changes.
func NewService(repo Repository, invalidators ...core.Invalidator) Service {
	return &service{repo: repo, invalidators: invalidators}
}

func (svc *service) invalidate(ctx context.Context) error {
	for _, inv := range svc.invalidators {
		if err := inv.Invalidate(ctx); err != nil {
			return errors.Wrap(err, "invalidating cached data")
		}
	}
	return nil
}

// invalidPK returns the validation error of a foreign key pointing to nothing.
func invalidPK(field string, id int) error {
	return core.NewFieldError(field, fmt.Errorf("invalid pk \"%d\" - object does not exist", id))
}

func (svc *service) checkCampus(ctx context.Context, id int) error {
	if _, err := svc.repo.GetCampus(ctx, id); err != nil {
		if errors.Cause(err) == ErrCampusNotFound {
			return invalidPK("campus", id)
		}
		return errors.Wrap(err, "finding campus")
	}
	return nil
}

func (svc *service) checkCourse(ctx context.Context, id int) error {
	if _, err := svc.repo.GetCourse(ctx, id); err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return invalidPK("course", id)
		}
		return errors.Wrap(err, "finding course")
	}
	return nil
}

// Campuses

func (svc *service) CreateCampus(ctx context.Context, nc NewCampus) (Campus, error) {
	return svc.repo.CreateCampus(ctx, Campus{Name: nc.Name})
}

func (svc *service) QueryCampuses(ctx context.Context, ordering []core.DBOrdering, page core.Pagination) ([]Campus, int, error) {
	return svc.repo.QueryCampuses(ctx, ordering, page)
}

func (svc *service) GetCampus(ctx context.Context, id int) (Campus, error) {
	return svc.repo.GetCampus(ctx, id)
}

func (svc *service) UpdateCampus(ctx context.Context, id int, uc UpdateCampus) (Campus, error) {
	return svc.repo.UpdateCampus(ctx, Campus{ID: id, Name: uc.Name})
}

func (svc *service) DeleteCampus(ctx context.Context, id int) error {
	return svc.repo.DeleteCampus(ctx, id)
}

// Courses

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkCampus(ctx, nc.CampusID); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, Course{Name: nc.Name, CampusID: nc.CampusID})
}

func (svc *service) QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering, page)
}

func (svc *service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) UpdateCourse(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	if err := svc.checkCampus(ctx, uc.CampusID); err != nil {
		return Course{}, err
	}
	course, err := svc.repo.UpdateCourse(ctx, Course{ID: id, Name: uc.Name, CampusID: uc.CampusID})
	if err != nil {
		return Course{}, err
	}
	if err = svc.invalidate(ctx); err != nil {
		return Course{}, err
	}
	return course, nil
}

func (svc *service) DeleteCourse(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// Subjects

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkCourse(ctx, ns.CourseID); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, CourseID: ns.CourseID})
}

func (svc *service) QuerySubjects(ctx context.Context, filter SubjectFilter, ordering []core.DBOrdering, page core.Pagination) ([]Subject, int, error) {
	return svc.repo.QuerySubjects(ctx, filter, ordering, page)
}

func (svc *service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) UpdateSubject(ctx context.Context, id int, us UpdateSubject) (Subject, error) {
	if err := svc.checkCourse(ctx, us.CourseID); err != nil {
		return Subject{}, err
	}
	subject, err := svc.repo.UpdateSubject(ctx, Subject{ID: id, Name: us.Name, CourseID: us.CourseID})
	if err != nil {
		return Subject{}, err
	}
	if err = svc.invalidate(ctx); err != nil {
		return Subject{}, err
	}
	return subject, nil
}

func (svc *service) DeleteSubject(ctx context.Context, id int) error {
	return svc.repo.DeleteSubject(ctx, id)
}
