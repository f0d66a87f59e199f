package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

var (
	campusColumns  = map[string]string{"id": "id", "name": "name"}
	courseColumns  = map[string]string{"id": "id", "name": "name", "campus": "campus_id"}
	subjectColumns = map[string]string{"id": "id", "name": "name", "course": "course_id"}
)

// deleteErr maps the restrict violation of a catalogue delete to school.ErrProtected.
func deleteErr(err error, msg string) error {
	if pqCode(err) == fkViolation {
		return school.ErrProtected
	}
	return errors.Wrap(err, msg)
}

// Campuses

func (repo *schoolRepository) CreateCampus(ctx context.Context, campus school.Campus) (school.Campus, error) {
	qb := psql.Insert("campuses").Columns("name").Values(campus.Name).Suffix("RETURNING id")
	if err := get(ctx, repo.db, &campus.ID, qb); err != nil {
		return school.Campus{}, errors.Wrap(err, "inserting campus")
	}
	return campus, nil
}

func (repo *schoolRepository) QueryCampuses(ctx context.Context, ordering []core.DBOrdering, page core.Pagination) ([]school.Campus, int, error) {
	where := sq.And{}
	n, err := count(ctx, repo.db, "campuses", where)
	if err != nil {
		return nil, 0, err
	}

	qb := psql.Select("id", "name").From("campuses").Where(where)
	qb = paginate(orderBy(qb, ordering, campusColumns, "id"), page)
	campuses := make([]school.Campus, 0)
	if err = selectAll(ctx, repo.db, &campuses, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting campuses")
	}
	return campuses, n, nil
}

func (repo *schoolRepository) GetCampus(ctx context.Context, id int) (school.Campus, error) {
	var campus school.Campus
	qb := psql.Select("id", "name").From("campuses").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &campus, qb); err != nil {
		return school.Campus{}, trapNoRowsErr(err, school.ErrCampusNotFound, "selecting campus")
	}
	return campus, nil
}

func (repo *schoolRepository) UpdateCampus(ctx context.Context, campus school.Campus) (school.Campus, error) {
	n, err := exec(ctx, repo.db, psql.Update("campuses").Set("name", campus.Name).Where(sq.Eq{"id": campus.ID}))
	if err != nil {
		return school.Campus{}, errors.Wrap(err, "updating campus")
	}
	if n == 0 {
		return school.Campus{}, school.ErrCampusNotFound
	}
	return campus, nil
}

func (repo *schoolRepository) DeleteCampus(ctx context.Context, id int) error {
	n, err := exec(ctx, repo.db, psql.Delete("campuses").Where(sq.Eq{"id": id}))
	if err != nil {
		return deleteErr(err, "deleting campus")
	}
	if n == 0 {
		return school.ErrCampusNotFound
	}
	return nil
}

// Courses

func (repo *schoolRepository) CreateCourse(ctx context.Context, course school.Course) (school.Course, error) {
	qb := psql.Insert("courses").Columns("name", "campus_id").Values(course.Name, course.CampusID).Suffix("RETURNING id")
	if err := get(ctx, repo.db, &course.ID, qb); err != nil {
		return school.Course{}, errors.Wrap(err, "inserting course")
	}
	return course, nil
}

func (repo *schoolRepository) QueryCourses(ctx context.Context, filter school.CourseFilter, ordering []core.DBOrdering, page core.Pagination) ([]school.Course, int, error) {
	where := sq.And{}
	if filter.CampusID != 0 {
		where = append(where, sq.Eq{"campus_id": filter.CampusID})
	}
	n, err := count(ctx, repo.db, "courses", where)
	if err != nil {
		return nil, 0, err
	}

	qb := psql.Select("id", "name", "campus_id").From("courses").Where(where)
	qb = paginate(orderBy(qb, ordering, courseColumns, "id"), page)
	courses := make([]school.Course, 0)
	if err = selectAll(ctx, repo.db, &courses, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting courses")
	}
	return courses, n, nil
}

func (repo *schoolRepository) GetCourse(ctx context.Context, id int) (school.Course, error) {
	var course school.Course
	qb := psql.Select("id", "name", "campus_id").From("courses").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &course, qb); err != nil {
		return school.Course{}, trapNoRowsErr(err, school.ErrCourseNotFound, "selecting course")
	}
	return course, nil
}

func (repo *schoolRepository) UpdateCourse(ctx context.Context, course school.Course) (school.Course, error) {
	qb := psql.Update("courses").
		SetMap(map[string]interface{}{"name": course.Name, "campus_id": course.CampusID}).
		Where(sq.Eq{"id": course.ID})
	n, err := exec(ctx, repo.db, qb)
	if err != nil {
		return school.Course{}, errors.Wrap(err, "updating course")
	}
	if n == 0 {
		return school.Course{}, school.ErrCourseNotFound
	}
	return course, nil
}

func (repo *schoolRepository) DeleteCourse(ctx context.Context, id int) error {
	n, err := exec(ctx, repo.db, psql.Delete("courses").Where(sq.Eq{"id": id}))
	if err != nil {
		return deleteErr(err, "deleting course")
	}
	if n == 0 {
		return school.ErrCourseNotFound
	}
	return nil
}

// Subjects

func (repo *schoolRepository) CreateSubject(ctx context.Context, subject school.Subject) (school.Subject, error) {
	qb := psql.Insert("subjects").Columns("name", "course_id").Values(subject.Name, subject.CourseID).Suffix("RETURNING id")
	if err := get(ctx, repo.db, &subject.ID, qb); err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return subject, nil
}

func (repo *schoolRepository) QuerySubjects(ctx context.Context, filter school.SubjectFilter, ordering []core.DBOrdering, page core.Pagination) ([]school.Subject, int, error) {
	where := sq.And{}
	if filter.CourseID != 0 {
		where = append(where, sq.Eq{"course_id": filter.CourseID})
	}
	n, err := count(ctx, repo.db, "subjects", where)
	if err != nil {
		return nil, 0, err
	}

	qb := psql.Select("id", "name", "course_id").From("subjects").Where(where)
	qb = paginate(orderBy(qb, ordering, subjectColumns, "id"), page)
	subjects := make([]school.Subject, 0)
	if err = selectAll(ctx, repo.db, &subjects, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting subjects")
	}
	return subjects, n, nil
}

func (repo *schoolRepository) GetSubject(ctx context.Context, id int) (school.Subject, error) {
	var subject school.Subject
	qb := psql.Select("id", "name", "course_id").From("subjects").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &subject, qb); err != nil {
		return school.Subject{}, trapNoRowsErr(err, school.ErrSubjectNotFound, "selecting subject")
	}
	return subject, nil
}

func (repo *schoolRepository) UpdateSubject(ctx context.Context, subject school.Subject) (school.Subject, error) {
	qb := psql.Update("subjects").
		SetMap(map[string]interface{}{"name": subject.Name, "course_id": subject.CourseID}).
		Where(sq.Eq{"id": subject.ID})
	n, err := exec(ctx, repo.db, qb)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n == 0 {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	return subject, nil
}

func (repo *schoolRepository) DeleteSubject(ctx context.Context, id int) error {
	n, err := exec(ctx, repo.db, psql.Delete("subjects").Where(sq.Eq{"id": id}))
	if err != nil {
		return deleteErr(err, "deleting subject")
	}
	if n == 0 {
		return school.ErrSubjectNotFound
	}
	return nil
}
