package inmemdb

import (
	"cmp"
	"context"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

var (
	campusFields = map[string]compareFunc[school.Campus]{
		"id":   func(a, b school.Campus) int { return cmp.Compare(a.ID, b.ID) },
		"name": func(a, b school.Campus) int { return cmp.Compare(a.Name, b.Name) },
	}
	courseFields = map[string]compareFunc[school.Course]{
		"id":     func(a, b school.Course) int { return cmp.Compare(a.ID, b.ID) },
		"name":   func(a, b school.Course) int { return cmp.Compare(a.Name, b.Name) },
		"campus": func(a, b school.Course) int { return cmp.Compare(a.CampusID, b.CampusID) },
	}
	subjectFields = map[string]compareFunc[school.Subject]{
		"id":     func(a, b school.Subject) int { return cmp.Compare(a.ID, b.ID) },
		"name":   func(a, b school.Subject) int { return cmp.Compare(a.Name, b.Name) },
		"course": func(a, b school.Subject) int { return cmp.Compare(a.CourseID, b.CourseID) },
	}
)

// Campuses

func (repo *schoolRepository) CreateCampus(_ context.Context, campus school.Campus) (school.Campus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	campus.ID = repo.db.nextPK()
	repo.db.campuses[campus.ID] = &campus
	return campus, nil
}

func (repo *schoolRepository) QueryCampuses(_ context.Context, ordering []core.DBOrdering, page core.Pagination) ([]school.Campus, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	campuses := make([]school.Campus, 0, len(repo.db.campuses))
	for _, c := range repo.db.campuses {
		campuses = append(campuses, *c)
	}
	sortRows(campuses, ordering, campusFields)
	return paginate(campuses, page), len(campuses), nil
}

func (repo *schoolRepository) GetCampus(_ context.Context, id int) (school.Campus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.campuses[id]; ok {
		return *c, nil
	}
	return school.Campus{}, school.ErrCampusNotFound
}

func (repo *schoolRepository) UpdateCampus(_ context.Context, campus school.Campus) (school.Campus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.campuses[campus.ID]; !ok {
		return school.Campus{}, school.ErrCampusNotFound
	}
	repo.db.campuses[campus.ID] = &campus
	return campus, nil
}

func (repo *schoolRepository) DeleteCampus(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.campuses[id]; !ok {
		return school.ErrCampusNotFound
	}
	for _, c := range repo.db.courses {
		if c.CampusID == id {
			return school.ErrProtected
		}
	}
	delete(repo.db.campuses, id)
	return nil
}

// Courses

func (repo *schoolRepository) CreateCourse(_ context.Context, course school.Course) (school.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	course.ID = repo.db.nextPK()
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *schoolRepository) QueryCourses(_ context.Context, filter school.CourseFilter, ordering []core.DBOrdering, page core.Pagination) ([]school.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]school.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.CampusID != 0 && c.CampusID != filter.CampusID {
			continue
		}
		courses = append(courses, *c)
	}
	sortRows(courses, ordering, courseFields)
	return paginate(courses, page), len(courses), nil
}

func (repo *schoolRepository) GetCourse(_ context.Context, id int) (school.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return school.Course{}, school.ErrCourseNotFound
}

func (repo *schoolRepository) UpdateCourse(_ context.Context, course school.Course) (school.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[course.ID]; !ok {
		return school.Course{}, school.ErrCourseNotFound
	}
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *schoolRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return school.ErrCourseNotFound
	}
	for _, courseID := range repo.db.students {
		if courseID == id {
			return school.ErrProtected
		}
	}
	for _, s := range repo.db.subjects {
		if s.CourseID == id {
			return school.ErrProtected
		}
	}
	delete(repo.db.courses, id)
	return nil
}

// Subjects

func (repo *schoolRepository) CreateSubject(_ context.Context, subject school.Subject) (school.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	subject.ID = repo.db.nextPK()
	repo.db.subjects[subject.ID] = &subject
	return subject, nil
}

func (repo *schoolRepository) QuerySubjects(_ context.Context, filter school.SubjectFilter, ordering []core.DBOrdering, page core.Pagination) ([]school.Subject, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]school.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		if filter.CourseID != 0 && s.CourseID != filter.CourseID {
			continue
		}
		subjects = append(subjects, *s)
	}
	sortRows(subjects, ordering, subjectFields)
	return paginate(subjects, page), len(subjects), nil
}

func (repo *schoolRepository) GetSubject(_ context.Context, id int) (school.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) UpdateSubject(_ context.Context, subject school.Subject) (school.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[subject.ID]; !ok {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	repo.db.subjects[subject.ID] = &subject
	return subject, nil
}

func (repo *schoolRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return school.ErrSubjectNotFound
	}
	for _, p := range repo.db.posts {
		if p.SubjectID == id {
			return school.ErrProtected
		}
	}
	delete(repo.db.subjects, id)
	return nil
}
