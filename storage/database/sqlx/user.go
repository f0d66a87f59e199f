package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

var (
	userColumns = []string{
		"u.id", "u.email", "u.name", "u.is_staff", "u.is_active", "u.password_hash",
		"u.created_at", "u.updated_at", "u.last_login",
	}
	studentColumns   = append(append([]string(nil), userColumns...), "s.course_id")
	studentOrderCols = map[string]string{"id": "u.id", "email": "u.email", "name": "u.name", "created_at": "u.created_at"}
)

const (
	usersTable    = "users u"
	studentsTable = "users u JOIN students s ON s.user_id = u.id"
)

func userValues(usr user.User) map[string]interface{} {
	return map[string]interface{}{
		"email":         usr.Email,
		"name":          usr.Name,
		"is_staff":      usr.IsStaff,
		"is_active":     usr.IsActive,
		"password_hash": usr.PasswordHash,
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    usr.LastLogin,
	}
}

// userErr maps the unique email violation to user.ErrEmailExists.
func userErr(err error, msg string) error {
	if pqCode(err) == uniqueViolation {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	where := sq.And{sq.Eq{"email": email}}
	if len(excludedIDs) > 0 {
		where = append(where, sq.NotEq{"id": excludedIDs})
	}
	n, err := count(ctx, repo.db, "users", where)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func createUser(ctx context.Context, q sqlx.QueryerContext, usr user.User) (user.User, error) {
	vals := userValues(usr)
	vals["created_at"] = usr.CreatedAt.UTC()
	if err := get(ctx, q, &usr.ID, psql.Insert("users").SetMap(vals).Suffix("RETURNING id")); err != nil {
		return user.User{}, userErr(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	return createUser(ctx, repo.db, usr)
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	qb := psql.Select(userColumns...).From(usersTable)
	switch {
	case filter.ID != 0:
		qb = qb.Where(sq.Eq{"u.id": filter.ID})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"u.email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := get(ctx, repo.db, &usr, qb); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func updateUser(ctx context.Context, e sqlx.ExecerContext, usr user.User) error {
	n, err := exec(ctx, e, psql.Update("users").SetMap(userValues(usr)).Where(sq.Eq{"id": usr.ID}))
	if err != nil {
		return userErr(err, "updating user")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := updateUser(ctx, repo.db, usr); err != nil {
		return user.User{}, err
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	vals := userValues(usr)
	vals["created_at"] = usr.CreatedAt.UTC()
	qb := psql.Insert("users").SetMap(vals).Suffix(
		"ON CONFLICT (email) DO UPDATE SET " +
			"name = EXCLUDED.name, is_staff = EXCLUDED.is_staff, is_active = EXCLUDED.is_active, " +
			"password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at " +
			"RETURNING id",
	)
	var id int
	if err := get(ctx, repo.db, &id, qb); err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: id})
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// posts and post_tags rows go with the user: their tags must be recounted
		var tagIDs []int
		qb := psql.Select("DISTINCT pt.tag_id").From("post_tags pt JOIN posts p ON p.id = pt.post_id").
			Where(sq.Eq{"p.author_id": id})
		if err := selectAll(ctx, tx, &tagIDs, qb); err != nil {
			return errors.Wrap(err, "selecting user tags")
		}

		n, err := exec(ctx, tx, psql.Delete("users").Where(sq.Eq{"id": id}))
		if err != nil {
			return errors.Wrap(err, "deleting user")
		}
		if n == 0 {
			return user.ErrNotFound
		}
		return refreshTagQuantities(ctx, tx, tagIDs)
	})
}

// Students

func (repo *userRepository) CreateStudent(ctx context.Context, st user.Student) (user.Student, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		usr, err := createUser(ctx, tx, st.User)
		if err != nil {
			return err
		}
		st.User = usr

		_, err = exec(ctx, tx, psql.Insert("students").Columns("user_id", "course_id").Values(st.ID, st.CourseID))
		return errors.Wrap(err, "inserting student")
	})
	if err != nil {
		return user.Student{}, err
	}
	return st, nil
}

func (repo *userRepository) QueryStudents(ctx context.Context, filter user.StudentFilter, ordering []core.DBOrdering, page core.Pagination) ([]user.Student, int, error) {
	where := sq.And{}
	if filter.CourseID != 0 {
		where = append(where, sq.Eq{"s.course_id": filter.CourseID})
	}
	// students with Name or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, sq.Or{sq.ILike{"u.name": val}, sq.ILike{"u.email": val}})
	}

	n, err := count(ctx, repo.db, studentsTable, where)
	if err != nil {
		return nil, 0, err
	}

	qb := psql.Select(studentColumns...).From(studentsTable).Where(where)
	qb = paginate(orderBy(qb, ordering, studentOrderCols, "u.id"), page)
	students := make([]user.Student, 0)
	if err = selectAll(ctx, repo.db, &students, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting students")
	}
	return students, n, nil
}

func (repo *userRepository) GetStudent(ctx context.Context, id int) (user.Student, error) {
	var st user.Student
	qb := psql.Select(studentColumns...).From(studentsTable).Where(sq.Eq{"u.id": id})
	if err := get(ctx, repo.db, &st, qb); err != nil {
		return user.Student{}, trapNoRowsErr(err, user.ErrNotFound, "selecting student")
	}
	return st, nil
}

func (repo *userRepository) UpdateStudent(ctx context.Context, st user.Student) (user.Student, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := updateUser(ctx, tx, st.User); err != nil {
			return err
		}
		n, err := exec(ctx, tx, psql.Update("students").Set("course_id", st.CourseID).Where(sq.Eq{"user_id": st.ID}))
		if err != nil {
			return errors.Wrap(err, "updating student")
		}
		if n == 0 {
			return user.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return user.Student{}, err
	}
	return repo.GetStudent(ctx, st.ID)
}

// Blocks

var blockColumns = []string{"id", "blocker_id", "blocked_id", "created_at"}

func (repo *userRepository) CreateBlock(ctx context.Context, blk user.Block) (user.Block, error) {
	qb := psql.Insert("blocks").
		Columns("blocker_id", "blocked_id", "created_at").
		Values(blk.BlockerID, blk.BlockedID, blk.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &blk.ID, qb); err != nil {
		if pqCode(err) == uniqueViolation {
			return user.Block{}, user.ErrAlreadyBlocked
		}
		return user.Block{}, errors.Wrap(err, "inserting block")
	}
	return blk, nil
}

func (repo *userRepository) GetBlock(ctx context.Context, id int) (user.Block, error) {
	var blk user.Block
	if err := get(ctx, repo.db, &blk, psql.Select(blockColumns...).From("blocks").Where(sq.Eq{"id": id})); err != nil {
		return user.Block{}, trapNoRowsErr(err, user.ErrBlockNotFound, "selecting block")
	}
	return blk, nil
}

func (repo *userRepository) DeleteBlock(ctx context.Context, id int) error {
	n, err := exec(ctx, repo.db, psql.Delete("blocks").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting block")
	}
	if n == 0 {
		return user.ErrBlockNotFound
	}
	return nil
}

const blockedStudentsTable = studentsTable + " JOIN blocks b ON b.blocked_id = u.id"

// blockedStudentsQueries returns the count and page queries of the students blocked by blockerID.
func blockedStudentsQueries(blockerID int, page core.Pagination) (countQ, selectQ sq.SelectBuilder) {
	where := sq.Eq{"b.blocker_id": blockerID}
	countQ = countQuery(blockedStudentsTable, where)
	selectQ = paginate(psql.Select(studentColumns...).From(blockedStudentsTable).Where(where).OrderBy("b.id"), page)
	return countQ, selectQ
}

func (repo *userRepository) QueryBlockedStudents(ctx context.Context, blockerID int, page core.Pagination) ([]user.Student, int, error) {
	countQ, qb := blockedStudentsQueries(blockerID, page)
	var n int
	if err := get(ctx, repo.db, &n, countQ); err != nil {
		return nil, 0, errors.Wrap(err, "counting rows")
	}

	students := make([]user.Student, 0)
	if err := selectAll(ctx, repo.db, &students, qb); err != nil {
		return nil, 0, errors.Wrap(err, "selecting blocked students")
	}
	return students, n, nil
}

func (repo *userRepository) BlockedIDs(ctx context.Context, blockerID int) ([]int, error) {
	ids := make([]int, 0)
	qb := psql.Select("blocked_id").From("blocks").Where(sq.Eq{"blocker_id": blockerID}).OrderBy("id")
	if err := selectAll(ctx, repo.db, &ids, qb); err != nil {
		return nil, errors.Wrap(err, "selecting blocked IDs")
	}
	return ids, nil
}
