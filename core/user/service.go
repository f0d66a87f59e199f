package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/school"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrBlockNotFound  = errors.New("block not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrSelfBlock      = errors.New("you cannot block yourself")
	ErrAlreadyBlocked = errors.New("this user is already blocked")

	errInvalidValue = errors.New("invalid value")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// UpdateUser saves all the mutable fields of usr.
		UpdateUser(ctx context.Context, usr User) (User, error)
		// UpdateOrCreateUser updates the user having usr.Email or creates it.
		UpdateOrCreateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser also deletes the user's student profile, posts and blocks.
		DeleteUser(ctx context.Context, id int) error

		// CreateStudent creates both the user and its student profile.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)

		// CreateBlock returns ErrAlreadyBlocked if the pair already exists.
		CreateBlock(ctx context.Context, blk Block) (Block, error)
		GetBlock(ctx context.Context, id int) (Block, error)
		DeleteBlock(ctx context.Context, id int) error
		QueryBlockedStudents(ctx context.Context, blockerID int, page core.Pagination) ([]Student, int, error)
		BlockedIDs(ctx context.Context, blockerID int) ([]int, error)
	}

	// CourseFinder finds the course a student attends.
	CourseFinder interface {
		GetCourse(ctx context.Context, id int) (school.Course, error)
	}

	Service interface {
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error)

		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, id int) error
		// SaveSuperuser creates or updates an active admin with the given credentials.
		SaveSuperuser(ctx context.Context, email, pwd string) (User, error)
		SetPassword(ctx context.Context, email, pwd string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error

		Block(ctx context.Context, blockerID int, nb NewBlock) (Block, error)
		GetBlock(ctx context.Context, id int) (Block, error)
		Unblock(ctx context.Context, id int) error
		QueryBlockedStudents(ctx context.Context, blockerID int, page core.Pagination) ([]Student, int, error)
		BlockedIDs(ctx context.Context, blockerID int) ([]int, error)
	}

	service struct {
		repo         Repository
		courses      CourseFinder
		mailSvc      core.EmailService
		conf         *core.Config
		invalidators []core.Invalidator
	}
)

var _ Service = (*service)(nil)

// NewService returns a user Service. invalidators are run after a user and its posts are deleted.
func NewService(repo Repository, courses CourseFinder, mailSvc core.EmailService, conf *core.Config, invalidators ...core.Invalidator) Service {
	return &service{
		repo:         repo,
		courses:      courses,
		mailSvc:      mailSvc,
		conf:         conf,
		invalidators: invalidators,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewFieldError("email", ErrEmailExists)
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) getCourse(ctx context.Context, id int) (school.Course, error) {
	course, err := svc.courses.GetCourse(ctx, id)
	if err != nil {
		if errors.Cause(err) == school.ErrCourseNotFound {
			return school.Course{}, core.NewFieldError("course", fmt.Errorf("invalid pk \"%d\" - object does not exist", id))
		}
		return school.Course{}, errors.Wrap(err, "finding course")
	}
	return course, nil
}

// Students

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkUniqueness(ctx, ns.Email); err != nil {
		return Student{}, err
	}
	course, err := svc.getCourse(ctx, ns.CourseID)
	if err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	st := Student{
		User: User{
			Email:     ns.Email,
			Name:      ns.Name,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CourseID: course.ID,
	}
	if err := st.SetPassword(ns.Password); err != nil {
		return Student{}, errors.Wrap(err, "setting password")
	}
	if st, err = svc.repo.CreateStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}

	svc.mailSvc.SendMessages(svc.welcomeMail(st, course))
	return st, nil
}

func (svc *service) QueryStudents(ctx context.Context, filter StudentFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering, page)
}

func (svc *service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = svc.checkUniqueness(ctx, us.Email, id); err != nil {
		return Student{}, err
	}
	if us.CourseID != st.CourseID {
		if _, err = svc.getCourse(ctx, us.CourseID); err != nil {
			return Student{}, err
		}
	}

	st.Email = us.Email
	st.Name = us.Name
	st.CourseID = us.CourseID
	st.UpdatedAt = time.Now().UTC()
	if us.IsActive != nil {
		st.IsActive = *us.IsActive
	}
	if us.Password != "" {
		if err = st.SetPassword(us.Password); err != nil {
			return Student{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateStudent(ctx, st)
}

// Users

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	if err := svc.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	for _, inv := range svc.invalidators {
		if err := inv.Invalidate(ctx); err != nil {
			return errors.Wrap(err, "invalidating cached data")
		}
	}
	return nil
}

func (svc *service) SaveSuperuser(ctx context.Context, email, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by email")
		}
		usr = User{Email: email, CreatedAt: now}
	}
	usr.IsStaff = true
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.UpdateOrCreateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	msg, err := svc.passwordResetMail(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewFieldError("uid", errInvalidValue)
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldError("uid", errInvalidValue)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, data.Token, svc.conf); err != nil {
		return core.NewFieldError("token", errInvalidValue)
	}
	if err = passwordError(data.Password, usr); err != nil {
		return err
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// Blocks

func (svc *service) Block(ctx context.Context, blockerID int, nb NewBlock) (Block, error) {
	if nb.BlockedID == blockerID {
		return Block{}, core.NewFieldError("blocked", ErrSelfBlock)
	}
	if _, err := svc.repo.GetStudent(ctx, nb.BlockedID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Block{}, core.NewFieldError("blocked", fmt.Errorf("invalid pk \"%d\" - object does not exist", nb.BlockedID))
		}
		return Block{}, errors.Wrap(err, "finding blocked student")
	}

	blk, err := svc.repo.CreateBlock(ctx, Block{
		BlockerID: blockerID,
		BlockedID: nb.BlockedID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyBlocked {
			return Block{}, core.NewFieldError("blocked", ErrAlreadyBlocked)
		}
		return Block{}, errors.Wrap(err, "creating block")
	}
	return blk, nil
}

func (svc *service) GetBlock(ctx context.Context, id int) (Block, error) {
	return svc.repo.GetBlock(ctx, id)
}

func (svc *service) Unblock(ctx context.Context, id int) error {
	return svc.repo.DeleteBlock(ctx, id)
}

func (svc *service) QueryBlockedStudents(ctx context.Context, blockerID int, page core.Pagination) ([]Student, int, error) {
	return svc.repo.QueryBlockedStudents(ctx, blockerID, page)
}

func (svc *service) BlockedIDs(ctx context.Context, blockerID int) ([]int, error) {
	return svc.repo.BlockedIDs(ctx, blockerID)
}

// Emails

func recipient(usr User) mail.Address {
	return mail.Address{Name: usr.Name, Address: usr.Email}
}

func displayName(usr User) string {
	if usr.Name != "" {
		return usr.Name
	}
	return usr.Email
}

func (svc *service) welcomeMail(st Student, course school.Course) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{recipient(st.User)},
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name":   displayName(st.User),
			"Email":  st.Email,
			"Course": course.Name,
		},
	}
}

func (svc *service) passwordResetMail(usr User) (*core.EmailMessage, error) {
	token, err := MakeToken(usr, svc.conf)
	if err != nil {
		return nil, errors.Wrap(err, "making password reset token")
	}
	return &core.EmailMessage{
		To:           []mail.Address{recipient(usr)},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  displayName(usr),
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	}, nil
}
