package post

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/school"
)

var (
	// errors
	ErrNotFound = errors.New("post not found")
)

type (
	Repository interface {
		// CreatePost inserts the post and its tags in one transaction.
		// Tags are fetched or created by description and their quantity is refreshed.
		CreatePost(ctx context.Context, p Post, tags []string) (Post, error)
		QueryPosts(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Post, int, error)
		GetPost(ctx context.Context, id int) (Post, error)
		// UpdatePost replaces the post tags unless tags is nil.
		UpdatePost(ctx context.Context, p Post, tags []string) (Post, error)
		DeletePost(ctx context.Context, id int) error
		// QueryTags returns tags by descending quantity.
		QueryTags(ctx context.Context, page core.Pagination) ([]Tag, int, error)
	}

	// SubjectFinder finds the subject a post is about.
	SubjectFinder interface {
		GetSubject(ctx context.Context, id int) (school.Subject, error)
	}

	// Listener is notified after a post is created, updated or deleted.
	Listener interface {
		OnPostEvent(ctx context.Context, evt Event) error
	}

	Service interface {
		Create(ctx context.Context, authorID int, np NewPost) (Post, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Post, int, error)
		Get(ctx context.Context, id int) (Post, error)
		Update(ctx context.Context, id int, up UpdatePost) (Post, error)
		Delete(ctx context.Context, id int) error
		QueryTags(ctx context.Context, page core.Pagination) ([]Tag, int, error)
	}

	service struct {
		repo      Repository
		subjects  SubjectFinder
		logger    core.Logger
		listeners []Listener
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subjects SubjectFinder, logger core.Logger, listeners ...Listener) Service {
	return &service{
		repo:      repo,
		subjects:  subjects,
		logger:    logger,
		listeners: listeners,
	}
}

func (svc *service) getSubject(ctx context.Context, id int) (school.Subject, error) {
	subject, err := svc.subjects.GetSubject(ctx, id)
	if err != nil {
		if errors.Cause(err) == school.ErrSubjectNotFound {
			return school.Subject{}, core.NewFieldError("subject", fmt.Errorf("invalid pk \"%d\" - object does not exist", id))
		}
		return school.Subject{}, errors.Wrap(err, "finding subject")
	}
	return subject, nil
}

// notify sends evt to all listeners. Failures are logged: the post change is already committed.
func (svc *service) notify(ctx context.Context, evtType string, p Post) {
	evt := Event{Type: evtType, Post: p}
	for _, l := range svc.listeners {
		if err := l.OnPostEvent(ctx, evt); err != nil {
			svc.logger.Error(fmt.Sprintf("notifying %s: %v", evtType, err), err)
		}
	}
}

func (svc *service) Create(ctx context.Context, authorID int, np NewPost) (Post, error) {
	subject, err := svc.getSubject(ctx, np.SubjectID)
	if err != nil {
		return Post{}, err
	}

	p, err := svc.repo.CreatePost(ctx, Post{
		AuthorID:  authorID,
		Subject:   subject,
		Emotion:   np.Emotion,
		CreatedAt: time.Now().UTC(),
	}, np.Tags)
	if err != nil {
		return Post{}, errors.Wrap(err, "creating post")
	}

	svc.notify(ctx, EventCreated, p)
	return p, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Post, int, error) {
	return svc.repo.QueryPosts(ctx, filter, ordering, page)
}

func (svc *service) Get(ctx context.Context, id int) (Post, error) {
	return svc.repo.GetPost(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, up UpdatePost) (Post, error) {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if up.SubjectID != p.Subject.ID {
		if p.Subject, err = svc.getSubject(ctx, up.SubjectID); err != nil {
			return Post{}, err
		}
	}
	p.Emotion = up.Emotion

	if p, err = svc.repo.UpdatePost(ctx, p, up.Tags); err != nil {
		return Post{}, errors.Wrap(err, "updating post")
	}

	svc.notify(ctx, EventUpdated, p)
	return p, nil
}

func (svc *service) Delete(ctx context.Context, id int) error {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeletePost(ctx, id); err != nil {
		return errors.Wrap(err, "deleting post")
	}

	svc.notify(ctx, EventDeleted, p)
	return nil
}

func (svc *service) QueryTags(ctx context.Context, page core.Pagination) ([]Tag, int, error) {
	return svc.repo.QueryTags(ctx, page)
}
