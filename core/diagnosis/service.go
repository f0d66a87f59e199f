package diagnosis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
)

const cachePrefix = "diagnosis:"

var (
	nowFunc = time.Now // mockable

	// errors
	ErrTargetNotFound = errors.New("target not found")
)

type (
	// PostQuerier queries posts; post.Repository is one.
	PostQuerier interface {
		QueryPosts(ctx context.Context, filter post.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]post.Post, int, error)
	}

	StudentFinder interface {
		GetStudent(ctx context.Context, id int) (user.Student, error)
	}

	SubjectFinder interface {
		GetSubject(ctx context.Context, id int) (school.Subject, error)
	}

	Service interface {
		// Diagnosis returns the target posts of the lookback window by weekday.
		Diagnosis(ctx context.Context, q Query) (WeekPosts, error)
		// WeeklyCount returns the target good and bad post counts of the lookback window by weekday.
		WeeklyCount(ctx context.Context, q Query) (WeekCounts, error)
		// Invalidate drops every cached diagnosis.
		Invalidate(ctx context.Context) error
		// OnPostEvent invalidates cached diagnoses.
		OnPostEvent(ctx context.Context, evt post.Event) error
	}

	service struct {
		posts    PostQuerier
		students StudentFinder
		subjects SubjectFinder
		cache    core.Cache
		logger   core.Logger
		loc      *time.Location
		lookback time.Duration
		cacheTTL time.Duration
	}
)

var (
	_ Service          = (*service)(nil)
	_ post.Listener    = (*service)(nil)
	_ core.Invalidator = (*service)(nil)
)

func NewService(
	posts PostQuerier,
	students StudentFinder,
	subjects SubjectFinder,
	cache core.Cache,
	logger core.Logger,
	conf *core.Config,
) Service {
	loc := conf.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		posts:    posts,
		students: students,
		subjects: subjects,
		cache:    cache,
		logger:   logger,
		loc:      loc,
		lookback: time.Duration(conf.Diagnosis.LookbackDays) * 24 * time.Hour,
		cacheTTL: conf.Diagnosis.CacheTTL,
	}
}

// filter validates q and returns the matching post filter.
func (svc *service) filter(ctx context.Context, q Query) (post.QueryFilter, error) {
	filter := post.QueryFilter{CreatedFrom: nowFunc().Add(-svc.lookback).UTC()}

	target := strings.ToLower(strings.TrimSpace(q.Target))
	if target == TargetUniversity {
		return filter, nil
	}
	if !(target == TargetStudent || target == TargetSubject) {
		return filter, ErrTargetNotFound
	}

	id, err := strconv.Atoi(strings.TrimSpace(q.TargetID))
	if err != nil {
		return filter, ErrTargetNotFound
	}

	switch target {
	case TargetStudent:
		if _, err = svc.students.GetStudent(ctx, id); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return filter, ErrTargetNotFound
			}
			return filter, errors.Wrap(err, "finding student")
		}
		filter.AuthorID = id
	case TargetSubject:
		if _, err = svc.subjects.GetSubject(ctx, id); err != nil {
			if errors.Cause(err) == school.ErrSubjectNotFound {
				return filter, ErrTargetNotFound
			}
			return filter, errors.Wrap(err, "finding subject")
		}
		filter.SubjectID = id
	}
	return filter, nil
}

func (svc *service) windowPosts(ctx context.Context, filter post.QueryFilter) ([]post.Post, error) {
	ordering := []core.DBOrdering{{Field: "created_at", Ascending: true}, {Field: "id", Ascending: true}}
	posts, _, err := svc.posts.QueryPosts(ctx, filter, ordering, core.Pagination{})
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	return posts, nil
}

func cacheKey(kind string, filter post.QueryFilter) string {
	return fmt.Sprintf("%s%s:author=%d:subject=%d", cachePrefix, kind, filter.AuthorID, filter.SubjectID)
}

// fromCache loads key into dest. Cache failures are logged and treated as misses.
func (svc *service) fromCache(ctx context.Context, key string, dest interface{}) bool {
	found, err := svc.cache.Get(ctx, key, dest)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cache %q: %v", key, err), err)
		return false
	}
	return found
}

func (svc *service) toCache(ctx context.Context, key string, val interface{}) {
	if err := svc.cache.Set(ctx, key, val, svc.cacheTTL); err != nil {
		svc.logger.Warn(fmt.Sprintf("writing cache %q: %v", key, err), err)
	}
}

func (svc *service) Diagnosis(ctx context.Context, q Query) (WeekPosts, error) {
	filter, err := svc.filter(ctx, q)
	if err != nil {
		return WeekPosts{}, err
	}

	key := cacheKey("posts", filter)
	week := newWeekPosts()
	if svc.fromCache(ctx, key, &week) {
		return week, nil
	}

	posts, err := svc.windowPosts(ctx, filter)
	if err != nil {
		return WeekPosts{}, err
	}
	for _, p := range posts {
		week.add(p.CreatedAt.In(svc.loc).Weekday(), p)
	}

	svc.toCache(ctx, key, week)
	return week, nil
}

func (svc *service) WeeklyCount(ctx context.Context, q Query) (WeekCounts, error) {
	filter, err := svc.filter(ctx, q)
	if err != nil {
		return WeekCounts{}, err
	}

	key := cacheKey("counts", filter)
	var counts WeekCounts
	if svc.fromCache(ctx, key, &counts) {
		return counts, nil
	}

	posts, err := svc.windowPosts(ctx, filter)
	if err != nil {
		return WeekCounts{}, err
	}
	for _, p := range posts {
		counts.add(p.CreatedAt.In(svc.loc).Weekday(), p.Emotion)
	}

	svc.toCache(ctx, key, counts)
	return counts, nil
}

func (svc *service) Invalidate(ctx context.Context) error {
	return errors.Wrap(svc.cache.DeletePrefix(ctx, cachePrefix), "invalidating diagnosis cache")
}

func (svc *service) OnPostEvent(ctx context.Context, _ post.Event) error {
	return svc.Invalidate(ctx)
}
