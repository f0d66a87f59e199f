package diagnosis

import (
	"context"
	"io"
	"log"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
	"github.com/unbfeelings/backend/services/logger"
	"github.com/unbfeelings/backend/storage/cache"
	"github.com/unbfeelings/backend/storage/database/inmem"
)

type fixture struct {
	svc      Service
	postSvc  post.Service
	postRepo post.Repository
	joana    user.Student
	pedro    user.Student
	gpp      school.Subject
	calc     school.Subject
}

// now is a Wednesday.
var now = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func setUp(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	conf := core.NewTestConfig()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	conf.Location = loc
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	db := inmemdb.Open()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	userRepo := inmemdb.NewUserRepository(db)
	postRepo := inmemdb.NewPostRepository(db)

	campus, err := schoolRepo.CreateCampus(ctx, school.Campus{Name: "Darcy Ribeiro"})
	require.NoError(t, err)
	course, err := schoolRepo.CreateCourse(ctx, school.Course{Name: "Software", CampusID: campus.ID})
	require.NoError(t, err)

	f := fixture{postRepo: postRepo}
	f.gpp, err = schoolRepo.CreateSubject(ctx, school.Subject{Name: "GPP", CourseID: course.ID})
	require.NoError(t, err)
	f.calc, err = schoolRepo.CreateSubject(ctx, school.Subject{Name: "Calculus", CourseID: course.ID})
	require.NoError(t, err)
	f.joana, err = userRepo.CreateStudent(ctx, user.Student{User: user.User{Email: "joana@unb.br"}, CourseID: course.ID})
	require.NoError(t, err)
	f.pedro, err = userRepo.CreateStudent(ctx, user.Student{User: user.User{Email: "pedro@unb.br"}, CourseID: course.ID})
	require.NoError(t, err)

	f.svc = NewService(postRepo, userRepo, schoolRepo, cache.NewMemoryCache(), logger, conf)
	f.postSvc = post.NewService(postRepo, schoolRepo, logger, f.svc)

	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
	return f
}

func (f fixture) createPost(t *testing.T, author user.Student, subject school.Subject, emotion string, createdAt time.Time) post.Post {
	t.Helper()
	p, err := f.postRepo.CreatePost(context.Background(), post.Post{
		AuthorID:  author.ID,
		Subject:   subject,
		Emotion:   emotion,
		CreatedAt: createdAt,
	}, nil)
	require.NoError(t, err)
	return p
}

func postIDs(posts []post.Post) []int {
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestService_Diagnosis(t *testing.T) {
	f := setUp(t)

	// Monday 02:00 UTC is still Sunday in Sao Paulo
	sunday := f.createPost(t, f.joana, f.gpp, post.EmotionGood, time.Date(2024, 5, 13, 2, 0, 0, 0, time.UTC))
	tuesday := f.createPost(t, f.pedro, f.gpp, post.EmotionBad, time.Date(2024, 5, 14, 15, 0, 0, 0, time.UTC))
	wednesday := f.createPost(t, f.joana, f.calc, post.EmotionNeutral, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	f.createPost(t, f.joana, f.gpp, post.EmotionBad, now.Add(-7*24*time.Hour-time.Minute)) // too old

	tests := []struct {
		name    string
		query   Query
		want    map[time.Weekday][]int
		wantErr error
	}{
		{
			name:  "university",
			query: Query{},
			want: map[time.Weekday][]int{
				time.Sunday: {sunday.ID}, time.Tuesday: {tuesday.ID}, time.Wednesday: {wednesday.ID},
			},
		},
		{
			name:  "student",
			query: Query{Target: "student", TargetID: strconv.Itoa(f.joana.ID)},
			want:  map[time.Weekday][]int{time.Sunday: {sunday.ID}, time.Wednesday: {wednesday.ID}},
		},
		{
			name:  "subject",
			query: Query{Target: "subject", TargetID: strconv.Itoa(f.gpp.ID)},
			want:  map[time.Weekday][]int{time.Sunday: {sunday.ID}, time.Tuesday: {tuesday.ID}},
		},
		{name: "unknown target", query: Query{Target: "course", TargetID: "1"}, wantErr: ErrTargetNotFound},
		{name: "missing target_id", query: Query{Target: "student"}, wantErr: ErrTargetNotFound},
		{name: "bad target_id", query: Query{Target: "subject", TargetID: "lol"}, wantErr: ErrTargetNotFound},
		{name: "unknown student", query: Query{Target: "student", TargetID: "9999"}, wantErr: ErrTargetNotFound},
		{name: "subject is not a student", query: Query{Target: "student", TargetID: strconv.Itoa(f.gpp.ID)}, wantErr: ErrTargetNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week, err := f.svc.Diagnosis(context.Background(), tt.query)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			for d := time.Sunday; d <= time.Saturday; d++ {
				posts := *week.day(d)
				assert.NotNil(t, posts, d.String())
				assert.Equal(t, append([]int{}, tt.want[d]...), postIDs(posts), d.String())
			}
		})
	}
}

func TestService_WeeklyCount(t *testing.T) {
	f := setUp(t)

	f.createPost(t, f.joana, f.gpp, post.EmotionGood, time.Date(2024, 5, 13, 2, 0, 0, 0, time.UTC))
	f.createPost(t, f.joana, f.gpp, post.EmotionBad, time.Date(2024, 5, 12, 20, 0, 0, 0, time.UTC))
	f.createPost(t, f.pedro, f.gpp, post.EmotionBad, time.Date(2024, 5, 14, 15, 0, 0, 0, time.UTC))
	f.createPost(t, f.pedro, f.calc, post.EmotionNeutral, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	f.createPost(t, f.pedro, f.gpp, post.EmotionGood, now.Add(-8*24*time.Hour))

	counts, err := f.svc.WeeklyCount(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, WeekCounts{
		Sunday:  DayCount{BadCount: 1, GoodCount: 1},
		Tuesday: DayCount{BadCount: 1},
	}, counts)

	counts, err = f.svc.WeeklyCount(context.Background(), Query{Target: "student", TargetID: strconv.Itoa(f.pedro.ID)})
	require.NoError(t, err)
	assert.Equal(t, WeekCounts{Tuesday: DayCount{BadCount: 1}}, counts)

	_, err = f.svc.WeeklyCount(context.Background(), Query{Target: "lol"})
	assert.Equal(t, ErrTargetNotFound, err)
}

func TestService_cacheInvalidation(t *testing.T) {
	f := setUp(t)
	ctx := context.Background()

	counts, err := f.svc.WeeklyCount(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, WeekCounts{}, counts)

	// written behind the service's back: the cached result is served
	f.createPost(t, f.joana, f.gpp, post.EmotionGood, now.Add(-time.Hour))
	counts, err = f.svc.WeeklyCount(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, WeekCounts{}, counts)

	// creating a post through the post service invalidates the cache
	_, err = f.postSvc.Create(ctx, f.pedro.ID, post.NewPost{SubjectID: f.gpp.ID, Emotion: post.EmotionBad})
	require.NoError(t, err)
	counts, err = f.svc.WeeklyCount(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Wednesday.GoodCount)
	var bad int
	for d := time.Sunday; d <= time.Saturday; d++ {
		bad += counts.day(d).BadCount
	}
	assert.Equal(t, 1, bad)
}
