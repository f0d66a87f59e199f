package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbfeelings/backend/core/diagnosis"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
)

func (app *testApp) createPostAt(t *testing.T, author user.Student, subject school.Subject, emotion string, at time.Time) post.Post {
	t.Helper()
	p, err := app.postRepo.CreatePost(context.Background(), post.Post{
		AuthorID:  author.ID,
		Subject:   subject,
		Emotion:   emotion,
		CreatedAt: at.UTC(),
	}, nil)
	require.NoError(t, err)
	return p
}

func weekday(p post.Post) time.Weekday {
	return p.CreatedAt.In(time.UTC).Weekday()
}

func Test_diagnosisApi(t *testing.T) {
	app := setup(t)
	course := app.createCourse(t, "Software", app.createCampus(t, "Gama"))
	gpp := app.createSubject(t, "GPP", course)
	mds := app.createSubject(t, "MDS", course)
	joana := app.createStudent(t, "joana@unb.br", course)
	pedro := app.createStudent(t, "pedro@unb.br", course)

	now := time.Now()
	recent := app.createPostAt(t, joana, gpp, post.EmotionGood, now.Add(-time.Hour))
	older := app.createPostAt(t, pedro, gpp, post.EmotionBad, now.Add(-3*24*time.Hour))
	neutral := app.createPostAt(t, pedro, mds, post.EmotionNeutral, now.Add(-5*24*time.Hour))
	app.createPostAt(t, joana, mds, post.EmotionBad, now.Add(-10*24*time.Hour)) // out of the window

	t.Run("diagnosis", func(t *testing.T) {
		tests := []struct {
			name    string
			query   string
			wantIDs map[time.Weekday][]int
		}{
			{
				name:  "university",
				query: "",
				wantIDs: map[time.Weekday][]int{
					weekday(recent): {recent.ID}, weekday(older): {older.ID}, weekday(neutral): {neutral.ID},
				},
			},
			{
				name:    "student",
				query:   fmt.Sprintf("?target=student&target_id=%d", joana.ID),
				wantIDs: map[time.Weekday][]int{weekday(recent): {recent.ID}},
			},
			{
				name:    "subject",
				query:   fmt.Sprintf("?target=SUBJECT&target_id=%d", mds.ID),
				wantIDs: map[time.Weekday][]int{weekday(neutral): {neutral.ID}},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, "/api/diagnosis"+tt.query)
				app.serve(req, rec)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

				// every day is present, even without posts
				var raw map[string]json.RawMessage
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
				assert.Len(t, raw, 7)
				for day, posts := range raw {
					assert.NotEqual(t, "null", string(posts), day)
				}

				var week diagnosis.WeekPosts
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
				days := map[time.Weekday][]post.Post{
					time.Sunday: week.Sunday, time.Monday: week.Monday, time.Tuesday: week.Tuesday,
					time.Wednesday: week.Wednesday, time.Thursday: week.Thursday, time.Friday: week.Friday,
					time.Saturday: week.Saturday,
				}
				for d, posts := range days {
					want := tt.wantIDs[d]
					if want == nil {
						want = []int{}
					}
					assert.Equal(t, want, postIDs(posts), d.String())
				}
			})
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		notFound := marchallObj(t, httpErr{Detail: diagnosis.ErrTargetNotFound.Error()})
		tests := []httpTest{
			{name: "unknown target", path: "/api/diagnosis?target=course&target_id=1", wantCode: http.StatusNotFound, wantData: notFound},
			{name: "missing id", path: "/api/diagnosis?target=student", wantCode: http.StatusNotFound, wantData: notFound},
			{name: "unknown student", path: "/api/diagnosis/weekly_count?target=student&target_id=9999", wantCode: http.StatusNotFound, wantData: notFound},
			{name: "unknown subject", path: "/api/diagnosis/weekly_count?target=subject&target_id=9999", wantCode: http.StatusNotFound, wantData: notFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, tt.path)
				app.serve(req, rec)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("weekly count", func(t *testing.T) {
		getCounts := func() diagnosis.WeekCounts {
			req, rec := newRequest(http.MethodGet, fmt.Sprintf("/api/diagnosis/weekly_count?target=subject&target_id=%d", gpp.ID))
			app.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var counts diagnosis.WeekCounts
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
			return counts
		}

		var want diagnosis.WeekCounts
		dayCount(&want, weekday(recent)).GoodCount++
		dayCount(&want, weekday(older)).BadCount++
		assert.Equal(t, want, getCounts())

		// posting through the API invalidates the cached counts
		body := marchallObj(t, post.NewPost{SubjectID: gpp.ID, Emotion: post.EmotionBad})
		req, rec := newAuthRequest(http.MethodPost, "/api/posts", getToken(t, joana.User, app.conf), body)
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created post.Post
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

		dayCount(&want, weekday(created)).BadCount++
		assert.Equal(t, want, getCounts())
	})
}

func dayCount(wc *diagnosis.WeekCounts, d time.Weekday) *diagnosis.DayCount {
	return [...]*diagnosis.DayCount{
		&wc.Sunday, &wc.Monday, &wc.Tuesday, &wc.Wednesday, &wc.Thursday, &wc.Friday, &wc.Saturday,
	}[d]
}

func Test_diagnosisApi_staleRows(t *testing.T) {
	app := setup(t)
	course := app.createCourse(t, "Software", app.createCampus(t, "Gama"))
	gpp := app.createSubject(t, "GPP", course)
	joana := app.createStudent(t, "joana@unb.br", course)
	pedro := app.createStudent(t, "pedro@unb.br", course)
	adminToken := getToken(t, app.createAdmin(t, "admin@unb.br"), app.conf)

	recent := app.createPostAt(t, joana, gpp, post.EmotionGood, time.Now().Add(-time.Hour))
	kept := app.createPostAt(t, pedro, gpp, post.EmotionBad, time.Now().Add(-2*time.Hour))

	getWeek := func() diagnosis.WeekPosts {
		req, rec := newRequest(http.MethodGet, "/api/diagnosis")
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var week diagnosis.WeekPosts
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
		return week
	}
	getCounts := func() diagnosis.WeekCounts {
		req, rec := newRequest(http.MethodGet, "/api/diagnosis/weekly_count")
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var counts diagnosis.WeekCounts
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
		return counts
	}
	allPosts := func(week diagnosis.WeekPosts) []post.Post {
		var posts []post.Post
		for _, day := range [][]post.Post{week.Sunday, week.Monday, week.Tuesday, week.Wednesday, week.Thursday, week.Friday, week.Saturday} {
			posts = append(posts, day...)
		}
		return posts
	}

	// fill the cache
	require.Len(t, allPosts(getWeek()), 2)
	var want diagnosis.WeekCounts
	dayCount(&want, weekday(recent)).GoodCount++
	dayCount(&want, weekday(kept)).BadCount++
	require.Equal(t, want, getCounts())

	t.Run("renamed subject", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, fmt.Sprintf("/api/subjects/%d", gpp.ID), adminToken, []byte(`{"name": "Gestão de Projetos"}`))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		for _, p := range allPosts(getWeek()) {
			assert.Equal(t, "Gestão de Projetos", p.Subject.Name)
		}
	})

	t.Run("deleted student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/api/students/%d", joana.ID), adminToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusNoContent, rec.Code)

		assert.Equal(t, []int{kept.ID}, postIDs(allPosts(getWeek())))
		var want diagnosis.WeekCounts
		dayCount(&want, weekday(kept)).BadCount++
		assert.Equal(t, want, getCounts())
	})
}
