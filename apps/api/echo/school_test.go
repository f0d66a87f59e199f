package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbfeelings/backend/core/school"
)

func Test_schoolApi_courseList(t *testing.T) {
	app := setup(t)
	fga := app.createCampus(t, "FGA")
	darcy := app.createCampus(t, "Darcy Ribeiro")
	calc := app.createCourse(t, "Calculo 1", fga)
	cb := app.createCourse(t, "CB", fga)
	law := app.createCourse(t, "Law", darcy)

	t.Run("anyone can list", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/courses/")
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var courses []school.Course
		p := unmarshalPage(t, rec, &courses)
		assert.Equal(t, 3, p.Count)
		assert.Equal(t, []school.Course{calc, cb, law}, courses)
		assert.Nil(t, p.Next)
		assert.Nil(t, p.Previous)
	})

	t.Run("filter, order and paginate", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, fmt.Sprintf("/api/courses?campus=%d&ordering=-id,lol&page_size=1", fga.ID))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var courses []school.Course
		p := unmarshalPage(t, rec, &courses)
		assert.Equal(t, 2, p.Count)
		assert.Equal(t, []school.Course{cb}, courses)
		require.NotNil(t, p.Next)
		assert.Contains(t, *p.Next, "page=2")
		assert.Nil(t, p.Previous)

		req, rec = newRequest(http.MethodGet, fmt.Sprintf("/api/courses?campus=%d&ordering=-id&page_size=1&page=2", fga.ID))
		app.serve(req, rec)
		p = unmarshalPage(t, rec, &courses)
		assert.Equal(t, []school.Course{calc}, courses)
		assert.Nil(t, p.Next)
		require.NotNil(t, p.Previous)
		assert.NotContains(t, *p.Previous, "page=")
	})

	t.Run("invalid page", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/courses?page=5")
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Detail: "invalid page"})}, rec)
	})

	t.Run("anyone can retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "found", path: fmt.Sprintf("/api/courses/%d/", cb.ID), wantCode: http.StatusOK, wantData: marchallObj(t, cb)},
			{name: "not found", path: "/api/courses/9999/", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Detail: school.ErrCourseNotFound.Error()})},
			{name: "invalid id", path: "/api/courses/lol/", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Detail: "not found"})},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodGet, tt.path)
				app.serve(req, rec)
				checkCodeAndData(t, tt, rec)
			})
		}
	})
}

func Test_schoolApi_courseAdminOnly(t *testing.T) {
	app := setup(t)
	fga := app.createCampus(t, "FGA")
	cb := app.createCourse(t, "CB", fga)
	calc := app.createCourse(t, "Calculo 1", fga)
	st := app.createStudent(t, "test@user.com", calc)
	admin := app.createAdmin(t, "admin@unb.br")

	studentToken := getToken(t, st.User, app.conf)
	adminToken := getToken(t, admin, app.conf)
	forbidden := marchallObj(t, httpErr{Detail: "you do not have permission to perform this action"})

	newCourse := marchallObj(t, school.NewCourse{Name: "A new course", CampusID: fga.ID})
	cbPath := fmt.Sprintf("/api/courses/%d/", cb.ID)

	tests := []httpTest{
		{name: "create: no token", method: http.MethodPost, path: "/api/courses/", body: newCourse, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "create: wrong scheme", method: http.MethodPost, path: "/api/courses/", body: newCourse, wantCode: http.StatusUnauthorized, extra: "Bearer"},
		{name: "create: not admin", method: http.MethodPost, path: "/api/courses/", body: newCourse, token: studentToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "update: no token", method: http.MethodPatch, path: cbPath, body: []byte(`{"name": "other name"}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "update: not admin", method: http.MethodPatch, path: cbPath, body: []byte(`{"name": "other name"}`), token: studentToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "delete: no token", method: http.MethodDelete, path: cbPath, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "delete: not admin", method: http.MethodDelete, path: cbPath, token: studentToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "delete: invalid token", method: http.MethodDelete, path: cbPath, token: "lol", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			if scheme, ok := tt.extra.(string); ok {
				req.Header.Set("Authorization", scheme+" "+adminToken)
			}
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admin can create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/courses/", adminToken, newCourse)
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"name":"A new course"`)
	})

	t.Run("admin can update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, cbPath, adminToken, []byte(`{"name": "other name"}`))
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, school.Course{ID: cb.ID, Name: "other name", CampusID: fga.ID}),
		}, rec)

		// PUT is a full update
		req, rec = newAuthRequest(http.MethodPut, cbPath, adminToken, []byte(`{"name": "CB"}`))
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"campus": "this field is required"}`),
		}, rec)
	})

	t.Run("admin can delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, cbPath, adminToken)
		app.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())

		_, err := app.schoolRepo.GetCourse(context.Background(), cb.ID)
		assert.Equal(t, school.ErrCourseNotFound, err)

		req, rec = newRequest(http.MethodGet, "/api/courses/")
		app.serve(req, rec)
		var courses []school.Course
		p := unmarshalPage(t, rec, &courses)
		assert.Equal(t, 2, p.Count)
		for _, c := range courses {
			assert.NotEqual(t, cb.ID, c.ID)
		}
	})

	t.Run("protected course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/api/courses/%d", calc.ID), adminToken)
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Detail: school.ErrProtected.Error()}),
		}, rec)
	})
}

func Test_schoolApi_campusesAndSubjects(t *testing.T) {
	app := setup(t)
	admin := app.createAdmin(t, "admin@unb.br")
	token := getToken(t, admin, app.conf)

	req, rec := newAuthRequest(http.MethodPost, "/api/campuses", token, []byte(`{"name": "  Gama "}`))
	app.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var campus school.Campus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &campus))
	assert.Equal(t, "Gama", campus.Name)
	_, err := app.schoolRepo.GetCampus(context.Background(), campus.ID)
	require.NoError(t, err)

	req, rec = newAuthRequest(http.MethodPost, "/api/campuses", token, []byte(`{"name": ""}`))
	app.serve(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "this field is required"}`)}, rec)

	course := app.createCourse(t, "Software", campus)

	tests := []httpTest{
		{
			name:     "subject with invalid course",
			method:   http.MethodPost,
			path:     "/api/subjects",
			body:     []byte(`{"name": "GPP", "course": 9999}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"course": "invalid pk \"9999\" - object does not exist"}`),
		},
		{
			name:     "subject",
			method:   http.MethodPost,
			path:     "/api/subjects",
			body:     marchallObj(t, school.NewSubject{Name: "GPP", CourseID: course.ID}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "protected campus",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/campuses/%d", campus.ID),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Detail: school.ErrProtected.Error()}),
		},
		{
			name:     "unknown campus",
			method:   http.MethodPut,
			path:     "/api/campuses/9999",
			body:     []byte(`{"name": "lol"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Detail: school.ErrCampusNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec = newRequest(http.MethodGet, fmt.Sprintf("/api/subjects?course=%d", course.ID))
	app.serve(req, rec)
	var subjects []school.Subject
	p := unmarshalPage(t, rec, &subjects)
	assert.Equal(t, 1, p.Count)
	assert.Equal(t, "GPP", subjects[0].Name)
}
