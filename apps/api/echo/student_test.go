package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/unbfeelings/backend/apps/api/echo"
	"github.com/unbfeelings/backend/core/user"
	"github.com/unbfeelings/backend/services/email"
)

func Test_studentApi_signUp(t *testing.T) {
	app := setup(t)
	course := app.createCourse(t, "Software", app.createCampus(t, "Gama"))

	tests := []httpTest{
		{
			name:     "required fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required", "course": "this field is required"}`),
		},
		{
			name:     "weak password",
			body:     []byte(fmt.Sprintf(`{"email": "joana@unb.br", "password": "12345678901", "course": %d}`, course.ID)),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "password cannot be entirely numeric"}`),
		},
		{
			name:     "unknown course",
			body:     []byte(fmt.Sprintf(`{"email": "joana@unb.br", "password": %q, "course": 9999}`, testPassword)),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"course": "invalid pk \"9999\" - object does not exist"}`),
		},
		{
			name:     "success",
			body:     []byte(fmt.Sprintf(`{"email": " Joana@unb.br", "name": "Joana", "password": %q, "course": %d}`, testPassword, course.ID)),
			wantCode: http.StatusCreated,
		},
		{
			name:     "email taken",
			body:     []byte(fmt.Sprintf(`{"email": "joana@unb.br", "password": %q, "course": %d}`, testPassword, course.ID)),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/students/", tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var resp echoapi.StudentResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "joana@unb.br", resp.Email)
				assert.Equal(t, course, resp.Course)
				assert.NotContains(t, rec.Body.String(), "password")

				require.Len(t, emailsvc.SentMessages, 1)
				assert.Equal(t, "joana@unb.br", emailsvc.SentMessages[0].To[0].Address)
			}
		})
	}
}

func Test_studentApi_listAndRetrieve(t *testing.T) {
	app := setup(t)
	gama := app.createCampus(t, "Gama")
	software := app.createCourse(t, "Software", gama)
	aero := app.createCourse(t, "Aerospace", gama)
	joana := app.createStudent(t, "joana@unb.br", software)
	pedro := app.createStudent(t, "pedro@unb.br", aero)

	req, rec := newRequest(http.MethodGet, "/api/students?ordering=-email")
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	var students []echoapi.StudentResponse
	p := unmarshalPage(t, rec, &students)
	assert.Equal(t, 2, p.Count)
	require.Len(t, students, 2)
	assert.Equal(t, pedro.ID, students[0].ID)
	assert.Equal(t, aero, students[0].Course)
	assert.Equal(t, software, students[1].Course)

	req, rec = newRequest(http.MethodGet, "/api/students?search=JOANA")
	app.serve(req, rec)
	p = unmarshalPage(t, rec, &students)
	assert.Equal(t, 1, p.Count)

	tests := []httpTest{
		{name: "found", path: fmt.Sprintf("/api/students/%d", joana.ID), wantCode: http.StatusOK},
		{name: "not found", path: "/api/students/9999", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Detail: user.ErrNotFound.Error()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_update(t *testing.T) {
	app := setup(t)
	course := app.createCourse(t, "Software", app.createCampus(t, "Gama"))
	joana := app.createStudent(t, "joana@unb.br", course)
	pedro := app.createStudent(t, "pedro@unb.br", course)
	admin := app.createAdmin(t, "admin@unb.br")

	joanaPath := fmt.Sprintf("/api/students/%d", joana.ID)
	joanaToken := getToken(t, joana.User, app.conf)

	tests := []httpTest{
		{name: "no token", method: http.MethodPatch, path: joanaPath, body: []byte(`{"name": "Joana"}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "other student", method: http.MethodPatch, path: joanaPath, body: []byte(`{"name": "Joana"}`), token: getToken(t, pedro.User, app.conf), wantCode: http.StatusForbidden},
		{name: "unknown student", method: http.MethodPatch, path: "/api/students/9999", body: []byte(`{"name": "Joana"}`), token: joanaToken, wantCode: http.StatusNotFound},
		{name: "full update", method: http.MethodPut, path: joanaPath, body: []byte(`{"name": "Joana"}`), token: joanaToken, wantCode: http.StatusBadRequest},
		{name: "self", method: http.MethodPatch, path: joanaPath, body: []byte(`{"name": "Joana Silva", "is_active": false}`), token: joanaToken, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	st, err := app.userRepo.GetStudent(context.Background(), joana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Joana Silva", st.Name)
	assert.True(t, st.IsActive, "only admins deactivate accounts")

	req, rec := newAuthRequest(http.MethodPatch, joanaPath, getToken(t, admin, app.conf), []byte(`{"is_active": false}`))
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st, err = app.userRepo.GetStudent(context.Background(), joana.ID)
	require.NoError(t, err)
	assert.False(t, st.IsActive)

	// deactivated users are locked out
	req, rec = newAuthRequest(http.MethodDelete, joanaPath, joanaToken)
	app.serve(req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_studentApi_destroy(t *testing.T) {
	app := setup(t)
	course := app.createCourse(t, "Software", app.createCampus(t, "Gama"))
	joana := app.createStudent(t, "joana@unb.br", course)

	req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/api/students/%d/", joana.ID), getToken(t, joana.User, app.conf))
	app.serve(req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := app.userRepo.GetUser(context.Background(), user.GetFilter{ID: joana.ID})
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_studentApi_anonymousName(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/api/students/anonymous_name/")
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp echoapi.AnonymousNameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AnonymousName)
}

func Test_studentApi_blocks(t *testing.T) {
	app := setup(t)
	course := app.createCourse(t, "Software", app.createCampus(t, "Gama"))
	joana := app.createStudent(t, "joana@unb.br", course)
	pedro := app.createStudent(t, "pedro@unb.br", course)
	maria := app.createStudent(t, "maria@unb.br", course)
	joanaToken := getToken(t, joana.User, app.conf)

	tests := []httpTest{
		{name: "no token", body: marchallObj(t, user.NewBlock{BlockedID: pedro.ID}), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "self block", body: marchallObj(t, user.NewBlock{BlockedID: joana.ID}), token: joanaToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"blocked": user.ErrSelfBlock.Error()})},
		{name: "missing blocked", body: []byte(`{}`), token: joanaToken, wantCode: http.StatusBadRequest, wantData: []byte(`{"blocked": "this field is required"}`)},
		{name: "success", body: marchallObj(t, user.NewBlock{BlockedID: pedro.ID}), token: joanaToken, wantCode: http.StatusCreated},
		{name: "duplicate", body: marchallObj(t, user.NewBlock{BlockedID: pedro.ID}), token: joanaToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"blocked": user.ErrAlreadyBlocked.Error()})},
	}
	var blk user.Block
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/blocks/", tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode == http.StatusCreated {
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blk))
				assert.Equal(t, joana.ID, blk.BlockerID)
				assert.Equal(t, pedro.ID, blk.BlockedID)
			}
		})
	}
	require.NotZero(t, blk.ID)

	t.Run("list blocked", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/students/blocks/")
		app.serve(req, rec)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/students/blocks/", joanaToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		var students []echoapi.StudentResponse
		p := unmarshalPage(t, rec, &students)
		assert.Equal(t, 1, p.Count)
		assert.Equal(t, pedro.ID, students[0].ID)
		assert.Equal(t, course, students[0].Course)

		path := fmt.Sprintf("/api/students/%d/blocks/", joana.ID)
		req, rec = newAuthRequest(http.MethodGet, path, getToken(t, maria.User, app.conf))
		app.serve(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, path, joanaToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		p = unmarshalPage(t, rec, &students)
		assert.Equal(t, 1, p.Count)
		assert.Equal(t, pedro.ID, students[0].ID)
	})

	t.Run("unblock", func(t *testing.T) {
		path := fmt.Sprintf("/api/blocks/%d/", blk.ID)

		req, rec := newAuthRequest(http.MethodDelete, path, getToken(t, maria.User, app.conf))
		app.serve(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, path, joanaToken)
		app.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, path, joanaToken)
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Detail: user.ErrBlockNotFound.Error()})}, rec)
	})
}
