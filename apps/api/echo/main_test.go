package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/unbfeelings/backend/apps/api/echo"
	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/diagnosis"
	"github.com/unbfeelings/backend/core/post"
	"github.com/unbfeelings/backend/core/school"
	"github.com/unbfeelings/backend/core/user"
	"github.com/unbfeelings/backend/services/email"
	"github.com/unbfeelings/backend/services/logger"
	"github.com/unbfeelings/backend/storage/cache"
	"github.com/unbfeelings/backend/storage/database/inmem"
)

var errMissingToken = httpErr{Detail: "authentication credentials were not provided"}

type testApp struct {
	server     *echoapi.Server
	conf       *core.Config
	schoolRepo school.Repository
	userRepo   user.Repository
	postRepo   post.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		conf:       conf,
		schoolRepo: inmemdb.NewSchoolRepository(db),
		userRepo:   inmemdb.NewUserRepository(db),
		postRepo:   inmemdb.NewPostRepository(db),
	}

	// set up services
	emailsvc.ResetSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	diagSvc := diagnosis.NewService(app.postRepo, app.userRepo, app.schoolRepo, cache.NewMemoryCache(), logger, conf)

	// set up server
	app.server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        user.NewService(app.userRepo, app.schoolRepo, mailSvc, conf, diagSvc),
		SchoolSvc:      school.NewService(app.schoolRepo, diagSvc),
		PostSvc:        post.NewService(app.postRepo, app.schoolRepo, logger, diagSvc),
		DiagnosisSvc:   diagSvc,
		DisableReqLogs: true,
	})
	return app
}

func (app *testApp) createCampus(t *testing.T, name string) school.Campus {
	t.Helper()
	campus, err := app.schoolRepo.CreateCampus(context.Background(), school.Campus{Name: name})
	require.NoError(t, err)
	return campus
}

func (app *testApp) createCourse(t *testing.T, name string, campus school.Campus) school.Course {
	t.Helper()
	course, err := app.schoolRepo.CreateCourse(context.Background(), school.Course{Name: name, CampusID: campus.ID})
	require.NoError(t, err)
	return course
}

func (app *testApp) createSubject(t *testing.T, name string, course school.Course) school.Subject {
	t.Helper()
	subject, err := app.schoolRepo.CreateSubject(context.Background(), school.Subject{Name: name, CourseID: course.ID})
	require.NoError(t, err)
	return subject
}

func (app *testApp) createStudent(t *testing.T, email string, course school.Course) user.Student {
	t.Helper()
	st := user.Student{User: user.User{Email: email, IsActive: true}, CourseID: course.ID}
	require.NoError(t, st.SetPassword(testPassword))
	st, err := app.userRepo.CreateStudent(context.Background(), st)
	require.NoError(t, err)
	return st
}

func (app *testApp) createAdmin(t *testing.T, email string) user.User {
	t.Helper()
	usr := user.User{Email: email, IsActive: true, IsStaff: true}
	require.NoError(t, usr.SetPassword(testPassword))
	usr, err := app.userRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (app *testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	app.server.ServeHTTP(rec, req)
}

const testPassword = "Unb-F33lings!"

type httpErr struct {
	Detail string `json:"detail"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type page struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  json.RawMessage `json:"results"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User, conf *core.Config) string {
	claims := echoapi.GetUserClaims(usr, conf)
	token, err := echoapi.GenerateToken(claims, conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshalPage(t *testing.T, rec *httptest.ResponseRecorder, results interface{}) page {
	t.Helper()
	var p page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())
	if results != nil {
		require.NoError(t, json.Unmarshal(p.Results, results))
	}
	return p
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
