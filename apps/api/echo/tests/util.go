package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/mentorbro/apps/api/echo"
	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/services/email"
	"github.com/trezcool/mentorbro/storage/database/inmem"
	"github.com/trezcool/mentorbro/tests"
)

const groupRecipient = "120363417698652224@g.us"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app       *Server
	conf      *core.Config
	reviews   review.Repository
	tasks     program.Repository
	dir       directory.Repository
	transport *notify.Recorder

	program  directory.Program
	student  directory.Student
	other    directory.Student
	reviewer directory.Reviewer
	week1    program.Task
	week2    program.Task

	adminToken    string
	studentToken  string
	reviewerToken string
}

func setup(t *testing.T) *env {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	// set up DB & repos
	db := inmemdb.Open()
	e := &env{
		conf:      conf,
		reviews:   inmemdb.NewReviewRepository(db),
		tasks:     inmemdb.NewTaskRepository(db),
		dir:       inmemdb.NewDirectoryRepository(db),
		transport: notify.NewRecorder(),
	}

	// set up services
	configSvc := sysconfig.NewService(inmemdb.NewConfigRepository(db), validate)
	reviewSvc := review.NewServiceMock(review.Deps{
		Repo:           e.reviews,
		Tasks:          e.tasks,
		Directory:      e.dir,
		Settings:       configSvc,
		Transport:      e.transport,
		Mailer:         emailsvc.NewConsoleServiceMock(conf),
		Logger:         logger,
		Validate:       validate,
		GroupRecipient: groupRecipient,
	})

	// set up server
	e.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Translator:     translator,
		ReviewSvc:      reviewSvc,
		TaskSvc:        program.NewService(e.tasks, validate),
		ConfigSvc:      configSvc,
		Transport:      e.transport,
		DisableReqLogs: true,
	})

	// seed
	e.program = testutil.CreateProgram(t, e.dir, "MERN", 24)
	e.student = testutil.CreateStudent(t, e.dir, "Asha", "asha@mail.test", "9876543210", e.program.ID)
	e.other = testutil.CreateStudent(t, e.dir, "Kiran", "kiran@mail.test", "9123456780", e.program.ID)
	e.reviewer = testutil.CreateReviewer(t, e.dir, "Ravi Kumar", "ravi")
	e.week1 = testutil.CreateProgramTask(t, e.tasks, e.program.ID, 1, 500, 150, "HTML", "CSS")
	e.week2 = testutil.CreateProgramTask(t, e.tasks, e.program.ID, 2, 600, 0)

	e.adminToken = getToken(t, conf, "admin-1", RoleAdmin)
	e.studentToken = getToken(t, conf, e.student.ID, RoleStudent)
	e.reviewerToken = getToken(t, conf, e.reviewer.ID, RoleReviewer)
	return e
}

func (e *env) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, subject, role string) string {
	token, err := GenerateToken(conf, NewClaims(conf, subject, role))
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

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshallObj() failed: %v; body %s", err, rec.Body.String())
	}
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
	return false, nil
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

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func assertCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	assert.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}
