package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	echoapi "github.com/trezcool/stage/apps/api/echo"
	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
	emailsvc "github.com/trezcool/stage/services/email"
	logsvc "github.com/trezcool/stage/services/logger"
	inmemdb "github.com/trezcool/stage/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*echoapi.Server
	conf    *core.Config
	db      *inmemdb.DB
	usrRepo user.Repository
	cvRepo  curriculum.Repository
	offRepo offer.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:         "Stage",
		Env:             "TEST",
		TestMode:        true,
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			MaxUploadSize:             1 << 20,
		},
		Email: core.EmailConfig{DefaultFrom: "Stage <noreply@stage.test>"},
	}
}

// setup returns a server backed by in-memory repositories.
func setup(t *testing.T) *testApp {
	t.Helper()

	conf := testConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	cvRepo := inmemdb.NewCurriculumRepository(db)
	offRepo := inmemdb.NewOfferRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)
	usrSvc := user.NewService(usrRepo)
	cvSvc := curriculum.NewService(cvRepo, usrSvc, mailSvc, logger)

	srv := echoapi.NewServer(&echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		CurriculumSvc: cvSvc,
		OfferSvc:      offer.NewService(offRepo, cvSvc, usrSvc, mailSvc, logger),
	}, true /* disableReqLogs */)

	return &testApp{
		Server:  srv,
		conf:    conf,
		db:      db,
		usrRepo: usrRepo,
		cvRepo:  cvRepo,
		offRepo: offRepo,
		mailSvc: mailSvc,
	}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (app *testApp) run(t *testing.T, tt httpTest) {
	t.Run(tt.name, func(t *testing.T) {
		req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// withoutData strips the document, as listings & metadata endpoints do.
func withoutData(cvs ...curriculum.Curriculum) []interface{} {
	objs := make([]interface{}, 0, len(cvs))
	for _, cv := range cvs {
		cv.Data = nil
		objs = append(objs, cv)
	}
	return objs
}
