package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
	"github.com/trezcool/stage/core/user"
	testutil "github.com/trezcool/stage/tests"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type offerFixtures struct {
	manager, acme, initech, hero, zero user.User
	heroCV                             curriculum.Curriculum
}

func (app *testApp) offerFixtures(t *testing.T) offerFixtures {
	t.Helper()
	var f offerFixtures
	f.manager = testutil.CreateUser(t, app.usrRepo, "Boss", "boss", "boss@stage.test", "", []string{user.RoleManager}, true)
	f.acme = testutil.CreateUser(t, app.usrRepo, "Acme", "acme", "jobs@acme.test", "", []string{user.RoleMonitor}, true)
	f.initech = testutil.CreateUser(t, app.usrRepo, "Initech", "initech", "jobs@initech.test", "", []string{user.RoleMonitor}, true)
	f.hero = testutil.CreateUser(t, app.usrRepo, "Hero", "hero", "hero@stage.test", "", []string{user.RoleStudent}, true)
	f.zero = testutil.CreateUser(t, app.usrRepo, "Zero", "zero", "zero@stage.test", "", []string{user.RoleStudent}, true)

	f.heroCV = testutil.CreateCurriculum(t, app.cvRepo, f.hero.ID, "hero.pdf", curriculum.Valid)
	require.NoError(t, app.cvRepo.SetPrincipalID(context.Background(), f.hero.ID, f.heroCV.ID))
	return f
}

func Test_offerAPI_create(t *testing.T) {
	app := setup(t)
	f := app.offerFixtures(t)
	body := []byte(`{"title": " Développeur Go ", "description": "Stage de 15 semaines.", "department": "Informatique", "address": "1 rue du Stage", "salary": 21.5}`)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/offers", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Monitor required", path: "/v1/offers", token: app.getToken(t, f.hero), body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Fields required", path: "/v1/offers", token: app.getToken(t, f.acme), body: []byte(`{"salary": -1}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":       "this field is required",
				"description": "this field is required",
				"department":  "this field is required",
				"address":     "this field is required",
				"salary":      "salary must be 0 or greater",
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		app.run(t, tt)
	}

	t.Run("Created", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/offers", app.getToken(t, f.acme), body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got offer.Offer
		decodeBody(t, rec, &got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, f.acme.ID, got.CreatorID)
		assert.Equal(t, "Développeur Go", got.Title)
		assert.Equal(t, 21.5, got.Salary)
		assert.Equal(t, curriculum.Pending, got.Validity)
	})

	t.Run("Creator is the context user", func(t *testing.T) {
		forged := []byte(`{"creator_id": "` + f.initech.ID + `", "title": "T", "description": "D", "department": "Informatique", "address": "A"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/offers", app.getToken(t, f.acme), forged)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got offer.Offer
		decodeBody(t, rec, &got)
		assert.Equal(t, f.acme.ID, got.CreatorID)
	})
}

func Test_offerAPI_query(t *testing.T) {
	app := setup(t)
	f := app.offerFixtures(t)
	now := time.Now()

	backend := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Backend", "Informatique", 20, curriculum.Valid, now.Add(-3*time.Hour))
	draft := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Analyste", "Comptabilité", 18, curriculum.Pending, now.Add(-2*time.Hour))
	consult := testutil.CreateOffer(t, app.offRepo, f.initech.ID, "Conseiller", "Informatique", 25, curriculum.Valid, now.Add(-time.Hour))
	rejected := testutil.CreateOffer(t, app.offRepo, f.initech.ID, "Ops", "Informatique", 15, curriculum.Invalid, now.Add(-time.Minute))
	managerToken := app.getToken(t, f.manager)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/offers", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Manager sees all", path: "/v1/offers", token: managerToken, wantCode: http.StatusOK, wantData: marchallList(t, backend, draft, consult, rejected)},
		{name: "Manager filters", path: "/v1/offers?validity=pending", token: managerToken, wantCode: http.StatusOK, wantData: marchallList(t, draft)},
		{name: "Monitor sees own", path: "/v1/offers", token: app.getToken(t, f.acme), wantCode: http.StatusOK, wantData: marchallList(t, backend, draft)},
		{
			name: "Monitor cannot see others", path: "/v1/offers?creator_id=" + f.initech.ID, token: app.getToken(t, f.acme),
			wantCode: http.StatusOK, wantData: marchallList(t, backend, draft),
		},
		{name: "Student sees valid", path: "/v1/offers", token: app.getToken(t, f.hero), wantCode: http.StatusOK, wantData: marchallList(t, backend, consult)},
		{
			name: "Student cannot see pending", path: "/v1/offers?validity=pending", token: app.getToken(t, f.hero),
			wantCode: http.StatusOK, wantData: marchallList(t, backend, consult),
		},
		{
			name: "department", path: "/v1/offers?department=comptabilit%C3%A9", token: managerToken,
			wantCode: http.StatusOK, wantData: marchallList(t, draft),
		},
		{
			name: "order by -salary", path: "/v1/offers?ordering=-salary", token: app.getToken(t, f.hero),
			wantCode: http.StatusOK, wantData: marchallList(t, consult, backend),
		},
		{
			name: "order by unknown field", path: "/v1/offers?ordering=address", token: managerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ordering": `cannot order by "address"`}),
		},
		{
			name: "validity invalid", path: "/v1/offers?validity=lol", token: managerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"validity": "must be one of: valid, invalid, pending"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		app.run(t, tt)
	}
}

func Test_offerAPI_detail(t *testing.T) {
	app := setup(t)
	f := app.offerFixtures(t)

	o := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Backend", "Informatique", 20, curriculum.Pending)
	path := "/v1/offers/" + o.ID
	managerToken := app.getToken(t, f.manager)

	validated := o
	validated.Validity = curriculum.Valid

	tests := []httpTest{
		{name: "Unknown ID", method: http.MethodGet, path: "/v1/offers/lol", token: managerToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "Pending hidden from students", method: http.MethodGet, path: path, token: app.getToken(t, f.hero), wantCode: http.StatusNotFound},
		{name: "Pending hidden from other monitors", method: http.MethodGet, path: path, token: app.getToken(t, f.initech), wantCode: http.StatusNotFound},
		{name: "Creator", method: http.MethodGet, path: path, token: app.getToken(t, f.acme), wantCode: http.StatusOK, wantData: marchallObj(t, o)},
		{
			name: "Manager required", method: http.MethodPost, path: path + "/validate", token: app.getToken(t, f.acme), body: []byte(`{"valid": true}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "valid required", method: http.MethodPost, path: path + "/validate", token: managerToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"valid": "this field is required"}),
		},
		{
			name: "validated", method: http.MethodPost, path: path + "/validate", token: managerToken, body: []byte(`{"valid": true}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, validated),
		},
		{
			name: "already treated", method: http.MethodPost, path: path + "/validate", token: managerToken, body: []byte(`{"valid": false}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: offer.ErrAlreadyTreated.Error()}),
		},
		{name: "Valid visible to students", method: http.MethodGet, path: path, token: app.getToken(t, f.hero), wantCode: http.StatusOK, wantData: marchallObj(t, validated)},
	}
	for _, tt := range tests {
		app.run(t, tt)
	}
}

func Test_offerAPI_apply(t *testing.T) {
	app := setup(t)
	f := app.offerFixtures(t)

	open := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Backend", "Informatique", 20, curriculum.Valid)
	pending := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Analyste", "Comptabilité", 18, curriculum.Pending)
	path := "/v1/offers/" + open.ID + "/apply"

	tests := []httpTest{
		{name: "Student required", path: path, token: app.getToken(t, f.manager), wantCode: http.StatusForbidden},
		{name: "Pending offer", path: "/v1/offers/" + pending.ID + "/apply", token: app.getToken(t, f.hero), wantCode: http.StatusNotFound},
		{
			name: "Principal curriculum required", path: path, token: app.getToken(t, f.zero),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: offer.ErrNoPrincipal.Error()}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		app.run(t, tt)
	}

	t.Run("Applied", func(t *testing.T) {
		app.mailSvc.Reset()
		req, rec := newAuthRequest(http.MethodPost, path, app.getToken(t, f.hero))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got offer.Application
		decodeBody(t, rec, &got)
		assert.Equal(t, open.ID, got.OfferID)
		assert.Equal(t, f.hero.ID, got.StudentID)
		assert.Equal(t, f.heroCV.ID, got.CurriculumID)
		assert.Equal(t, offer.StatusCVSent, got.Status)

		sent := app.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, f.acme.Email, sent[0].To[0].Address)
	})

	app.run(t, httpTest{
		name: "Already applied", method: http.MethodPost, path: path, token: app.getToken(t, f.hero),
		wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: offer.ErrAlreadyApplied.Error()}),
	})

	t.Run("Student applications", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/applications", app.getToken(t, f.hero))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got []offer.Application
		decodeBody(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, open.ID, got[0].OfferID)

		req, rec = newAuthRequest(http.MethodGet, "/v1/applications", app.getToken(t, f.zero))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func Test_offerAPI_applicants(t *testing.T) {
	app := setup(t)
	f := app.offerFixtures(t)

	backend := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Backend", "Informatique", 20, curriculum.Valid)
	application := testutil.CreateApplication(t, app.offRepo, backend.ID, f.hero.ID, f.heroCV.ID)

	tests := []struct {
		name     string
		token    string
		query    string
		wantCode int
		wantIDs  []string
	}{
		{name: "Auth required", wantCode: http.StatusUnauthorized},
		{name: "Monitor required", token: app.getToken(t, f.hero), wantCode: http.StatusForbidden},
		{name: "Offer creator", token: app.getToken(t, f.acme), wantCode: http.StatusOK, wantIDs: []string{application.ID}},
		{name: "Other monitor", token: app.getToken(t, f.initech), query: "?creator_id=" + f.acme.ID, wantCode: http.StatusOK, wantIDs: []string{}},
		{name: "Manager, all creators", token: app.getToken(t, f.manager), wantCode: http.StatusOK, wantIDs: []string{application.ID}},
		{name: "Manager, one creator", token: app.getToken(t, f.manager), query: "?creator_id=" + f.initech.ID, wantCode: http.StatusOK, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/applications/applicants"+tt.query, tt.token)
			app.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantIDs == nil {
				return
			}

			var got []offer.Applicant
			decodeBody(t, rec, &got)
			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.Application.ID)
				assert.Equal(t, "Backend", a.OfferTitle)
				assert.Equal(t, f.hero.ID, a.Student.ID)
				assert.Equal(t, f.heroCV.ID, a.Curriculum.ID)
				assert.Empty(t, a.Curriculum.Data)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func Test_offerAPI_interviewAndDecision(t *testing.T) {
	app := setup(t)
	f := app.offerFixtures(t)

	backend := testutil.CreateOffer(t, app.offRepo, f.acme.ID, "Backend", "Informatique", 20, curriculum.Valid)
	application := testutil.CreateApplication(t, app.offRepo, backend.ID, f.hero.ID, f.heroCV.ID)
	path := "/v1/applications/" + application.ID
	acmeToken := app.getToken(t, f.acme)

	date := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	dateBody := []byte(`{"date": "` + date.Format(time.RFC3339) + `"}`)
	pastBody := []byte(`{"date": "` + time.Now().Add(-time.Hour).UTC().Format(time.RFC3339) + `"}`)

	scheduled := application
	scheduled.Status = offer.StatusAwaitingReply
	scheduled.InterviewDate = &date
	accepted := scheduled
	accepted.Status = offer.StatusAccepted

	tests := []httpTest{
		{name: "Monitor required", method: http.MethodPut, path: path + "/interview", token: app.getToken(t, f.hero), body: dateBody, wantCode: http.StatusForbidden},
		{name: "Other monitor", method: http.MethodPut, path: path + "/interview", token: app.getToken(t, f.initech), body: dateBody, wantCode: http.StatusNotFound},
		{name: "Unknown application", method: http.MethodPut, path: "/v1/applications/lol/interview", token: acmeToken, body: dateBody, wantCode: http.StatusNotFound},
		{
			name: "date required", method: http.MethodPut, path: path + "/interview", token: acmeToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"date": "this field is required"}),
		},
		{
			name: "Past date", method: http.MethodPut, path: path + "/interview", token: acmeToken, body: pastBody,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: offer.ErrDateNotValid.Error()}),
		},
		{name: "Scheduled", method: http.MethodPut, path: path + "/interview", token: acmeToken, body: dateBody, wantCode: http.StatusOK, wantData: marchallObj(t, scheduled)},
		{
			name: "accepted required", method: http.MethodPut, path: path + "/decision", token: acmeToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"accepted": "this field is required"}),
		},
		{name: "Accepted", method: http.MethodPut, path: path + "/decision", token: acmeToken, body: []byte(`{"accepted": true}`), wantCode: http.StatusOK, wantData: marchallObj(t, accepted)},
		{
			name: "Already decided", method: http.MethodPut, path: path + "/decision", token: app.getToken(t, f.manager), body: []byte(`{"accepted": false}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: offer.ErrAlreadyDecided.Error()}),
		},
	}
	for _, tt := range tests {
		app.run(t, tt)
	}
}
