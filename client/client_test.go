package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core/curriculum"
)

// fakeAPI serves canned responses & records the requests it received.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]string
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*fakeAPI, *httptest.Server) {
	api := new(fakeAPI)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if r.Body != nil && r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		api.mu.Lock()
		api.requests = append(api.requests, r)
		api.bodies = append(api.bodies, body)
		api.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_GetStudentCurriculums(t *testing.T) {
	sc := curriculum.StudentCurriculums{
		CurriculumList: []curriculum.Curriculum{
			{ID: "a", Name: "a.pdf", Validity: curriculum.Invalid},
			{ID: "b", Name: "b.pdf", Validity: curriculum.Valid},
		},
	}
	sc.Principal = &sc.CurriculumList[1]

	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sc)
	})
	c := New(srv.URL+"/v1/", Session{UserID: "s1", Token: "tkn"}, srv.Client())

	got, err := c.GetStudentCurriculums(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, sc.CurriculumList, got.CurriculumList)
	require.NotNil(t, got.Principal)
	assert.Equal(t, "b", got.Principal.ID)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v1/students/s1/curriculums", req.URL.Path)
	assert.Equal(t, "Bearer tkn", req.Header.Get("Authorization"))
}

func TestClient_GetStudentCurriculums_error(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or malformed jwt"})
	})
	c := New(srv.URL+"/v1", Session{}, nil)

	_, err := c.GetStudentCurriculums(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "missing or malformed jwt")
}

func TestClient_SetPrincipalCurriculum(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    interface{}
		want    bool
		wantErr bool
	}{
		{name: "acknowledged", code: http.StatusOK, body: map[string]bool{"success": true}, want: true},
		{name: "not acknowledged", code: http.StatusOK, body: map[string]bool{"success": false}, want: false},
		{name: "refused", code: http.StatusBadRequest, body: map[string]string{"error": "only a valid curriculum can be principal"}, want: false},
		{name: "unknown curriculum", code: http.StatusNotFound, body: map[string]string{"error": "curriculum not found"}, want: false},
		{name: "server error", code: http.StatusInternalServerError, body: map[string]string{"error": "Internal Server Error"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.code, tt.body)
			})
			c := New(srv.URL+"/v1", Session{UserID: "s1", Token: "tkn"}, srv.Client())

			got, err := c.SetPrincipalCurriculum(context.Background(), "s1", "cv1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)

			require.Len(t, api.requests, 1)
			assert.Equal(t, http.MethodPut, api.requests[0].Method)
			assert.Equal(t, "/v1/students/s1/curriculums/principal", api.requests[0].URL.Path)
			assert.Equal(t, map[string]string{"curriculum_id": "cv1"}, api.bodies[0])
		})
	}
}

func TestClient_SetPrincipalCurriculum_transportError(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	c := New(srv.URL+"/v1", Session{Token: "tkn"}, srv.Client())
	srv.Close()

	ok, err := c.SetPrincipalCurriculum(context.Background(), "s1", "cv1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestClient_GetStudentCurriculums_canceled(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
			writeJSON(w, http.StatusOK, curriculum.StudentCurriculums{})
		}
	})
	c := New(srv.URL+"/v1", Session{Token: "tkn"}, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetStudentCurriculums(ctx, "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
}

func TestClient_DownloadCurriculum(t *testing.T) {
	doc := []byte("%PDF-1.4\n\x00\xff binary")
	api, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(doc)
	})
	c := New(srv.URL+"/v1", Session{Token: "tkn"}, srv.Client())

	got, err := c.DownloadCurriculum(context.Background(), "cv1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
	assert.Equal(t, "/v1/curriculums/cv1/download", api.requests[0].URL.Path)
}

func TestLogin(t *testing.T) {
	_, srv := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/users/login":
			writeJSON(w, http.StatusOK, map[string]string{"token": "tkn"})
		case "/v1/users/me":
			if r.Header.Get("Authorization") != "Bearer tkn" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not authenticated"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"id": "s1", "username": "hero"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sess, err := Login(context.Background(), srv.URL+"/v1", "hero", "pwd", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "s1", Token: "tkn"}, sess)
}
