// Package client talks to the curricula REST API on behalf of a logged in user.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/user"
)

// Session identifies the logged in user. It is passed explicitly to the clients that need it.
type Session struct {
	UserID string
	Token  string
}

func (s Session) IsZero() bool {
	return s.Token == ""
}

// APIError is returned for unexpected HTTP statuses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.StatusCode == code
}

type Client struct {
	baseURL string
	session Session
	rest    *rest.Client
}

var _ curriculum.PrincipalAssigner = (*Client)(nil)

// New returns a Client for the API at baseURL (eg. "http://localhost:8000/v1").
// httpClient may be nil.
func New(baseURL string, session Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		session: session,
		rest:    &rest.Client{HTTPClient: httpClient},
	}
}

func (c *Client) Session() Session {
	return c.session
}

func (c *Client) request(method rest.Method, path string, body interface{}) (rest.Request, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if !c.session.IsZero() {
		req.Headers["Authorization"] = "Bearer " + c.session.Token
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return req, errors.Wrap(err, "encoding request body")
		}
		req.Body = data
		req.Headers["Content-Type"] = "application/json"
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	hreq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s %s", req.Method, req.BaseURL)
	}
	hres, err := c.rest.MakeRequest(hreq.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	res, err := rest.BuildResponse(hres)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s %s", req.Method, req.BaseURL)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return res, newAPIError(res)
	}
	return res, nil
}

func newAPIError(res *rest.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(res.Body), &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(res.Body)
	}
	return apiErr
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, body, out interface{}) error {
	req, err := c.request(method, path, body)
	if err != nil {
		return err
	}
	res, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out != nil {
		if err = json.Unmarshal([]byte(res.Body), out); err != nil {
			return errors.Wrap(err, "decoding response body")
		}
	}
	return nil
}

// Login authenticates against the API and returns the matching Session.
func Login(ctx context.Context, baseURL, username, password string, httpClient *http.Client) (Session, error) {
	anon := New(baseURL, Session{}, httpClient)

	var token struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"username": username, "password": password}
	if err := anon.do(ctx, rest.Post, "/users/login", creds, &token); err != nil {
		return Session{}, errors.Wrap(err, "logging in")
	}

	me, err := New(baseURL, Session{Token: token.Token}, httpClient).Me(ctx)
	if err != nil {
		return Session{}, errors.Wrap(err, "getting current user")
	}
	return Session{UserID: me.ID, Token: token.Token}, nil
}

func (c *Client) Me(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Get, "/users/me", nil, &usr)
	return usr, err
}

// GetStudentCurriculums fetches the curricula of a student, along with their principal one.
func (c *Client) GetStudentCurriculums(ctx context.Context, studentID string) (curriculum.StudentCurriculums, error) {
	var sc curriculum.StudentCurriculums
	err := c.do(ctx, rest.Get, "/students/"+url.PathEscape(studentID)+"/curriculums", nil, &sc)
	return sc, err
}

// SetPrincipalCurriculum asks the API to mark a curriculum as the principal one.
// A refusal (400, 404) is reported as false with a nil error.
func (c *Client) SetPrincipalCurriculum(ctx context.Context, studentID, curriculumID string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	path := "/students/" + url.PathEscape(studentID) + "/curriculums/principal"
	err := c.do(ctx, rest.Put, path, map[string]string{"curriculum_id": curriculumID}, &resp)
	if err != nil {
		if IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	return resp.Success, nil
}

// DownloadCurriculum fetches the document of a curriculum.
func (c *Client) DownloadCurriculum(ctx context.Context, curriculumID string) ([]byte, error) {
	req, err := c.request(rest.Get, "/curriculums/"+url.PathEscape(curriculumID)+"/download", nil)
	if err != nil {
		return nil, err
	}
	req.Headers["Accept"] = "application/pdf"
	res, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return []byte(res.Body), nil
}
