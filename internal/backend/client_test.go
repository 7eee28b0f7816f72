package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"hackathon-gateway/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type terminatorSpy struct {
	calls atomic.Int32
	last  Termination
}

func (s *terminatorSpy) Terminate(ctx context.Context, t Termination) {
	s.calls.Add(1)
	s.last = t
}

func sessionCtx(token string) context.Context {
	return auth.WithSession(context.Background(), auth.Session{ID: "sess-1", AccessToken: token})
}

func TestDo_AttachesBearerAndDropsCallerAuthorization(t *testing.T) {
	var gotAuth, gotCustom, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Trace")
		gotCookie = r.Header.Get("Cookie")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	h := http.Header{}
	h.Set("Authorization", "Bearer forged")
	h.Set("X-Trace", "t-1")
	h.Set("Cookie", "hg_session=x")

	resp, err := c.Do(sessionCtx("abc"), Request{Path: "/hackathons", Header: h})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "t-1", gotCustom)
	assert.Empty(t, gotCookie)
}

func TestDo_NoTokenSendsNoAuthorization(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	h := http.Header{}
	h.Set("Authorization", "Bearer forged")
	_, err := c.Do(context.Background(), Request{Path: "/hackathons", Header: h})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestDo_EmptyBaseURL(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.Do(context.Background(), Request{Path: "/ping/"})
	assert.ErrorIs(t, err, ErrBaseURLNotConfigured)
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: url})
	_, err := c.Do(context.Background(), Request{Path: "/ping/"})
	var te *TransportError
	require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
	assert.Equal(t, "/ping/", te.Path)
}

func TestResponseErr_ExtractsDetail(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Hackathon not found"}`, "Hackathon not found"},
		{"structured detail", `{"detail":[{"loc":["body"],"msg":"bad"}]}`, `[{"loc":["body"],"msg":"bad"}]`},
		{"no detail", `oops`, "HTTP 404"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := (&Response{Status: 404, Body: []byte(tc.body)}).Err()
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 404, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Detail)
		})
	}
	assert.NoError(t, (&Response{Status: 204}).Err())
}

func unauthorizedServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
	}))
}

func TestInterceptor_AuthCheck401OnPrivatePageTerminatesOnce(t *testing.T) {
	srv := unauthorizedServer()
	defer srv.Close()
	spy := &terminatorSpy{}
	c := NewClient(Options{BaseURL: srv.URL, Terminator: spy})

	ctx := WithCurrentPage(sessionCtx("abc"), "/dashboard")
	resp, err := c.Do(ctx, Request{Path: "/users/me"})
	require.NoError(t, err)

	assert.True(t, resp.Terminated)
	assert.Equal(t, int32(1), spy.calls.Load())
	assert.Equal(t, Termination{SessionID: "sess-1", Path: "/users/me", Reason: ReasonAPIUnauthorized}, spy.last)
}

func TestInterceptor_LeavesOther401sAlone(t *testing.T) {
	srv := unauthorizedServer()
	defer srv.Close()

	cases := []struct {
		name string
		page string
		path string
	}{
		{"sign-in page", "/auth/signin", "/users/me"},
		{"register page", "/auth/register", "/ping/"},
		{"error page", "/auth/error", "/users/me"},
		{"resource 401", "/dashboard", "/hackathons/7/teams"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spy := &terminatorSpy{}
			c := NewClient(Options{BaseURL: srv.URL, Terminator: spy})

			resp, err := c.Do(WithCurrentPage(sessionCtx("abc"), tc.page), Request{Path: tc.path})
			require.NoError(t, err)
			assert.False(t, resp.Terminated)
			assert.Equal(t, http.StatusUnauthorized, resp.Status)
			assert.Zero(t, spy.calls.Load())
		})
	}
}

func TestInterceptor_ExplicitTokenIsNeverIntercepted(t *testing.T) {
	srv := unauthorizedServer()
	defer srv.Close()
	spy := &terminatorSpy{}
	c := NewClient(Options{BaseURL: srv.URL, Terminator: spy})

	status, err := c.PingWithToken(sessionCtx("abc"), "other")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Zero(t, spy.calls.Load())
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") == "a@b.c" && r.PostForm.Get("password") == "pw" {
			_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"bearer"}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := NewClient(Options{BaseURL: srv.URL})

	token, err := c.Login(sessionCtx("stale"), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = c.Login(context.Background(), "a@b.c", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_MissingTokenIsInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":1,"email":"a@b.c","full_name":"","roles":["participant"],"is_active":true}`)
	}))
	defer srv.Close()

	p, err := NewClient(Options{BaseURL: srv.URL}).ProfileWithToken(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, []string{"participant"}, p.Roles)
	assert.Equal(t, "a@b.c", p.DisplayName())
}

func TestIsPublicAuthPage(t *testing.T) {
	assert.True(t, IsPublicAuthPage("/auth/signin"))
	assert.True(t, IsPublicAuthPage("/auth/error?error=Forbidden"))
	assert.False(t, IsPublicAuthPage("/auth/signinx"))
	assert.False(t, IsPublicAuthPage(""))
}
