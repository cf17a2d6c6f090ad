package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticToken(tok string) func() (string, error) {
	return func() (string, error) { return tok, nil }
}

func TestRequestCarriesTokenCookieAndRequestID(t *testing.T) {
	var gotCookie, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("token"); err == nil {
			gotCookie = c.Value
		}
		gotReqID = r.Header.Get("X-Request-ID")
		_ = json.NewEncoder(w).Encode([]Job{})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("sk-secret"), Options{})
	_, err := c.ListJobs(context.Background(), TypeEnrichment)
	require.NoError(t, err)

	assert.Equal(t, "sk-secret", gotCookie)
	assert.NotEmpty(t, gotReqID)
}

func TestListJobsFiltersByType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		_ = json.NewEncoder(w).Encode([]Job{
			{ID: "j1", Status: StatusCompleted, JobType: TypeVerification},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"), Options{})
	jobs, err := c.ListJobs(context.Background(), TypeVerification)
	require.NoError(t, err)

	assert.Equal(t, "verification", gotType)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].ID)
}

func TestBackendMessageExtracted(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"insufficient credits"}`, "insufficient credits"},
		{"detail fallback", `{"detail":"job not found"}`, "job not found"},
		{"non-json body", `<html>nope</html>`, "request failed, please try again"},
		{"empty body", ``, "request failed, please try again"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL, staticToken("t"), Options{})
			err := c.DeleteJob(context.Background(), "j1")

			var aerr *APIError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, http.StatusBadRequest, aerr.StatusCode)
			assert.Equal(t, tc.want, aerr.Message)
		})
	}
}

func TestStreamURLCarriesTokenQueryParam(t *testing.T) {
	c := New("https://api.example.com/", staticToken("s3cret/+="), Options{})
	u, err := c.StreamURL("job 1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/jobs/job%201/progress?token=s3cret%2F%2B%3D", u)
}

func TestStreamURLPropagatesTokenError(t *testing.T) {
	c := New("https://api.example.com", func() (string, error) {
		return "", errors.New("keyring locked")
	}, Options{})
	_, err := c.StreamURL("j1")
	require.Error(t, err)
}

func TestCancelJobHitsCancelRoute(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"), Options{})
	require.NoError(t, c.CancelJob(context.Background(), "j9"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/jobs/j9/cancel", gotPath)
}

func TestUpdateMePatchesCatchallKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users/me", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(User{ID: "u1", CatchallAPIKey: body["catchall_api_key"]})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"), Options{})
	u, err := c.UpdateMe(context.Background(), "ck-123")
	require.NoError(t, err)
	assert.Equal(t, "ck-123", u.CatchallAPIKey)
}

func TestRateLimiterHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Job{})
	}))
	defer srv.Close()

	// burst 1, then the second call has to wait ~1s; a cancelled context
	// must abort that wait instead of blocking
	c := New(srv.URL, staticToken("t"), Options{RatePerSec: 1, Burst: 1})
	_, err := c.ListJobs(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.ListJobs(ctx, "")
	require.Error(t, err)
}
