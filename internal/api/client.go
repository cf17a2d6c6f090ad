package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client talks to the remote leadlift backend. All business logic (email
// permutation, SMTP/MX checks, scraping, billing) lives behind this API; the
// engine only orchestrates.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter

	// Token returns the current backend auth token. Read per request so a
	// token set via the keyring mid-session takes effect without a restart.
	Token func() (string, error)
}

type Options struct {
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

func New(baseURL string, token func() (string, error), opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		Token:   token,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// StreamURL builds the SSE endpoint for a job. The token travels as a query
// parameter here (the only place it leaves the keyring as a literal string);
// everywhere else it rides the `token` cookie.
func (c *Client) StreamURL(jobID string) (string, error) {
	tok, err := c.Token()
	if err != nil {
		return "", err
	}
	return c.baseURL + "/jobs/" + url.PathEscape(jobID) + "/progress?token=" + url.QueryEscape(tok), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	tok, err := c.Token()
	if err != nil {
		return fmt.Errorf("auth token: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "token", Value: tok})

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListJobs fetches the job list for one job type.
func (c *Client) ListJobs(ctx context.Context, typ JobType) ([]Job, error) {
	var jobs []Job
	path := "/jobs"
	if typ != "" {
		path += "?type=" + url.QueryEscape(string(typ))
	}
	if err := c.do(ctx, http.MethodGet, path, nil, "", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, "", nil)
}

func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/cancel", nil, "", nil)
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, "", &u)
	return u, err
}

// UpdateMe patches account settings. Only the catchall verifier key is
// writable today.
func (c *Client) UpdateMe(ctx context.Context, catchallAPIKey string) (User, error) {
	b, _ := json.Marshal(map[string]string{"catchall_api_key": catchallAPIKey})
	var u User
	err := c.do(ctx, http.MethodPatch, "/users/me", bytes.NewReader(b), "application/json", &u)
	return u, err
}

type uploadResponse struct {
	JobID string `json:"job_id"`
}

// Upload posts a multipart lead file plus column-mapping fields and returns
// the new job id. verify selects /upload-verify over /upload.
func (c *Client) Upload(ctx context.Context, verify bool, filename string, file io.Reader, fields map[string]string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", fmt.Errorf("buffer upload: %w", err)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	path := "/upload"
	if verify {
		path = "/upload-verify"
	}
	var out uploadResponse
	if err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}
