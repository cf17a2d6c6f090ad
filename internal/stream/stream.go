package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"leadlift-engine/internal/api"
)

// Client consumes one job's progress stream (server-sent events). On
// transport failure it reconnects with linear backoff: attempt N waits
// N × Delay, capped at MaxAttempts; a successfully parsed message resets the
// attempt counter. After the last failed attempt the stream closes for good
// and OnClosed fires.
//
// One Client tracks one job. Switching jobs means Close() and a new Client.
type Client struct {
	url   string
	httpc *http.Client

	onMessage func(api.JobProgress)
	onError   func(error)
	onClosed  func()

	maxAttempts int
	delay       time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

type Options struct {
	// MaxAttempts caps reconnections (default 5).
	MaxAttempts int
	// Delay is the backoff unit: attempt N waits N × Delay (default 1s).
	Delay time.Duration

	OnMessage func(api.JobProgress)
	OnError   func(error)
	// OnClosed fires exactly once when the stream shuts down permanently
	// after exhausting reconnection attempts. Not fired on Close().
	OnClosed func()
}

func New(url string, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}
	c := &Client{
		url:         url,
		httpc:       &http.Client{}, // no timeout: this is a standing connection
		onMessage:   opts.OnMessage,
		onError:     opts.OnError,
		onClosed:    opts.OnClosed,
		maxAttempts: opts.MaxAttempts,
		delay:       opts.Delay,
		done:        make(chan struct{}),
	}
	return c
}

// Start begins consuming in a background goroutine. Calling it twice is a
// no-op.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
}

// Close tears the connection down immediately. No drain, no OnClosed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Done is closed once the run loop has exited, however it ended.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		err := c.consume(ctx, &attempt)
		if ctx.Err() != nil {
			return
		}
		if c.onError != nil {
			c.onError(err)
		}

		attempt++
		if attempt > c.maxAttempts {
			log.Printf("[stream] giving up after %d attempts url=%s", c.maxAttempts, redactToken(c.url))
			if c.onClosed != nil {
				c.onClosed()
			}
			return
		}

		// Linear backoff: 1×, 2×, ... maxAttempts×.
		wait := time.Duration(attempt) * c.delay
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// consume opens the connection and dispatches events until the transport
// fails. Resets *attempt to zero on every successfully parsed message.
func (c *Client) consume(ctx context.Context, attempt *int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream connect: status %s", resp.Status)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			// event boundary
			if data.Len() > 0 {
				c.dispatch(data.String(), attempt)
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:/id:/retry: and comments are irrelevant here
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return errors.New("stream closed by server")
}

func (c *Client) dispatch(payload string, attempt *int) {
	var p api.JobProgress
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		// Malformed payloads are dropped; the connection stays up.
		log.Printf("[stream] drop malformed event: %v", err)
		return
	}
	*attempt = 0
	if p.JobID == "" {
		// keepalive/ping envelope, nothing to merge
		return
	}
	if c.onMessage != nil {
		c.onMessage(p)
	}
}

// redactToken keeps auth tokens out of the log line.
func redactToken(u string) string {
	if i := strings.Index(u, "token="); i >= 0 {
		return u[:i] + "token=..."
	}
	return u
}
