package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlift-engine/internal/api"
)

const testDelay = 2 * time.Millisecond

func waitDone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish in time")
	}
}

func sse(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

func TestMessagesDispatched(t *testing.T) {
	var conns atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) > 1 {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, `{"job_id":"j1","processed_leads":10,"total_leads":100,"status":"processing","progress_percentage":10}`)
		sse(w, `{"job_id":"j1","processed_leads":20,"total_leads":100,"status":"processing","progress_percentage":20}`)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []api.JobProgress
	c := New(srv.URL, Options{
		MaxAttempts: 1,
		Delay:       testDelay,
		OnMessage: func(p api.JobProgress) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		},
	})
	c.Start()
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].ProcessedLeads)
	assert.Equal(t, 20, got[1].ProcessedLeads)
	assert.Equal(t, api.StatusProcessing, got[1].Status)
}

func TestMalformedPayloadDroppedWithoutTeardown(t *testing.T) {
	var conns atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) > 1 {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, `{not json at all`)
		sse(w, `{"job_id":"j1","processed_leads":5}`)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []api.JobProgress
	c := New(srv.URL, Options{
		MaxAttempts: 1,
		Delay:       testDelay,
		OnMessage: func(p api.JobProgress) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		},
	})
	c.Start()
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	// the malformed event was dropped, the good one after it still arrived
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].ProcessedLeads)
}

func TestReconnectCappedAtMaxAttempts(t *testing.T) {
	var conns atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conns.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var errs atomic.Int64
	var closed atomic.Int64
	c := New(srv.URL, Options{
		MaxAttempts: 3,
		Delay:       testDelay,
		OnError:     func(error) { errs.Add(1) },
		OnClosed:    func() { closed.Add(1) },
	})
	c.Start()
	waitDone(t, c)

	// initial connection + 3 reconnect attempts, then permanent closure
	assert.Equal(t, int64(4), conns.Load())
	assert.Equal(t, int64(4), errs.Load())
	assert.Equal(t, int64(1), closed.Load())
}

func TestSuccessfulMessageResetsAttemptCounter(t *testing.T) {
	var conns atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		if n == 2 {
			// second connection delivers a message, then drops
			w.Header().Set("Content-Type", "text/event-stream")
			sse(w, `{"job_id":"j1","processed_leads":1}`)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var closed atomic.Int64
	c := New(srv.URL, Options{
		MaxAttempts: 2,
		Delay:       testDelay,
		OnClosed:    func() { closed.Add(1) },
	})
	c.Start()
	waitDone(t, c)

	// conn1 fails (attempt 1), conn2 delivers a message (counter back to 0)
	// then fails (attempt 1), conn3 fails (attempt 2), conn4 fails → give up.
	// Without the reset the client would have stopped after conn3.
	assert.Equal(t, int64(4), conns.Load())
	assert.Equal(t, int64(1), closed.Load())
}

func TestCloseStopsWithoutOnClosed(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, `{"job_id":"j1","processed_leads":1}`)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	got := make(chan struct{}, 1)
	var closed atomic.Int64
	c := New(srv.URL, Options{
		MaxAttempts: 5,
		Delay:       testDelay,
		OnMessage:   func(api.JobProgress) { got <- struct{}{} },
		OnClosed:    func() { closed.Add(1) },
	})
	c.Start()

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	c.Close()
	waitDone(t, c)

	// tear-down is immediate and silent: OnClosed is reserved for the
	// exhausted-retries path
	assert.Equal(t, int64(0), closed.Load())
}

func TestPingEnvelopeIgnored(t *testing.T) {
	var conns atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) > 1 {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, `{"type":"ping"}`)
		sse(w, `{"job_id":"j1","processed_leads":7}`)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []api.JobProgress
	c := New(srv.URL, Options{
		MaxAttempts: 1,
		Delay:       testDelay,
		OnMessage: func(p api.JobProgress) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		},
	})
	c.Start()
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "j1", got[0].JobID)
}
