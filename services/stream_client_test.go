package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"imc-manager/internal/models"
)

// writeEvent 写出一条SSE事件并刷新
func writeEvent(w http.ResponseWriter, raw string) {
	fmt.Fprint(w, raw)
	w.(http.Flusher).Flush()
}

func streamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()
}

/**
 * Test the bounded FIFO buffer and subscriber delivery
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Buffer of 2 keeps the last two events, oldest first
 * - Undecodable payloads are dropped without breaking the stream
 */
func TestStreamClientBuffersRecentEvents(t *testing.T) {
	b := newFakeBackend(t)
	b.handle("GET /stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		streamHeaders(w)
		writeEvent(w, "data: {\"app\":\"hdfswatcher\",\"status\":\"STARTED\"}\n\n")
		writeEvent(w, "data: not json\n\n")
		writeEvent(w, "data: {\"app\":\"textproc\",\"status\":\"STARTED\"}\n\n")
		writeEvent(w, ": keepalive\n\n")
		writeEvent(w, "data: {\"app\":\"embedproc\",\"status\":\"ERROR\",\"message\":\"oom\"}\n\n")
		<-r.Context().Done()
	})
	cfg := testConfig(b.srv.URL)
	cfg.Stream.BufferSize = 2
	sc := NewStreamClient(cfg, WithStreamHTTPClient(b.client()))

	events, unsubscribe := sc.Subscribe()
	defer unsubscribe()
	var mu sync.Mutex
	var seen []string
	sc.OnEvent(func(ev models.EventDto) {
		mu.Lock()
		seen = append(seen, ev.App)
		mu.Unlock()
	})

	sc.Start(context.Background())
	defer sc.Stop()
	waitFor(t, 2*time.Second, func() bool { return sc.Status().Received == 3 })

	recent := sc.Recent()
	if len(recent) != 2 || recent[0].App != "textproc" || recent[1].App != "embedproc" {
		t.Errorf("Recent() = %+v", recent)
	}
	if !sc.Connected() {
		t.Error("client not connected")
	}
	st := sc.Status()
	if st.Buffered != 2 || st.Error != "" {
		t.Errorf("Status() = %+v", st)
	}

	first := <-events
	if first.App != "hdfswatcher" {
		t.Errorf("first subscribed event = %+v", first)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("callbacks saw %v", seen)
	}
}

/**
 * Test reconnect behaviour
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - A failed connect records the error and is retried
 * - After the server closes the stream the client reconnects with Last-Event-ID
 */
func TestStreamClientReconnects(t *testing.T) {
	b := newFakeBackend(t)
	var mu sync.Mutex
	attempts := 0
	var lastIDs []string
	b.handle("GET /stream", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		lastIDs = append(lastIDs, r.Header.Get("Last-Event-ID"))
		mu.Unlock()

		switch n {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			streamHeaders(w)
			writeEvent(w, "id: 7\nretry: 10\ndata: {\"app\":\"textproc\"}\n\n")
		default:
			streamHeaders(w)
			writeEvent(w, "id: 8\ndata: {\"app\":\"embedproc\"}\n\n")
			<-r.Context().Done()
		}
	})
	sc := NewStreamClient(testConfig(b.srv.URL), WithStreamHTTPClient(b.client()), WithBackoff(5*time.Millisecond, 20*time.Millisecond))
	sc.Start(context.Background())

	waitFor(t, 3*time.Second, func() bool { return sc.Status().Received == 2 })
	if !sc.Connected() || sc.Err() != "" {
		t.Errorf("status after reconnect = %+v", sc.Status())
	}
	sc.Stop()
	if sc.Connected() {
		t.Error("still connected after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lastIDs) < 3 {
		t.Fatalf("attempts = %d, want 3", len(lastIDs))
	}
	if lastIDs[0] != "" || lastIDs[1] != "" || lastIDs[2] != "7" {
		t.Errorf("Last-Event-ID headers = %q", lastIDs)
	}
}

func TestStreamClientRecordsConnectError(t *testing.T) {
	b := newFakeBackend(t)
	b.json("GET /stream", http.StatusBadGateway, ``)
	sc := NewStreamClient(testConfig(b.srv.URL), WithStreamHTTPClient(b.client()), WithBackoff(time.Hour, time.Hour))
	sc.Start(context.Background())
	defer sc.Stop()

	waitFor(t, 2*time.Second, func() bool { return sc.Err() != "" })
	if sc.Connected() {
		t.Error("connected despite HTTP 502")
	}
	if len(sc.Recent()) != 0 {
		t.Error("events buffered without a connection")
	}
}

func TestStreamClientStopWithoutStart(t *testing.T) {
	sc := NewStreamClient(testConfig("http://127.0.0.1:1"))
	sc.Stop()
}
