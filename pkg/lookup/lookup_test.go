package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestController(t *testing.T, handler http.HandlerFunc) *Controller {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewControllerWithClient(srv.Client())
	c.baseURL = srv.URL + "/data/"
	return c
}

func TestNewControllerStartsIdle(t *testing.T) {
	c := NewController()
	if st := c.State(); st.Phase != Idle {
		t.Fatalf("initial state = %s, want idle", st.Phase)
	}
	if c.baseURL != ReportBaseURL {
		t.Fatalf("base url = %q", c.baseURL)
	}
}

func TestLookupScenarios(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		raw         string
		wantPhase   Phase
		wantScore   float64
		wantMessage string
	}{
		{
			name: "numeric score",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/data/good.example.json" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"data":{"aio_score":87}}`))
			},
			raw:       "https://good.example/",
			wantPhase: Succeeded,
			wantScore: 87,
		},
		{
			name: "missing report",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			raw:         "https://missing.example/",
			wantPhase:   Failed,
			wantMessage: UnavailableMessage,
		},
		{
			name: "missing score field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":{}}`))
			},
			raw:       "https://empty.example/",
			wantPhase: Succeeded,
			wantScore: 0,
		},
		{
			name: "null score field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":{"aio_score":null}}`))
			},
			raw:       "https://null.example/",
			wantPhase: Succeeded,
			wantScore: 0,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			raw:         "https://broken.example/",
			wantPhase:   Failed,
			wantMessage: UnavailableMessage,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(t, tc.handler)
			st := c.Lookup(context.Background(), tc.raw)

			if st.Phase != tc.wantPhase {
				t.Fatalf("phase = %s, want %s", st.Phase, tc.wantPhase)
			}
			if st.Phase == Succeeded && st.Score != tc.wantScore {
				t.Fatalf("score = %v, want %v", st.Score, tc.wantScore)
			}
			if st.Phase == Failed && st.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", st.Message, tc.wantMessage)
			}
			if got := c.State(); got != st {
				t.Fatalf("stored state %+v != returned state %+v", got, st)
			}
		})
	}
}

func TestLookupUnparsableBody(t *testing.T) {
	c := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":`))
	})

	st := c.Lookup(context.Background(), "https://garbled.example/")
	if st.Phase != Failed {
		t.Fatalf("phase = %s, want failed", st.Phase)
	}
	if st.Message == "" || st.Message == UnavailableMessage {
		t.Fatalf("expected parser message, got %q", st.Message)
	}
}

func TestLookupTransportError(t *testing.T) {
	c := NewController()
	c.baseURL = "http://127.0.0.1:1/data/" // nothing listens here

	st := c.Lookup(context.Background(), "https://example.com/")
	if st.Phase != Failed || st.Message != UnavailableMessage {
		t.Fatalf("got %+v, want failed with fixed message", st)
	}
}

func TestSubmitSetsPendingSynchronously(t *testing.T) {
	release := make(chan struct{})
	c := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"data":{"aio_score":50}}`))
	})

	states := make(chan State, 4)
	c.OnChange(func(st State) { states <- st })

	c.Submit("https://example.com/")

	// Pending must be observable before the fetch resolves.
	if got := c.State(); got.Phase != Pending {
		t.Fatalf("state after Submit = %s, want pending", got.Phase)
	}
	if st := <-states; st.Phase != Pending {
		t.Fatalf("first transition = %s, want pending", st.Phase)
	}

	close(release)
	select {
	case st := <-states:
		if st.Phase != Succeeded || st.Score != 50 {
			t.Fatalf("terminal state = %+v", st)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal state")
	}
}

func TestSubmitClearsPriorTerminalState(t *testing.T) {
	c := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"aio_score":10}}`))
	})

	if st := c.Lookup(context.Background(), "https://example.com/"); st.Phase != Succeeded {
		t.Fatalf("setup lookup failed: %+v", st)
	}

	// A fresh submission must not leave the old score visible.
	seq := c.begin("https://example.com/")
	if got := c.State(); got.Phase != Pending || got.Score != 0 {
		t.Fatalf("state after begin = %+v, want bare pending", got)
	}
	c.commit(seq, State{Phase: Succeeded, Score: 20})
}

func TestStaleResolutionIsDropped(t *testing.T) {
	slowDone := make(chan struct{})
	slowRelease := make(chan struct{})
	c := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "slow") {
			<-slowRelease
			w.Write([]byte(`{"data":{"aio_score":11}}`))
			close(slowDone)
			return
		}
		w.Write([]byte(`{"data":{"aio_score":87}}`))
	})

	c.Submit("https://slow.example/")
	st := c.Lookup(context.Background(), "https://fast.example/")
	if st.Phase != Succeeded || st.Score != 87 {
		t.Fatalf("fast lookup = %+v", st)
	}

	// Let the stale fetch finish; its result must be discarded.
	close(slowRelease)
	select {
	case <-slowDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for slow fetch")
	}
	time.Sleep(50 * time.Millisecond)

	if got := c.State(); got.Score != 87 || got.Phase != Succeeded {
		t.Fatalf("stale resolution overwrote state: %+v", got)
	}
}

func TestStateJSON(t *testing.T) {
	tests := []struct {
		st   State
		want string
	}{
		{State{Phase: Idle}, `{"phase":"idle"}`},
		{State{Phase: Pending}, `{"phase":"pending"}`},
		{State{Phase: Succeeded, Score: 0}, `{"phase":"succeeded","score":0}`},
		{State{Phase: Failed, Message: "nope"}, `{"phase":"failed","message":"nope"}`},
	}
	for _, tc := range tests {
		got, err := tc.st.MarshalJSON()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tc.want {
			t.Fatalf("marshal %+v = %s, want %s", tc.st, got, tc.want)
		}
	}
}
