// Package lookup fetches a hosted AIO report and reduces the outcome to a
// single presentation state for a display collaborator.
package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/slug"
	"github.com/eflav/aio-index/pkg/whttp"
)

// ReportBaseURL is where the pre-generated report JSONs are hosted. Together
// with the slug rule it forms the contract with the publisher side, so it is
// a constant rather than configuration.
const ReportBaseURL = "https://eflav.github.io/aio-index/data/"

// UnavailableMessage is the only message shown when the report could not be
// fetched at all. The underlying cause is deliberately not exposed.
const UnavailableMessage = "Report not found yet. Try again soon."

// Phase identifies which shape a State currently has.
type Phase int

const (
	Idle Phase = iota
	Pending
	Failed
	Succeeded
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	case Succeeded:
		return "succeeded"
	}
	return "unknown"
}

// State is the outcome of the most recent submission. Score is meaningful
// only when Phase is Succeeded, Message only when Phase is Failed.
type State struct {
	Phase   Phase
	Score   float64
	Message string
}

// MarshalJSON emits the state in the shape the API handlers return.
func (s State) MarshalJSON() ([]byte, error) {
	out := struct {
		Phase   string   `json:"phase"`
		Score   *float64 `json:"score,omitempty"`
		Message string   `json:"message,omitempty"`
	}{Phase: s.Phase.String()}
	if s.Phase == Succeeded {
		out.Score = &s.Score
	}
	if s.Phase == Failed {
		out.Message = s.Message
	}
	return json.Marshal(out)
}

// Controller owns the lookup state for one display surface. It holds exactly
// one State at a time; each submission replaces it wholesale.
//
// Overlapping submissions are resolved by sequence number: a fetch that
// finishes after a newer submission has started is dropped, so the state
// always reflects the newest submission rather than the slowest response.
type Controller struct {
	client  *http.Client
	baseURL string

	mu       sync.Mutex
	seq      uint64
	state    State
	onChange func(State)
}

// NewController returns a Controller in the Idle state using the default
// HTTP client and the hosted report location.
func NewController() *Controller {
	return NewControllerWithClient(http.DefaultClient)
}

// NewControllerWithClient is NewController with a caller-supplied HTTP
// client, for proxied runs.
func NewControllerWithClient(client *http.Client) *Controller {
	if client == nil {
		client = http.DefaultClient
	}
	return &Controller{
		client:  client,
		baseURL: ReportBaseURL,
		state:   State{Phase: Idle},
	}
}

// OnChange registers the display collaborator. It is invoked once per state
// transition, outside the controller's lock, in transition order for any
// single submission.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit starts a lookup for the given raw URL. The transition to Pending
// happens synchronously, before Submit returns; the terminal transition
// happens whenever the fetch resolves, unless a newer submission has
// superseded this one by then.
func (c *Controller) Submit(raw string) {
	seq := c.begin(raw)
	go func() {
		st := c.resolve(context.Background(), raw)
		c.commit(seq, st)
	}()
}

// Lookup is the blocking form used by the CLI and the API handlers: one
// submission, returning the terminal state.
func (c *Controller) Lookup(ctx context.Context, raw string) State {
	seq := c.begin(raw)
	st := c.resolve(ctx, raw)
	c.commit(seq, st)
	return st
}

// begin claims the next sequence number and moves the controller to Pending,
// discarding any prior terminal state.
func (c *Controller) begin(raw string) uint64 {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state = State{Phase: Pending}
	notify := c.onChange
	st := c.state
	c.mu.Unlock()

	utils.Log.Debugf("[lookup] #%d submitted for %q", seq, raw)
	if notify != nil {
		notify(st)
	}
	return seq
}

// commit installs a terminal state if seq is still the newest submission.
// Stale resolutions are dropped.
func (c *Controller) commit(seq uint64, st State) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		utils.Log.Debugf("[lookup] #%d superseded, dropping %s result", seq, st.Phase)
		return
	}
	c.state = st
	notify := c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify(st)
	}
}

// resolve performs the single fetch and maps the outcome to a terminal
// state. No retries and no timeout beyond the client's own.
func (c *Controller) resolve(ctx context.Context, raw string) State {
	addr := c.baseURL + slug.ReportPath(raw)

	res, err := whttp.Send(ctx, &whttp.Request{Method: http.MethodGet, URL: addr}, c.client)
	if err != nil {
		utils.Log.Debugf("[lookup] fetch failed for %s: %v", addr, err)
		return State{Phase: Failed, Message: UnavailableMessage}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		utils.Log.Debugf("[lookup] got status %d for %s", res.StatusCode, addr)
		return State{Phase: Failed, Message: UnavailableMessage}
	}

	var doc any
	if err := json.Unmarshal([]byte(res.BodyString), &doc); err != nil {
		return State{Phase: Failed, Message: err.Error()}
	}

	// Absent or non-numeric score fields read as 0.
	score := gjson.Get(res.BodyString, "data.aio_score").Float()
	return State{Phase: Succeeded, Score: score}
}
