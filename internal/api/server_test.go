package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/config"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/logging"
)

// fakeDispatcher records its calls and returns canned success results.
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   int
	lastAct display.Action
	lastSet []display.Display

	block chan struct{} // when set, Dispatch waits until it closes
}

func (f *fakeDispatcher) Dispatch(_ context.Context, displays []display.Display, action display.Action, opts control.Options) []display.Result {
	f.mu.Lock()
	f.calls++
	f.lastAct = action
	f.lastSet = displays
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	results := make([]display.Result, 0, len(displays))
	for _, d := range displays {
		res := display.Result{
			Name:    d.Name,
			Address: d.Address,
			State:   display.StateAwake,
			Outcome: display.OutcomeSuccess,
			Message: "Turned on",
		}
		if opts.OnComplete != nil {
			opts.OnComplete(res)
		}
		results = append(results, res)
	}
	return results
}

func testDisplays() []display.Display {
	return []display.Display{
		{Name: "Lobby", Address: "10.0.0.5", Protocol: display.ProtocolADB, Group: "ground"},
		{Name: "Bar", Address: "10.0.0.6", Protocol: display.ProtocolADB, Group: "ground"},
		{Name: "Patio", Address: "10.0.0.9", Protocol: display.ProtocolWebOS, MAC: "AA:BB:CC:DD:EE:FF", Group: "outside"},
	}
}

func testServer(t *testing.T, disp Dispatcher) *Server {
	t.Helper()
	s, err := New(Deps{
		Config:     config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:         config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:     logging.Default(),
		Displays:   testDisplays(),
		Dispatcher: disp,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{Dispatcher: &fakeDispatcher{}}); err == nil {
		t.Error("New without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New without dispatcher should fail")
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, &fakeDispatcher{})

	rec := doRequest(s, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["displays"] != float64(3) {
		t.Errorf("displays field = %v, want 3", body["displays"])
	}
}

func TestHandleListDisplays(t *testing.T) {
	s := testServer(t, &fakeDispatcher{})

	rec := doRequest(s, http.MethodGet, "/api/v1/displays/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Displays []display.Display `json:"displays"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 3 {
		t.Errorf("count = %d, want 3", body.Count)
	}
}

func TestHandleListDisplays_GroupFilter(t *testing.T) {
	s := testServer(t, &fakeDispatcher{})

	rec := doRequest(s, http.MethodGet, "/api/v1/displays/?group=ground", "")

	var body struct {
		Displays []display.Display `json:"displays"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
	for _, d := range body.Displays {
		if d.Group != "ground" {
			t.Errorf("display %q has group %q", d.Name, d.Group)
		}
	}
}

func TestHandlePower_AllDisplays(t *testing.T) {
	disp := &fakeDispatcher{}
	s := testServer(t, disp)

	rec := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"on"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body powerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Action != "on" {
		t.Errorf("action = %q", body.Action)
	}
	if len(body.Results) != 3 {
		t.Errorf("results = %d, want 3", len(body.Results))
	}
	if disp.lastAct != display.ActionOn {
		t.Errorf("dispatched action = %q", disp.lastAct)
	}
}

func TestHandlePower_ByNames(t *testing.T) {
	disp := &fakeDispatcher{}
	s := testServer(t, disp)

	rec := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"off","names":["Lobby","Patio"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(disp.lastSet) != 2 {
		t.Fatalf("dispatched %d displays, want 2", len(disp.lastSet))
	}
	if disp.lastSet[0].Name != "Lobby" || disp.lastSet[1].Name != "Patio" {
		t.Errorf("dispatched set = %v", disp.lastSet)
	}
}

func TestHandlePower_ByGroup(t *testing.T) {
	disp := &fakeDispatcher{}
	s := testServer(t, disp)

	rec := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"check","group":"outside"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(disp.lastSet) != 1 || disp.lastSet[0].Name != "Patio" {
		t.Errorf("dispatched set = %v", disp.lastSet)
	}
}

func TestHandlePower_UnknownName(t *testing.T) {
	disp := &fakeDispatcher{}
	s := testServer(t, disp)

	rec := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"on","names":["Cellar"]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if disp.calls != 0 {
		t.Error("unknown name must not trigger a dispatch")
	}
}

func TestHandlePower_InvalidAction(t *testing.T) {
	s := testServer(t, &fakeDispatcher{})

	rec := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"reboot"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePower_InvalidBody(t *testing.T) {
	s := testServer(t, &fakeDispatcher{})

	rec := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePower_ConcurrentDispatchRefused(t *testing.T) {
	disp := &fakeDispatcher{block: make(chan struct{})}
	s := testServer(t, disp)

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		firstDone <- doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"on"}`)
	}()

	// Wait for the first dispatch to be in flight.
	for {
		disp.mu.Lock()
		started := disp.calls > 0
		disp.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	second := doRequest(s, http.MethodPost, "/api/v1/displays/power", `{"action":"on"}`)
	if second.Code != http.StatusConflict {
		t.Errorf("overlapping dispatch status = %d, want 409", second.Code)
	}

	close(disp.block)
	first := <-firstDone
	if first.Code != http.StatusOK {
		t.Errorf("first dispatch status = %d, want 200", first.Code)
	}
}
