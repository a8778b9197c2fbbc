package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
)

// WebSocket channels carrying dispatch progress.
const (
	channelResult       = "display.result"
	channelDispatchDone = "dispatch.done"
)

// powerRequest is the body of POST /api/v1/displays/power. Group and
// Names narrow the target set; both empty means every display.
type powerRequest struct {
	Action string   `json:"action"`
	Group  string   `json:"group,omitempty"`
	Names  []string `json:"names,omitempty"`
}

// powerResponse is the aggregate outcome of one power dispatch.
type powerResponse struct {
	Action  string           `json:"action"`
	Results []display.Result `json:"results"`
}

// handleListDisplays returns the configured display inventory, optionally
// filtered by the group query parameter.
func (s *Server) handleListDisplays(w http.ResponseWriter, r *http.Request) {
	out := display.InGroup(s.displays, r.URL.Query().Get("group"))
	if out == nil {
		out = []display.Display{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"displays": out,
		"count":    len(out),
	})
}

// handlePower runs a power action against the selected displays and
// returns one result per display. Only one dispatch runs at a time;
// overlapping requests are refused with 409.
func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	action, err := display.ParseAction(req.Action)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid action %q", req.Action))
		return
	}

	targets, err := s.selectDisplays(req)
	if err != nil {
		writeNotFound(w, err.Error())
		return
	}

	if !s.dispatching.CompareAndSwap(false, true) {
		writeConflict(w, "a power dispatch is already in progress")
		return
	}
	defer s.dispatching.Store(false)

	results := s.dispatcher.Dispatch(r.Context(), targets, action, control.Options{
		MaxConcurrency: s.workers,
		OnComplete: func(res display.Result) {
			s.broadcast(channelResult, res)
		},
	})

	s.broadcast(channelDispatchDone, map[string]any{
		"action":  string(action),
		"results": len(results),
	})

	writeJSON(w, http.StatusOK, powerResponse{
		Action:  string(action),
		Results: results,
	})
}

// broadcast forwards an event to the hub when one is running.
func (s *Server) broadcast(channel string, payload any) {
	if s.hub != nil {
		s.hub.Broadcast(channel, payload)
	}
}

// selectDisplays narrows the inventory to the request's target set.
// Every requested name must exist; an unknown name fails the whole
// request rather than silently dispatching a partial batch.
func (s *Server) selectDisplays(req powerRequest) ([]display.Display, error) {
	pool := display.InGroup(s.displays, req.Group)
	if req.Group != "" && len(pool) == 0 {
		return nil, fmt.Errorf("no displays in group %q", req.Group)
	}

	if len(req.Names) == 0 {
		if len(pool) == 0 {
			return nil, fmt.Errorf("no displays configured")
		}
		return pool, nil
	}

	byName := make(map[string]display.Display, len(pool))
	for _, d := range pool {
		byName[d.Name] = d
	}

	targets := make([]display.Display, 0, len(req.Names))
	for _, name := range req.Names {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown display %q", name)
		}
		targets = append(targets, d)
	}
	return targets, nil
}
