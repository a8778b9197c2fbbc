package webos

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a websocket connection the bridge uses. Tests
// substitute a scripted implementation.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens a websocket connection to an SSAP endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the production Dialer backed by gorilla/websocket.
type wsDialer struct {
	dialer *websocket.Dialer
}

func newWSDialer(handshakeTimeout time.Duration) *wsDialer {
	return &wsDialer{dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout}}
}

func (w *wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := w.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ssapMessage is the SSAP wire envelope, used for both directions.
type ssapMessage struct {
	Type    string         `json:"type"`
	ID      string         `json:"id,omitempty"`
	URI     string         `json:"uri,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// registerManifest is the permission manifest sent with every register
// handshake. The TV shows it on the pairing prompt.
var registerManifest = map[string]any{
	"manifestVersion": 1,
	"appVersion":      "1.1",
	"permissions": []string{
		"LAUNCH",
		"CONTROL_POWER",
		"CONTROL_AUDIO",
		"CONTROL_DISPLAY",
		"READ_INSTALLED_APPS",
		"READ_INPUT_DEVICE_LIST",
		"APP_TO_APP",
	},
}

// session is one registered SSAP connection.
type session struct {
	conn    Conn
	timeout time.Duration
	nextID  int
}

// handshakeOutcome classifies a register handshake.
type handshakeOutcome int

const (
	// handshakeRegistered means the TV accepted the client key and the
	// session is usable.
	handshakeRegistered handshakeOutcome = iota

	// handshakePrompted means the TV is showing the pairing prompt and
	// the user has not accepted it yet.
	handshakePrompted

	// handshakeFailed means the handshake did not complete.
	handshakeFailed
)

// register runs the SSAP register handshake over the session's
// connection. token may be empty on first pairing. When the TV issues a
// client key the key is returned alongside handshakeRegistered; callers
// must persist it immediately.
func (s *session) register(token string) (handshakeOutcome, string) {
	payload := map[string]any{
		"forcePairing": false,
		"pairingType":  "PROMPT",
		"manifest":     registerManifest,
	}
	if token != "" {
		payload["client-key"] = token
	}

	msg := ssapMessage{Type: "register", ID: "register_0", Payload: payload}
	if err := s.conn.WriteJSON(msg); err != nil {
		return handshakeFailed, err.Error()
	}

	deadline := time.Now().Add(s.timeout)
	_ = s.conn.SetReadDeadline(deadline)

	prompted := false
	for {
		var resp ssapMessage
		if err := s.conn.ReadJSON(&resp); err != nil {
			if prompted {
				return handshakePrompted, ""
			}
			return handshakeFailed, err.Error()
		}

		switch resp.Type {
		case "registered":
			key, _ := resp.Payload["client-key"].(string)
			return handshakeRegistered, key
		case "response":
			if pt, _ := resp.Payload["pairingType"].(string); pt == "PROMPT" {
				// Keep reading until the deadline in case the user
				// accepts the prompt while we wait.
				prompted = true
				continue
			}
		case "error":
			if prompted {
				return handshakePrompted, ""
			}
			return handshakeFailed, resp.Error
		}
	}
}

// request sends one SSAP request and waits for its response. Unrelated
// messages arriving in between are skipped.
func (s *session) request(uri string) (bool, string) {
	s.nextID++
	id := fmt.Sprintf("req_%d", s.nextID)

	msg := ssapMessage{Type: "request", ID: id, URI: uri, Payload: map[string]any{}}
	if err := s.conn.WriteJSON(msg); err != nil {
		return false, err.Error()
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	for {
		var resp ssapMessage
		if err := s.conn.ReadJSON(&resp); err != nil {
			return false, err.Error()
		}
		if resp.ID != id {
			continue
		}
		if resp.Type == "error" {
			return false, resp.Error
		}
		if rv, ok := resp.Payload["returnValue"].(bool); ok && !rv {
			return false, "request refused"
		}
		return true, ""
	}
}

// close tears the connection down. Safe on a nil session.
func (s *session) close() {
	if s == nil || s.conn == nil {
		return
	}
	_ = s.conn.Close()
}
