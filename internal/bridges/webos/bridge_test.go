package webos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
)

// fakeConn replays scripted SSAP messages and records writes. When the
// script runs out, reads fail like a deadline expiry.
type fakeConn struct {
	incoming []ssapMessage
	written  []ssapMessage
	closed   bool
}

func (f *fakeConn) WriteJSON(v any) error {
	msg, ok := v.(ssapMessage)
	if !ok {
		return errors.New("unexpected write type")
	}
	f.written = append(f.written, msg)
	return nil
}

func (f *fakeConn) ReadJSON(v any) error {
	if len(f.incoming) == 0 {
		return errors.New("read timeout")
	}
	msg := f.incoming[0]
	f.incoming = f.incoming[1:]
	*(v.(*ssapMessage)) = msg
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (f *fakeDialer) Dial(_ context.Context, _ string) (Conn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

type fakeTokens struct {
	token string
	saved map[string]string
}

func newFakeTokens(token string) *fakeTokens {
	return &fakeTokens{token: token, saved: make(map[string]string)}
}

func (f *fakeTokens) Load(_ context.Context, _ string) (string, error) {
	return f.token, nil
}

func (f *fakeTokens) Save(_ context.Context, address, token string) error {
	f.saved[address] = token
	return nil
}

func registeredMsg(key string) ssapMessage {
	return ssapMessage{
		Type:    "registered",
		ID:      "register_0",
		Payload: map[string]any{"client-key": key},
	}
}

func promptMsg() ssapMessage {
	return ssapMessage{
		Type:    "response",
		ID:      "register_0",
		Payload: map[string]any{"pairingType": "PROMPT"},
	}
}

func testWebOSDisplay() display.Display {
	return display.Display{
		Name: "Patio", Address: "10.0.0.9",
		Protocol: display.ProtocolWebOS, MAC: "AA:BB:CC:DD:EE:FF",
	}
}

func bridgeWith(conn *fakeConn, tokens *fakeTokens) *Bridge {
	return newBridge(&fakeDialer{conn: conn}, tokens, Config{Port: 3000})
}

func TestConnect_Registered(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{registeredMsg("key-123")}}
	tokens := newFakeTokens("")
	b := bridgeWith(conn, tokens)

	status, detail := b.Connect(context.Background(), testWebOSDisplay())
	if status != control.ConnectOK {
		t.Fatalf("status = %v, want ConnectOK", status)
	}
	if detail != "Connected" {
		t.Errorf("detail = %q", detail)
	}
	if tokens.saved["10.0.0.9"] != "key-123" {
		t.Errorf("client key not persisted: saved = %v", tokens.saved)
	}
	if !conn.closed {
		t.Error("connection left open after Connect")
	}
}

func TestConnect_SendsStoredToken(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{registeredMsg("key-123")}}
	tokens := newFakeTokens("key-123")
	b := bridgeWith(conn, tokens)

	b.Connect(context.Background(), testWebOSDisplay())

	if len(conn.written) == 0 {
		t.Fatal("no register message written")
	}
	reg := conn.written[0]
	if reg.Type != "register" {
		t.Fatalf("first message type = %q, want register", reg.Type)
	}
	if got, _ := reg.Payload["client-key"].(string); got != "key-123" {
		t.Errorf("register client-key = %q, want stored token", got)
	}
}

func TestConnect_FirstPairingOmitsKey(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{registeredMsg("fresh-key")}}
	b := bridgeWith(conn, newFakeTokens(""))

	b.Connect(context.Background(), testWebOSDisplay())

	if _, present := conn.written[0].Payload["client-key"]; present {
		t.Error("register payload must omit client-key when no token is stored")
	}
}

func TestConnect_PromptPending(t *testing.T) {
	// Prompt shown, user never accepts: the script ends and the read
	// fails like a timeout.
	conn := &fakeConn{incoming: []ssapMessage{promptMsg()}}
	tokens := newFakeTokens("")
	b := bridgeWith(conn, tokens)

	status, detail := b.Connect(context.Background(), testWebOSDisplay())
	if status != control.ConnectPending {
		t.Fatalf("status = %v, want ConnectPending", status)
	}
	if detail != "Accept prompt on TV" {
		t.Errorf("detail = %q, want the exact prompt text", detail)
	}
}

func TestConnect_PromptPendingSavesCredential(t *testing.T) {
	// A prompted handshake still writes the credential state back, so
	// the next attempt resumes from the same store contents.
	conn := &fakeConn{incoming: []ssapMessage{promptMsg()}}
	tokens := newFakeTokens("key-123")
	b := bridgeWith(conn, tokens)

	status, _ := b.Connect(context.Background(), testWebOSDisplay())
	if status != control.ConnectPending {
		t.Fatalf("status = %v, want ConnectPending", status)
	}

	saved, ok := tokens.saved["10.0.0.9"]
	if !ok {
		t.Fatal("credential store received no Save call on prompted handshake")
	}
	if saved != "key-123" {
		t.Errorf("saved token = %q, want the current credential", saved)
	}
}

func TestConnect_PromptPendingFirstPairingSavesEmpty(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{promptMsg()}}
	tokens := newFakeTokens("")
	b := bridgeWith(conn, tokens)

	b.Connect(context.Background(), testWebOSDisplay())

	if saved, ok := tokens.saved["10.0.0.9"]; !ok || saved != "" {
		t.Errorf("first pairing should save the empty credential, saved = %v", tokens.saved)
	}
}

func TestConnect_PromptAcceptedDuringWait(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{promptMsg(), registeredMsg("key-456")}}
	tokens := newFakeTokens("")
	b := bridgeWith(conn, tokens)

	status, _ := b.Connect(context.Background(), testWebOSDisplay())
	if status != control.ConnectOK {
		t.Fatalf("status = %v, want ConnectOK after prompt acceptance", status)
	}
	if tokens.saved["10.0.0.9"] != "key-456" {
		t.Errorf("accepted key not persisted, saved = %v", tokens.saved)
	}
}

func TestConnect_DialFailure(t *testing.T) {
	b := newBridge(&fakeDialer{err: errors.New("connection refused")}, newFakeTokens(""), Config{Port: 3000})

	status, detail := b.Connect(context.Background(), testWebOSDisplay())
	if status != control.ConnectFailed {
		t.Fatalf("status = %v, want ConnectFailed", status)
	}
	if detail != "connection refused" {
		t.Errorf("detail = %q", detail)
	}
}

func TestQueryState(t *testing.T) {
	tests := []struct {
		name   string
		dialer Dialer
		want   display.State
	}{
		{
			"registered means awake",
			&fakeDialer{conn: &fakeConn{incoming: []ssapMessage{registeredMsg("k")}}},
			display.StateAwake,
		},
		{
			"prompt pending means unknown",
			&fakeDialer{conn: &fakeConn{incoming: []ssapMessage{promptMsg()}}},
			display.StateUnknown,
		},
		{
			"dial failure means unreachable",
			&fakeDialer{err: errors.New("no route to host")},
			display.StateUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBridge(tt.dialer, newFakeTokens(""), Config{Port: 3000})
			if got := b.QueryState(context.Background(), testWebOSDisplay()); got != tt.want {
				t.Errorf("state = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPowerOff_SendsTurnOffRequest(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{
		registeredMsg("k"),
		{Type: "response", ID: "req_1", Payload: map[string]any{"returnValue": true}},
	}}
	b := bridgeWith(conn, newFakeTokens("k"))

	ok, detail := b.PowerOff(context.Background(), testWebOSDisplay())
	if !ok {
		t.Fatalf("power off failed: %s", detail)
	}

	var turnOff *ssapMessage
	for i := range conn.written {
		if conn.written[i].Type == "request" {
			turnOff = &conn.written[i]
		}
	}
	if turnOff == nil {
		t.Fatal("no request message written")
	}
	if turnOff.URI != "ssap://system/turnOff" {
		t.Errorf("request uri = %q", turnOff.URI)
	}
	if !conn.closed {
		t.Error("connection left open after PowerOff")
	}
}

func TestPowerOff_RequestRefused(t *testing.T) {
	conn := &fakeConn{incoming: []ssapMessage{
		registeredMsg("k"),
		{Type: "response", ID: "req_1", Payload: map[string]any{"returnValue": false}},
	}}
	b := bridgeWith(conn, newFakeTokens("k"))

	ok, detail := b.PowerOff(context.Background(), testWebOSDisplay())
	if ok {
		t.Fatal("power off should fail when the TV refuses")
	}
	if detail != "request refused" {
		t.Errorf("detail = %q", detail)
	}
}

func TestPowerOff_Unreachable(t *testing.T) {
	b := newBridge(&fakeDialer{err: errors.New("i/o timeout")}, newFakeTokens(""), Config{Port: 3000})

	ok, detail := b.PowerOff(context.Background(), testWebOSDisplay())
	if ok {
		t.Fatal("power off should fail when unreachable")
	}
	if detail != "i/o timeout" {
		t.Errorf("detail = %q", detail)
	}
}
