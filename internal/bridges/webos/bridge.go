package webos

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
)

// msgPrompt is the pending detail shown while the pairing prompt is on
// screen. Presentation layers pattern-match on this exact text.
const msgPrompt = "Accept prompt on TV"

const uriTurnOff = "ssap://system/turnOff"

// TokenStore persists pairing client keys per display address.
// Satisfied by pairing.Store.
type TokenStore interface {
	Load(ctx context.Context, address string) (string, error)
	Save(ctx context.Context, address, token string) error
}

// Config holds webos bridge settings.
type Config struct {
	// Port is the SSAP websocket port.
	Port int

	// HandshakeTimeout bounds the register handshake, including the
	// window in which the user can accept the pairing prompt.
	HandshakeTimeout time.Duration

	// CommandTimeout bounds each SSAP request after registration.
	CommandTimeout time.Duration

	// BroadcastAddress is the target for wake packets.
	BroadcastAddress string

	// WOLPort is the UDP port wake packets are sent to.
	WOLPort int
}

// Bridge implements control.Driver over SSAP websockets, plus the
// Wake-on-LAN and dedicated power-off capabilities.
type Bridge struct {
	dialer Dialer
	tokens TokenStore
	cfg    Config
	logger control.Logger
}

// NewBridge creates a webos bridge over a gorilla/websocket dialer.
func NewBridge(cfg Config, tokens TokenStore) (*Bridge, error) {
	if tokens == nil {
		return nil, ErrMissingTokenStore
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}
	cfg = withDefaults(cfg)
	return &Bridge{
		dialer: newWSDialer(cfg.HandshakeTimeout),
		tokens: tokens,
		cfg:    cfg,
	}, nil
}

func newBridge(dialer Dialer, tokens TokenStore, cfg Config) *Bridge {
	return &Bridge{dialer: dialer, tokens: tokens, cfg: withDefaults(cfg)}
}

func withDefaults(cfg Config) Config {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 8 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = "255.255.255.255"
	}
	if cfg.WOLPort == 0 {
		cfg.WOLPort = 9
	}
	return cfg
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger control.Logger) {
	b.logger = logger
}

// Connect establishes and immediately releases a registered session,
// reporting whether the display is reachable and paired.
func (b *Bridge) Connect(ctx context.Context, d display.Display) (control.ConnectStatus, string) {
	sess, status, detail := b.openSession(ctx, d)
	sess.close()
	return status, detail
}

// QueryState maps reachability onto power state. webOS exposes no
// trustworthy screen-state query, but a sleeping TV cannot hold the
// websocket at all, so a registered session means awake.
func (b *Bridge) QueryState(ctx context.Context, d display.Display) display.State {
	sess, status, _ := b.openSession(ctx, d)
	sess.close()

	switch status {
	case control.ConnectOK:
		return display.StateAwake
	case control.ConnectPending:
		return display.StateUnknown
	default:
		return display.StateUnreachable
	}
}

// TogglePower is the generic single power action. webOS has no blind
// toggle; the only in-protocol power action is turn-off.
func (b *Bridge) TogglePower(ctx context.Context, d display.Display) (bool, string) {
	return b.PowerOff(ctx, d)
}

// PowerOff sends the turn-off request over a registered session.
func (b *Bridge) PowerOff(ctx context.Context, d display.Display) (bool, string) {
	sess, status, detail := b.openSession(ctx, d)
	defer sess.close()

	switch status {
	case control.ConnectPending:
		return false, msgPrompt
	case control.ConnectFailed:
		return false, detail
	}

	ok, reqDetail := sess.request(uriTurnOff)
	if !ok {
		b.logf("webos turn-off request failed", "display", d.Name, "detail", reqDetail)
	}
	return ok, reqDetail
}

// openSession dials the display and runs the register handshake. On
// ConnectOK the returned session is live and the caller must close it;
// otherwise the session is already nil.
func (b *Bridge) openSession(ctx context.Context, d display.Display) (*session, control.ConnectStatus, string) {
	url := b.endpoint(d)
	conn, err := b.dialer.Dial(ctx, url)
	if err != nil {
		b.logf("webos dial failed", "display", d.Name, "url", url, "detail", err.Error())
		return nil, control.ConnectFailed, err.Error()
	}

	token := b.loadToken(ctx, d)
	sess := &session{conn: conn, timeout: b.cfg.CommandTimeout}
	outcome, detail := sess.register(token)

	switch outcome {
	case handshakeRegistered:
		// Persist the key the moment it is issued. An accepted prompt
		// must survive even if the rest of this operation fails.
		if detail != "" {
			b.saveToken(ctx, d, detail)
		}
		return sess, control.ConnectOK, "Connected"
	case handshakePrompted:
		sess.close()
		// The handshake did not complete, but the credential state as it
		// stands is written back so the next attempt resumes from it.
		b.saveToken(ctx, d, token)
		return nil, control.ConnectPending, msgPrompt
	default:
		sess.close()
		return nil, control.ConnectFailed, detail
	}
}

func (b *Bridge) saveToken(ctx context.Context, d display.Display, token string) {
	if err := b.tokens.Save(ctx, d.Address, token); err != nil {
		b.logf("webos token save failed", "display", d.Name, "detail", err.Error())
	}
}

func (b *Bridge) loadToken(ctx context.Context, d display.Display) string {
	token, err := b.tokens.Load(ctx, d.Address)
	if err != nil {
		b.logf("webos token load failed", "display", d.Name, "detail", err.Error())
		return ""
	}
	return token
}

func (b *Bridge) endpoint(d display.Display) string {
	return fmt.Sprintf("ws://%s", net.JoinHostPort(d.Address, strconv.Itoa(b.cfg.Port)))
}

func (b *Bridge) logf(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
