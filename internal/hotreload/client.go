package hotreload

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/rune/internal/browser"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/machine"
)

// Session states.
const (
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
	StateReconnecting = "reconnecting"
	StateGaveUp       = "gave-up"
)

// Session events.
const (
	EventOpen  = "OPEN"
	EventClose = "CLOSE"
	EventRetry = "RETRY"
)

// Conn is one open reload channel.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens reload channels.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer dials with coder/websocket.
type WebSocketDialer struct {
	Header http.Header
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: d.Header})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 16)

	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// Page is what a reload frame refreshes.
type Page interface {
	Refresh(ctx context.Context) error
}

// ClientOptions configure a Client.
type ClientOptions struct {
	URL         string
	Dialer      Dialer
	Window      *browser.Window
	Page        Page
	MaxAttempts int
	Interval    time.Duration
	Logger      logging.Logger
}

// session is the context of the connection state machine.
type session struct {
	attempts int
	max      int
}

// Client keeps one reload channel open and applies its frames.
type Client struct {
	opts    ClientOptions
	logger  logging.Logger
	machine *machine.Machine[session]

	mu sync.Mutex
	id string
}

func sessionConfig(max int) machine.Config[session] {
	var canRetry machine.Guard[session] = func(s *session, _ machine.Event) bool { return s.attempts < s.max }
	reset := func(s *session, _ machine.Event) { s.attempts = 0 }
	count := func(s *session, _ machine.Event) { s.attempts++ }

	return machine.Config[session]{
		ID:      "hotreload",
		Initial: StateConnecting,
		Context: session{max: max},
		States: map[string]machine.StateConfig[session]{
			StateConnecting: {On: map[string][]machine.Transition[session]{
				EventOpen:  machine.On[session](StateConnected, nil, reset),
				EventClose: machine.On[session](StateDisconnected, nil),
			}},
			StateConnected: {On: map[string][]machine.Transition[session]{
				EventClose: machine.On[session](StateDisconnected, nil),
			}},
			StateDisconnected: {On: map[string][]machine.Transition[session]{
				EventRetry: {
					{Target: StateReconnecting, Cond: canRetry, Actions: []machine.Action[session]{count}},
					{Target: StateGaveUp},
				},
			}},
			StateReconnecting: {On: map[string][]machine.Transition[session]{
				EventOpen:  machine.On[session](StateConnected, nil, reset),
				EventClose: machine.On[session](StateDisconnected, nil),
			}},
			StateGaveUp: {},
		},
	}
}

// NewClient creates a client.
func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	return &Client{
		opts:    opts,
		logger:  logger.WithComponent("hotreload"),
		machine: machine.Must(sessionConfig(opts.MaxAttempts)),
	}
}

// State returns the session state.
func (c *Client) State() string { return c.machine.State().Value }

// Attempts returns the reconnect attempts since the last open.
func (c *Client) Attempts() int { return c.machine.State().Context.attempts }

// ID returns the id the server assigned on connect.
func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.id
}

// Subscribe observes session state changes.
func (c *Client) Subscribe(fn func(state string)) func() {
	return c.machine.Subscribe(func(s machine.State[session]) { fn(s.Value) })
}

// Run connects and processes frames until ctx ends or the reconnect budget
// is spent. Giving up leaves the page usable; only a manual refresh
// reconnects.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL)
		if err == nil {
			c.machine.SendType(EventOpen)
			c.dismiss(browser.BannerReconnecting)
			err = c.serve(ctx, conn)
			_ = conn.Close()
		}
		c.machine.SendType(EventClose)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.machine.SendType(EventRetry)
		if c.machine.Matches(StateGaveUp) {
			c.logger.Warn(ctx, err, "Hot reload gave up reconnecting", "attempts", c.opts.MaxAttempts)
			c.banner(browser.BannerReconnecting, "Hot reload disconnected - refresh the page to reconnect")
			return runeerrors.NewHotReloadError(runeerrors.ErrCodeReloadGaveUp,
				fmt.Sprintf("gave up after %d reconnect attempts", c.opts.MaxAttempts), err)
		}

		c.logger.Debug(ctx, "Hot reload disconnected, retrying",
			"attempt", c.Attempts(), "max", c.opts.MaxAttempts)
		c.banner(browser.BannerReconnecting,
			fmt.Sprintf("Hot reload disconnected, reconnecting (%d/%d)", c.Attempts(), c.opts.MaxAttempts))

		timer := time.NewTimer(c.opts.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (c *Client) serve(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		msg, err := Decode(data)
		if err != nil {
			c.logger.Warn(ctx, err, "Ignoring malformed hot reload frame")
			continue
		}
		c.Handle(ctx, msg)
	}
}

// Handle applies one frame.
func (c *Client) Handle(ctx context.Context, msg Message) {
	switch msg.Type {
	case TypeConnected:
		c.mu.Lock()
		c.id = msg.ID
		c.mu.Unlock()
		c.logger.Info(ctx, "Hot reload connected", "client", msg.ID)

	case TypeReload:
		c.logger.Info(ctx, "Reloading page", "reason", msg.Reason)
		if c.opts.Page == nil {
			return
		}
		if err := c.opts.Page.Refresh(ctx); err != nil {
			c.toast(browser.ToastError, "Page reload failed")
			return
		}
		c.toast(browser.ToastSuccess, "Page updated")

	case TypeCSSReload:
		if c.opts.Window != nil {
			n := c.opts.Window.ReloadStylesheets()
			c.logger.Debug(ctx, "Reloaded stylesheets", "count", n)
		}
		c.toast(browser.ToastInfo, "CSS reloaded")

	case TypeError:
		c.logger.Warn(ctx, nil, "Hot reload error", "message", msg.Message)
		c.banner(browser.BannerHotReloadError, msg.Message)
	}
}

func (c *Client) toast(kind browser.ToastKind, message string) {
	if c.opts.Window != nil {
		c.opts.Window.Toast(kind, message)
	}
}

func (c *Client) banner(id, message string) {
	if c.opts.Window != nil {
		c.opts.Window.ShowBanner(id, message)
	}
}

func (c *Client) dismiss(id string) {
	if c.opts.Window != nil {
		c.opts.Window.DismissBanner(id)
	}
}
