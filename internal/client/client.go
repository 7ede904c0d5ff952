package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/ecs-league/draftboard/internal/wire"
)

var ErrNoConnection = errors.New("no connection to draft server")

const reconnectEvery = 3 * time.Second

type Options struct {
	League    string
	Token     string
	HTTPBase  string // REST fallback base URL; empty disables the fallback
	Notifier  Notifier
	Confirmer Confirmer
	Log       *zap.Logger
}

// Client owns the socket to the draft server and wires the projection,
// coordinator and reconciler together. On connection loss it redials
// and rejoins; the server answers a join with a full snapshot, which
// re-syncs the projection.
type Client struct {
	wsURL string
	opts  Options
	proj  *Projection
	coord *Coordinator
	recon *Reconciler
	log   *zap.Logger
	httpc *http.Client

	mu   sync.Mutex
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
}

func Dial(ctx context.Context, wsURL string, opts Options) (*Client, error) {
	if opts.League == "" {
		return nil, errors.New("league is required")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		wsURL:  wsURL,
		opts:   opts,
		log:    log.With(zap.String("league", opts.League)),
		httpc:  &http.Client{Timeout: 10 * time.Second},
		ctx:    cctx,
		cancel: cancel,
	}
	c.proj = NewProjection(c.log)
	c.recon = NewReconciler(c.proj, opts.Notifier, c.log)
	c.coord = NewCoordinator(c.proj, c, opts.League, opts.Notifier, opts.Confirmer, c.log)

	conn, err := c.dial(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	c.setConn(conn)
	if err := c.join(ctx, conn); err != nil {
		conn.Close(websocket.StatusInternalError, "join failed")
		cancel()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// Board exposes the local projection for rendering.
func (c *Client) Board() *Projection { return c.proj }

// Coordinator exposes the input pipeline: clicks, drags and removals
// all go through it.
func (c *Client) Coordinator() *Coordinator { return c.coord }

func (c *Client) Close() error {
	c.cancel()
	if conn := c.getConn(); conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return nil
}

// Publish sends an operation to the server: over the socket when
// connected, through the REST fallback otherwise.
func (c *Client) Publish(ctx context.Context, msg wire.Message) error {
	if conn := c.getConn(); conn != nil {
		payload, err := wire.Encode(msg)
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err == nil {
			return nil
		}
		// Socket write failed; the read loop will notice and redial.
	}
	return c.publishREST(ctx, msg)
}

func (c *Client) publishREST(ctx context.Context, msg wire.Message) error {
	if c.opts.HTTPBase == "" {
		return ErrNoConnection
	}

	var path string
	switch msg.MessageType() {
	case wire.TypeDraftPlayer:
		path = "/draft"
	case wire.TypeRemovePlayer:
		path = "/remove"
	case wire.TypeUpdatePosition:
		path = "/position"
	default:
		return fmt.Errorf("%w: no REST fallback for %s", ErrNoConnection, msg.MessageType())
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/leagues/%s%s", c.opts.HTTPBase, url.PathEscape(c.opts.League), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("draft request rejected: %s: %s", resp.Status, bytes.TrimSpace(data))
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := c.wsURL
	if c.opts.Token != "" {
		sep := "?"
		if parsed, err := url.Parse(u); err == nil && parsed.RawQuery != "" {
			sep = "&"
		}
		u += sep + "token=" + url.QueryEscape(c.opts.Token)
	}
	conn, _, err := websocket.Dial(ctx, u, nil)
	return conn, err
}

func (c *Client) join(ctx context.Context, conn *websocket.Conn) error {
	payload, err := wire.Encode(wire.JoinDraftRoom{LeagueName: c.opts.League})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

func (c *Client) readLoop() {
	for {
		conn := c.getConn()
		if conn == nil {
			if !c.reconnect() {
				return
			}
			continue
		}

		_, data, err := conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn("connection lost", zap.Error(err))
			c.setConn(nil)
			continue
		}

		msg, err := wire.DecodeServer(data)
		if err != nil {
			c.log.Warn("dropping undecodable server message", zap.Error(err))
			continue
		}
		c.recon.HandleMessage(msg)
	}
}

// reconnect redials until it succeeds or the client is closed. The
// rejoin triggers a fresh snapshot from the server.
func (c *Client) reconnect() bool {
	for {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(reconnectEvery):
		}

		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		conn, err := c.dial(ctx)
		if err == nil {
			err = c.join(ctx, conn)
		}
		cancel()
		if err != nil {
			c.log.Warn("reconnect attempt failed", zap.Error(err))
			if conn != nil {
				conn.Close(websocket.StatusInternalError, "rejoin failed")
			}
			continue
		}

		c.log.Info("reconnected to draft room")
		c.setConn(conn)
		return true
	}
}

func (c *Client) getConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
