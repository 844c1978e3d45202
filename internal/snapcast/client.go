// Package snapcast speaks the snapserver line-delimited JSON-RPC 2.0
// protocol over TCP.
//
// Every call is a single-shot connect, send, receive, close cycle with a
// fixed per-call timeout. The reconciler issues bursts of small idempotent
// "set" commands; holding a persistent connection buys nothing and loses the
// trivial failure isolation of one socket per call.
package snapcast

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultPort is snapserver's TCP JSON-RPC port.
const DefaultPort = 1705

// DefaultTimeout bounds each connect-send-receive cycle.
const DefaultTimeout = 5 * time.Second

// RPCError is an error reported by the snapserver itself, as opposed to a
// transport failure.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("snapcast error %d: %s", e.Code, e.Message)
}

type request struct {
	ID      int            `json:"id"`
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type response struct {
	ID      int             `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Client issues JSON-RPC calls against one snapserver.
type Client struct {
	addr    string
	timeout time.Duration

	mu     sync.Mutex
	nextID int
}

// New creates a client for the snapserver at host:port. A zero port selects
// DefaultPort.
func New(host string, port int) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return &Client{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: DefaultTimeout,
		nextID:  1,
	}
}

// WithTimeout overrides the per-call timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Addr returns the server address the client targets.
func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	req := request{ID: id, JSONRPC: "2.0", Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}
	payload = append(payload, '\r', '\n')

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// ServerStatus fetches the full server snapshot: groups, clients, streams.
func (c *Client) ServerStatus(ctx context.Context) (*Server, error) {
	result, err := c.call(ctx, "Server.GetStatus", nil)
	if err != nil {
		return nil, err
	}
	var status struct {
		Server Server `json:"server"`
	}
	if err := json.Unmarshal(result, &status); err != nil {
		return nil, fmt.Errorf("parse server status: %w", err)
	}
	return &status.Server, nil
}

// SetGroupStream switches a group's active stream.
func (c *Client) SetGroupStream(ctx context.Context, groupID, streamID string) error {
	_, err := c.call(ctx, "Group.SetStream", map[string]any{
		"id":        groupID,
		"stream_id": streamID,
	})
	return err
}

// SetGroupName sets a group's display name.
func (c *Client) SetGroupName(ctx context.Context, groupID, name string) error {
	_, err := c.call(ctx, "Group.SetName", map[string]any{
		"id":   groupID,
		"name": name,
	})
	return err
}

// SetGroupMute mutes or unmutes a whole group.
func (c *Client) SetGroupMute(ctx context.Context, groupID string, mute bool) error {
	_, err := c.call(ctx, "Group.SetMute", map[string]any{
		"id":   groupID,
		"mute": mute,
	})
	return err
}

// SetClientName sets a client's display name.
func (c *Client) SetClientName(ctx context.Context, clientID, name string) error {
	_, err := c.call(ctx, "Client.SetName", map[string]any{
		"id":   clientID,
		"name": name,
	})
	return err
}

// SetClientVolume sets a client's volume percentage and mute flag.
func (c *Client) SetClientVolume(ctx context.Context, clientID string, percent int, muted bool) error {
	_, err := c.call(ctx, "Client.SetVolume", map[string]any{
		"id": clientID,
		"volume": map[string]any{
			"percent": percent,
			"muted":   muted,
		},
	})
	return err
}
