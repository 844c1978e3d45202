package snapcast

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"
)

// fakeServer accepts one connection per call, records the decoded request and
// replies with a canned result or error.
type fakeServer struct {
	ln       net.Listener
	requests chan request
	result   string
	rpcErr   *RPCError
}

func newFakeServer(t *testing.T, result string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	fs := &fakeServer{ln: ln, requests: make(chan request, 8), result: result}
	go fs.serve()
	return fs
}

func (fs *fakeServer) serve() {
	for {
		conn, err := fs.ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			line, err := bufio.NewReader(conn).ReadBytes('\n')
			if err != nil {
				return
			}
			var req request
			if err := json.Unmarshal(line, &req); err != nil {
				return
			}
			fs.requests <- req
			var reply string
			if fs.rpcErr != nil {
				body, _ := json.Marshal(fs.rpcErr)
				reply = fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","error":%s}`, req.ID, body)
			} else {
				reply = fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","result":%s}`, req.ID, fs.result)
			}
			fmt.Fprintf(conn, "%s\r\n", reply)
		}(conn)
	}
}

func (fs *fakeServer) client(t *testing.T) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(fs.ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return New(host, port).WithTimeout(2 * time.Second)
}

func (fs *fakeServer) lastRequest(t *testing.T) request {
	t.Helper()
	select {
	case req := <-fs.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no request received")
		return request{}
	}
}

const statusResult = `{"server":{"groups":[{"id":"g1","name":"","stream_id":"default","muted":false,"clients":[{"id":"aa:bb","connected":true,"config":{"name":"room_kitchen","latency":0,"volume":{"percent":70,"muted":false}},"host":{"name":"pi-kitchen","ip":"10.0.0.5"}},{"id":"cc:dd","connected":true,"config":{"name":"","latency":0,"volume":{"percent":100,"muted":false}},"host":{"name":"pi-office","ip":"10.0.0.6"}}]}],"streams":[{"id":"default","status":"idle"}]}}`

func TestServerStatus(t *testing.T) {
	fs := newFakeServer(t, statusResult)
	c := fs.client(t)

	status, err := c.ServerStatus(context.Background())
	if err != nil {
		t.Fatalf("ServerStatus: %v", err)
	}

	req := fs.lastRequest(t)
	if req.Method != "Server.GetStatus" {
		t.Errorf("method = %q, want Server.GetStatus", req.Method)
	}
	if req.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q", req.JSONRPC)
	}

	if len(status.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(status.Groups))
	}
	names := status.ClientNames()
	if len(names) != 2 || names[0] != "room_kitchen" || names[1] != "pi-office" {
		t.Errorf("client names = %v", names)
	}

	g, cl := status.GroupOf("room_kitchen")
	if g == nil || g.ID != "g1" {
		t.Fatalf("GroupOf(room_kitchen) group = %+v", g)
	}
	if cl.ID != "aa:bb" || cl.Config.Volume.Percent != 70 {
		t.Errorf("GroupOf(room_kitchen) client = %+v", cl)
	}
	if g, _ := status.GroupOf("nope"); g != nil {
		t.Errorf("GroupOf(nope) = %+v, want nil", g)
	}
}

func TestSetCommands(t *testing.T) {
	fs := newFakeServer(t, `{}`)
	c := fs.client(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantParams map[string]any
	}{
		{
			name:       "group stream",
			call:       func() error { return c.SetGroupStream(ctx, "g1", "spotify") },
			wantMethod: "Group.SetStream",
			wantParams: map[string]any{"id": "g1", "stream_id": "spotify"},
		},
		{
			name:       "group name",
			call:       func() error { return c.SetGroupName(ctx, "g1", "Kitchen") },
			wantMethod: "Group.SetName",
			wantParams: map[string]any{"id": "g1", "name": "Kitchen"},
		},
		{
			name:       "group mute",
			call:       func() error { return c.SetGroupMute(ctx, "g1", true) },
			wantMethod: "Group.SetMute",
			wantParams: map[string]any{"id": "g1", "mute": true},
		},
		{
			name:       "client name",
			call:       func() error { return c.SetClientName(ctx, "aa:bb", "room_kitchen") },
			wantMethod: "Client.SetName",
			wantParams: map[string]any{"id": "aa:bb", "name": "room_kitchen"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err != nil {
				t.Fatalf("call: %v", err)
			}
			req := fs.lastRequest(t)
			if req.Method != tc.wantMethod {
				t.Errorf("method = %q, want %q", req.Method, tc.wantMethod)
			}
			for k, want := range tc.wantParams {
				if got := req.Params[k]; got != want {
					t.Errorf("param %s = %v, want %v", k, got, want)
				}
			}
		})
	}
}

func TestSetClientVolume(t *testing.T) {
	fs := newFakeServer(t, `{}`)
	c := fs.client(t)

	if err := c.SetClientVolume(context.Background(), "aa:bb", 55, false); err != nil {
		t.Fatalf("SetClientVolume: %v", err)
	}
	req := fs.lastRequest(t)
	if req.Method != "Client.SetVolume" {
		t.Errorf("method = %q", req.Method)
	}
	vol, ok := req.Params["volume"].(map[string]any)
	if !ok {
		t.Fatalf("volume param = %T", req.Params["volume"])
	}
	if vol["percent"] != float64(55) || vol["muted"] != false {
		t.Errorf("volume = %v", vol)
	}
}

func TestRPCErrorSurfaced(t *testing.T) {
	fs := newFakeServer(t, `{}`)
	fs.rpcErr = &RPCError{Code: -32603, Message: "Client not found"}
	c := fs.client(t)

	err := c.SetClientName(context.Background(), "nope", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error type = %T", err)
	}
	if rpcErr.Code != -32603 {
		t.Errorf("code = %d", rpcErr.Code)
	}
	fs.lastRequest(t)
}

func TestConnectFailure(t *testing.T) {
	c := New("127.0.0.1", 1).WithTimeout(500 * time.Millisecond)
	if _, err := c.ServerStatus(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
}

func TestRequestIDsIncrement(t *testing.T) {
	fs := newFakeServer(t, `{}`)
	c := fs.client(t)
	ctx := context.Background()

	if err := c.SetGroupMute(ctx, "g", false); err != nil {
		t.Fatal(err)
	}
	first := fs.lastRequest(t).ID
	if err := c.SetGroupMute(ctx, "g", false); err != nil {
		t.Fatal(err)
	}
	second := fs.lastRequest(t).ID
	if second != first+1 {
		t.Errorf("ids = %d, %d, want consecutive", first, second)
	}
}
