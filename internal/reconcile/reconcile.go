// Package reconcile drives a live snapserver toward the state the document
// describes: every room's snapclient carries the room's display name, and
// every client's group plays the stream the targets resolve to.
//
// The run is best effort. Clients that never show up are reported, not fatal,
// and individual command failures are collected and skipped so one dead
// endpoint cannot block the rest of the house.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/naming"
	"github.com/tobsch/snappy/internal/resolve"
	"github.com/tobsch/snappy/internal/snapcast"
)

// Commander is the slice of the snapcast API the reconciler issues.
type Commander interface {
	ServerStatus(ctx context.Context) (*snapcast.Server, error)
	SetClientName(ctx context.Context, clientID, name string) error
	SetGroupStream(ctx context.Context, groupID, streamID string) error
	SetGroupName(ctx context.Context, groupID, name string) error
}

// PollPolicy bounds the discovery wait for expected clients.
type PollPolicy struct {
	Interval time.Duration
	Deadline time.Duration
}

// DefaultPollPolicy polls once a second for up to thirty seconds.
var DefaultPollPolicy = PollPolicy{Interval: time.Second, Deadline: 30 * time.Second}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultPollPolicy.Interval
	}
	if p.Deadline <= 0 {
		p.Deadline = DefaultPollPolicy.Deadline
	}
	return p
}

// Endpoint is one snapclient the document expects to exist: stereo and mono
// rooms run a single client named after the room, split cross-device rooms
// run one client per side.
type Endpoint struct {
	ClientID string // grammar name the client announces, e.g. "room_kitchen_left"
	RoomID   string
	Side     naming.Side // empty for single-client rooms
	Name     string      // display name to assign, e.g. "Kitchen Left"
}

// Endpoints derives the expected client set from the document, in sorted room
// order. Inert rooms contribute nothing.
func Endpoints(doc *model.Document) []Endpoint {
	var endpoints []Endpoint
	for _, roomID := range doc.RoomIDs() {
		room := doc.Rooms[roomID]
		if !room.HasSpeakers() {
			continue
		}
		display := room.DisplayName(roomID)
		if splitRoom(doc, room) {
			for _, side := range []naming.Side{naming.SideLeft, naming.SideRight} {
				endpoints = append(endpoints, Endpoint{
					ClientID: naming.SplitRoomDevice(roomID, side),
					RoomID:   roomID,
					Side:     side,
					Name:     display + " " + side.Title(),
				})
			}
			continue
		}
		endpoints = append(endpoints, Endpoint{
			ClientID: naming.RoomDevice(roomID),
			RoomID:   roomID,
			Name:     display,
		})
	}
	return endpoints
}

// splitRoom reports whether the room's two speakers live on different
// amplifiers and therefore play through separate per-side clients.
func splitRoom(doc *model.Document, room *model.Room) bool {
	if room.Left == "" || room.Right == "" {
		return false
	}
	left, lok := doc.Speakers[room.Left]
	right, rok := doc.Speakers[room.Right]
	return lok && rok && left.Amplifier != right.Amplifier
}

// Matches reports whether a live client is this endpoint. The grammar name is
// stable in the client ID, so renamed clients still match on later runs; a
// client carrying the assigned display name matches too.
func (e Endpoint) Matches(c snapcast.ClientStatus) bool {
	if c.DisplayName() == e.Name {
		return true
	}
	for _, candidate := range []string{c.ID, c.DisplayName()} {
		if side, ok := naming.ParseRoomDevice(candidate, e.RoomID); ok && side == e.Side {
			return true
		}
	}
	return false
}

// Failure records one command the server rejected.
type Failure struct {
	Op     string
	Target string
	Err    error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Target, f.Err)
}

// Result summarizes a reconciliation run.
type Result struct {
	Missing  []string // expected client IDs that never connected
	Renamed  int
	Assigned int
	Failures []Failure
}

// Reconciler pushes the document's grouping onto a live server.
type Reconciler struct {
	cmd  Commander
	poll PollPolicy
	log  zerolog.Logger
}

// New creates a reconciler. A zero PollPolicy uses DefaultPollPolicy.
func New(cmd Commander, poll PollPolicy, log zerolog.Logger) *Reconciler {
	return &Reconciler{cmd: cmd, poll: poll.withDefaults(), log: log}
}

// Run waits for the expected clients, names them, and assigns their groups.
// It returns an error only when no server status could be fetched at all;
// partial convergence is reported through the Result.
func (r *Reconciler) Run(ctx context.Context, doc *model.Document) (*Result, error) {
	endpoints := Endpoints(doc)
	result := &Result{}

	status, missing := r.await(ctx, endpoints)
	result.Missing = missing
	if status == nil {
		return nil, fmt.Errorf("snapcast server unreachable")
	}
	if len(missing) > 0 {
		r.log.Warn().Strs("missing", missing).Msg("proceeding without all expected clients")
	}

	r.rename(ctx, status, endpoints, result)
	r.assign(ctx, status, doc, endpoints, result)
	return result, nil
}

// await polls the server until every endpoint is visible or the deadline
// passes. It returns the last status seen and the endpoints still missing.
func (r *Reconciler) await(ctx context.Context, endpoints []Endpoint) (*snapcast.Server, []string) {
	deadline := time.Now().Add(r.poll.Deadline)
	var last *snapcast.Server
	for {
		status, err := r.cmd.ServerStatus(ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("status poll failed")
		} else {
			last = status
			missing := missingEndpoints(status, endpoints)
			if len(missing) == 0 {
				return status, nil
			}
			r.log.Debug().
				Strs("missing", missing).
				Strs("connected", status.ClientNames()).
				Msg("waiting for clients")
		}
		if time.Now().After(deadline) || sleepCtx(ctx, r.poll.Interval) != nil {
			break
		}
	}
	if last == nil {
		ids := make([]string, len(endpoints))
		for i, e := range endpoints {
			ids[i] = e.ClientID
		}
		return nil, ids
	}
	return last, missingEndpoints(last, endpoints)
}

func missingEndpoints(status *snapcast.Server, endpoints []Endpoint) []string {
	var missing []string
	for _, e := range endpoints {
		found := false
		for _, g := range status.Groups {
			for _, c := range g.Clients {
				if e.Matches(c) {
					found = true
				}
			}
		}
		if !found {
			missing = append(missing, e.ClientID)
		}
	}
	return missing
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rename sets each matched client's display name when it differs.
func (r *Reconciler) rename(ctx context.Context, status *snapcast.Server, endpoints []Endpoint, result *Result) {
	for _, e := range endpoints {
		for _, g := range status.Groups {
			for _, c := range g.Clients {
				if !e.Matches(c) {
					continue
				}
				if c.Config.Name == e.Name {
					continue
				}
				if err := r.cmd.SetClientName(ctx, c.ID, e.Name); err != nil {
					r.log.Warn().Err(err).Str("client", c.ID).Msg("rename failed")
					result.Failures = append(result.Failures, Failure{Op: "Client.SetName", Target: c.ID, Err: err})
					continue
				}
				r.log.Info().Str("client", c.ID).Str("name", e.Name).Msg("client renamed")
				result.Renamed++
			}
		}
	}
}

// assign points each matched client's group at the room's resolved stream and
// names the group after the room, once per group.
func (r *Reconciler) assign(ctx context.Context, status *snapcast.Server, doc *model.Document, endpoints []Endpoint, result *Result) {
	targets := resolve.Targets(doc)
	streamed := map[string]string{} // group ID -> stream already assigned this run
	named := map[string]bool{}

	for _, e := range endpoints {
		stream, ok := targets[e.RoomID]
		if !ok {
			continue
		}
		display := doc.Rooms[e.RoomID].DisplayName(e.RoomID)
		for _, g := range status.Groups {
			for _, c := range g.Clients {
				if !e.Matches(c) {
					continue
				}
				if streamed[g.ID] != stream {
					if err := r.cmd.SetGroupStream(ctx, g.ID, stream); err != nil {
						r.log.Warn().Err(err).Str("group", g.ID).Str("stream", stream).Msg("stream assignment failed")
						result.Failures = append(result.Failures, Failure{Op: "Group.SetStream", Target: g.ID, Err: err})
					} else {
						streamed[g.ID] = stream
						result.Assigned++
						r.log.Info().Str("room", e.RoomID).Str("stream", stream).Msg("room assigned")
					}
				}
				if !named[g.ID] {
					if err := r.cmd.SetGroupName(ctx, g.ID, display); err != nil {
						r.log.Warn().Err(err).Str("group", g.ID).Msg("group rename failed")
						result.Failures = append(result.Failures, Failure{Op: "Group.SetName", Target: g.ID, Err: err})
					} else {
						named[g.ID] = true
					}
				}
			}
		}
	}
}
