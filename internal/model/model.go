package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Version is the only document format version this code operates on. Older
// documents must be migrated by the external tooling before use.
const Version = "2.0"

// DefaultMaxVolume is the global volume ceiling applied when the document
// does not set one.
const DefaultMaxVolume = 0.5

// DefaultChannels is the channel count assumed for an amplifier that does not
// declare one.
const DefaultChannels = 8

// StreamType tags a snapcast stream source kind. The set is closed; anything
// else is handled as unrecognized (skipped with a visible marker, never a
// hard failure).
type StreamType string

const (
	StreamTypePipe      StreamType = "pipe"
	StreamTypeLibrespot StreamType = "librespot"
	StreamTypeAirplay   StreamType = "airplay"
	StreamTypeProcess   StreamType = "process"
	StreamTypeTCP       StreamType = "tcp"
	StreamTypeALSA      StreamType = "alsa"
)

// Known reports whether t is one of the recognized stream types.
func (t StreamType) Known() bool {
	switch t {
	case StreamTypePipe, StreamTypeLibrespot, StreamTypeAirplay,
		StreamTypeProcess, StreamTypeTCP, StreamTypeALSA:
		return true
	}
	return false
}

// Amplifier is a physical multi-channel playback device.
type Amplifier struct {
	Card     string `json:"card"`
	Channels int    `json:"channels,omitempty"`
}

// Speaker binds one logical audio feed to one amplifier channel.
// Channel is 1-based within the amplifier's channel count.
type Speaker struct {
	Amplifier string `json:"amplifier"`
	Channel   int    `json:"channel"`
	Volume    *int   `json:"volume,omitempty"` // 0-100, nil means 100
	Latency   int    `json:"latency,omitempty"`
}

// EffectiveVolume returns the speaker volume percentage, defaulting to 100.
func (s *Speaker) EffectiveVolume() int {
	if s.Volume == nil {
		return 100
	}
	return *s.Volume
}

// Gain returns the attenuation coefficient for this speaker under the given
// global max-volume ceiling.
func (s *Speaker) Gain(maxVolume float64) float64 {
	return float64(s.EffectiveVolume()) / 100.0 * maxVolume
}

// Room is a stereo (or mono) listening point composed of up to two speakers.
// Left and Right name speakers by ID; either may be empty. A room with
// neither is inert and excluded from generated routing.
type Room struct {
	Name  string   `json:"name,omitempty"`
	Left  string   `json:"left,omitempty"`
	Right string   `json:"right,omitempty"`
	Zones []string `json:"zones,omitempty"`
}

// DisplayName returns the room's display name, falling back to the ID.
func (r *Room) DisplayName(id string) string {
	if r.Name != "" {
		return r.Name
	}
	return id
}

// HasSpeakers reports whether the room contributes to routing at all.
func (r *Room) HasSpeakers() bool {
	return r.Left != "" || r.Right != ""
}

// InZone reports whether the room's explicit zone list contains zoneID.
func (r *Room) InZone(zoneID string) bool {
	for _, z := range r.Zones {
		if z == zoneID {
			return true
		}
	}
	return false
}

// Zone is a named grouping of rooms used for stream targeting. IncludeAll
// makes the zone a wildcard covering every room regardless of per-room zone
// lists.
type Zone struct {
	Name       string `json:"name,omitempty"`
	IncludeAll bool   `json:"include_all,omitempty"`
}

// Stream declares a named audio source for the playback distribution
// subsystem. Only the fields relevant to the declared Type are consulted.
type Stream struct {
	Type StreamType `json:"type"`
	Name string     `json:"name,omitempty"`

	// pipe
	Path         string `json:"path,omitempty"` // also process binary path
	SampleFormat string `json:"sampleformat,omitempty"`
	Codec        string `json:"codec,omitempty"`

	// librespot
	Bitrate       int    `json:"bitrate,omitempty"`
	InitialVolume *int   `json:"initial_volume,omitempty"`
	Cache         string `json:"cache,omitempty"`

	// airplay
	Port           int    `json:"port,omitempty"`
	ShairportPath  string `json:"shairport_path,omitempty"`
	DeviceIDOffset int    `json:"device_id_offset,omitempty"`
	ConfigFile     string `json:"config_file,omitempty"`

	// process
	Params string `json:"params,omitempty"`

	// tcp
	Host string `json:"host,omitempty"`
	Mode string `json:"mode,omitempty"`

	// alsa
	Input  string `json:"input,omitempty"`
	Device string `json:"device,omitempty"`
}

// StreamTarget routes a stream to a set of zones and/or explicit rooms. The
// key in the document matches a stream ID.
type StreamTarget struct {
	Zones []string `json:"zones,omitempty"`
	Rooms []string `json:"rooms,omitempty"`
}

// Input describes a hardware capture device referenced indirectly by
// alsa-type streams.
type Input struct {
	Card         string `json:"card,omitempty"`
	Name         string `json:"name,omitempty"`
	SampleFormat string `json:"sampleformat,omitempty"`
}

// GlobalSettings holds installation-wide configuration.
type GlobalSettings struct {
	MaxVolume *float64 `json:"max_volume,omitempty"` // 0.0-1.0, nil means DefaultMaxVolume
}

// Snapcast groups the stream declarations and their targeting rules.
//
// Declaration order of the streams object is semantic (see StreamIDs), so
// Snapcast carries custom JSON codecs in order.go that round-trip it.
type Snapcast struct {
	Streams       map[string]*Stream       `json:"streams,omitempty"`
	StreamTargets map[string]*StreamTarget `json:"stream_targets,omitempty"`

	// order is the declaration order of the streams keys, captured when the
	// document was decoded. Empty for documents built in memory.
	order []string
}

// Document is the complete topology model. It is loaded as one unit and
// treated as read-only for the duration of a compiler/reconciler run.
type Document struct {
	Version    string                `json:"version"`
	Global     *GlobalSettings       `json:"global,omitempty"`
	Amplifiers map[string]*Amplifier `json:"amplifiers,omitempty"`
	Speakers   map[string]*Speaker   `json:"speakers,omitempty"`
	Rooms      map[string]*Room      `json:"rooms,omitempty"`
	Zones      map[string]*Zone      `json:"zones,omitempty"`
	Inputs     map[string]*Input     `json:"inputs,omitempty"`
	Snapcast   Snapcast              `json:"snapcast,omitempty"`
}

// NewDocument returns an empty document with initialized collections.
func NewDocument() *Document {
	return &Document{
		Version:    Version,
		Amplifiers: make(map[string]*Amplifier),
		Speakers:   make(map[string]*Speaker),
		Rooms:      make(map[string]*Room),
		Zones:      make(map[string]*Zone),
		Inputs:     make(map[string]*Input),
		Snapcast: Snapcast{
			Streams:       make(map[string]*Stream),
			StreamTargets: make(map[string]*StreamTarget),
		},
	}
}

// initCollections replaces nil maps with empty ones so callers can insert
// without checking.
func (d *Document) initCollections() {
	if d.Amplifiers == nil {
		d.Amplifiers = make(map[string]*Amplifier)
	}
	if d.Speakers == nil {
		d.Speakers = make(map[string]*Speaker)
	}
	if d.Rooms == nil {
		d.Rooms = make(map[string]*Room)
	}
	if d.Zones == nil {
		d.Zones = make(map[string]*Zone)
	}
	if d.Inputs == nil {
		d.Inputs = make(map[string]*Input)
	}
	if d.Snapcast.Streams == nil {
		d.Snapcast.Streams = make(map[string]*Stream)
	}
	if d.Snapcast.StreamTargets == nil {
		d.Snapcast.StreamTargets = make(map[string]*StreamTarget)
	}
}

// applyDefaults fills in missing values with defaults.
func (d *Document) applyDefaults() {
	if d.Global == nil {
		d.Global = &GlobalSettings{}
	}
	if d.Global.MaxVolume == nil {
		v := DefaultMaxVolume
		d.Global.MaxVolume = &v
	}
	for _, amp := range d.Amplifiers {
		if amp.Channels == 0 {
			amp.Channels = DefaultChannels
		}
	}
	for _, sp := range d.Speakers {
		if sp.Volume == nil {
			v := 100
			sp.Volume = &v
		}
	}
}

// MaxVolume returns the global volume ceiling, defaulting to
// DefaultMaxVolume when unset.
func (d *Document) MaxVolume() float64 {
	if d.Global == nil || d.Global.MaxVolume == nil {
		return DefaultMaxVolume
	}
	return *d.Global.MaxVolume
}

// AmplifierIDs returns the amplifier identifiers in sorted order.
func (d *Document) AmplifierIDs() []string {
	return sortedKeys(d.Amplifiers)
}

// RoomIDs returns the room identifiers in sorted order.
func (d *Document) RoomIDs() []string {
	return sortedKeys(d.Rooms)
}

// StreamIDs returns the stream identifiers in declaration order when the
// document was loaded from disk, falling back to sorted order for documents
// assembled in memory. Streams added after load sort after the captured
// prefix. This order is the precedence contract for target resolution: later
// streams override earlier ones for contested rooms.
func (d *Document) StreamIDs() []string {
	return d.Snapcast.StreamIDs()
}

// StreamIDs returns the stream identifiers in declaration order with
// later additions sorted after the captured prefix.
func (sc *Snapcast) StreamIDs() []string {
	ids := make([]string, 0, len(sc.Streams))
	seen := make(map[string]bool, len(sc.Streams))
	for _, id := range sc.order {
		if _, ok := sc.Streams[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range sc.Streams {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// SortedStreamIDs returns the stream identifiers in sorted order, used where
// stable artifact output matters more than declaration order.
func (d *Document) SortedStreamIDs() []string {
	return sortedKeys(d.Snapcast.Streams)
}

// Clone returns a deep copy of the document. The JSON round trip preserves
// the captured stream declaration order because the Snapcast codecs do.
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	var copied Document
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	copied.initCollections()
	copied.applyDefaults()
	return &copied, nil
}

// SetStreamOrder overrides the captured stream declaration order. Intended
// for tests and for callers that assemble documents programmatically.
func (d *Document) SetStreamOrder(ids []string) {
	d.Snapcast.order = append([]string(nil), ids...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
