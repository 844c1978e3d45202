// Package naming defines the shared naming grammar that ties the generated
// artifacts to the live snapcast clients.
//
// ALSA room devices and the snapclient instances playing into them are named
// "room_<id>", with split cross-device stereo rooms running one client per
// side as "room_<id>_left" and "room_<id>_right". Stream display names follow
// a per-type convention that the source compiler and the reconciler must
// agree on exactly, or group assignment silently misses.
package naming

import (
	"strings"

	"github.com/tobsch/snappy/internal/model"
)

// Side identifies the stereo position of a split room's client.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Title returns the capitalized suffix used in display names ("Left",
// "Right").
func (s Side) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// RoomDevice returns the ALSA device / snapclient name for a room.
func RoomDevice(roomID string) string {
	return "room_" + roomID
}

// SplitRoomDevice returns the per-side ALSA/snapclient name for a room whose
// speakers live on different amplifiers.
func SplitRoomDevice(roomID string, side Side) string {
	return "room_" + roomID + "_" + string(side)
}

// SpeakerDevice returns the per-side ALSA playback device for a split room.
// A distinct prefix keeps snapclient's device matching from confusing the
// side devices with the room alias.
func SpeakerDevice(roomID string, side Side) string {
	return "speaker_" + roomID + "_" + string(side)
}

// Internal returns the hidden routing device name backing a public plug
// device.
func Internal(name string) string {
	return "_internal_" + name
}

// ParseRoomDevice decomposes a name following the room grammar. It reports
// the room ID, the side for split rooms (empty otherwise), and whether the
// name matched the grammar for the given room at all.
func ParseRoomDevice(name, roomID string) (side Side, ok bool) {
	base := RoomDevice(roomID)
	if name == base {
		return "", true
	}
	rest, found := strings.CutPrefix(name, base+"_")
	if !found {
		return "", false
	}
	switch Side(rest) {
	case SideLeft, SideRight:
		return Side(rest), true
	}
	return "", false
}

// StreamDisplayName derives the externally visible name for a stream. The
// same rule runs in the source compiler (snapserver.conf source names) and in
// the reconciler (Group.SetStream arguments); keep them in lock-step.
func StreamDisplayName(id string, stream *model.Stream) string {
	name := stream.Name
	if name == "" {
		name = id
	}

	switch stream.Type {
	case model.StreamTypeLibrespot:
		return "Spotify " + name
	case model.StreamTypeAirplay:
		return "AirPlay " + name
	case model.StreamTypePipe:
		if id == "default" {
			return "Default"
		}
	}
	return name
}
