package naming

import (
	"testing"

	"github.com/tobsch/snappy/internal/model"
)

func TestRoomDeviceGrammar(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		roomID   string
		wantSide Side
		wantOK   bool
	}{
		{"plain room", "room_kitchen", "kitchen", "", true},
		{"left side", "room_kitchen_left", "kitchen", SideLeft, true},
		{"right side", "room_kitchen_right", "kitchen", SideRight, true},
		{"other room", "room_office", "kitchen", "", false},
		{"bad side tag", "room_kitchen_center", "kitchen", "", false},
		{"prefix only", "room_kitchenette", "kitchen", "", false},
		{"unrelated", "speaker_kitchen_left", "kitchen", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, ok := ParseRoomDevice(tt.device, tt.roomID)
			if ok != tt.wantOK || side != tt.wantSide {
				t.Errorf("ParseRoomDevice(%q, %q) = (%q, %v), want (%q, %v)",
					tt.device, tt.roomID, side, ok, tt.wantSide, tt.wantOK)
			}
		})
	}
}

func TestRoomDeviceFormat(t *testing.T) {
	if got := RoomDevice("kitchen"); got != "room_kitchen" {
		t.Errorf("RoomDevice = %q", got)
	}
	if got := SplitRoomDevice("kitchen", SideRight); got != "room_kitchen_right" {
		t.Errorf("SplitRoomDevice = %q", got)
	}
	if got := SpeakerDevice("kitchen", SideLeft); got != "speaker_kitchen_left" {
		t.Errorf("SpeakerDevice = %q", got)
	}
	if got := Internal("kitchen"); got != "_internal_kitchen" {
		t.Errorf("Internal = %q", got)
	}
	if got := SideLeft.Title(); got != "Left" {
		t.Errorf("Title = %q", got)
	}
}

func TestStreamDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		stream model.Stream
		want   string
	}{
		{"librespot gets Spotify prefix", "sp", model.Stream{Type: model.StreamTypeLibrespot, Name: "Living"}, "Spotify Living"},
		{"airplay gets AirPlay prefix", "ap", model.Stream{Type: model.StreamTypeAirplay, Name: "Kitchen"}, "AirPlay Kitchen"},
		{"default pipe is literal Default", "default", model.Stream{Type: model.StreamTypePipe}, "Default"},
		{"other pipe keeps declared name", "mpd", model.Stream{Type: model.StreamTypePipe, Name: "MPD"}, "MPD"},
		{"falls back to id", "aux", model.Stream{Type: model.StreamTypeALSA}, "aux"},
		{"prefix falls back to id too", "sp2", model.Stream{Type: model.StreamTypeLibrespot}, "Spotify sp2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreamDisplayName(tt.id, &tt.stream); got != tt.want {
				t.Errorf("StreamDisplayName(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
