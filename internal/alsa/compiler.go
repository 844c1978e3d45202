package alsa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/naming"
)

// Result is a compiled ALSA configuration plus the amplifier-to-card side
// table used for diagnostics and operator output.
type Result struct {
	Config string
	// Cards maps amplifier ID to the resolved ALSA card name, after
	// de-duplicating amplifiers that share a base card label.
	Cards map[string]string
}

// Compile translates the topology into ALSA configuration text. It validates
// the document first and emits nothing on error.
func Compile(doc *model.Document) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	cards := resolveCards(doc)
	rooms := resolveRooms(doc)

	var b strings.Builder
	b.WriteString(`
#########################################
# AUTO-GENERATED MULTIROOM SPEAKER CONFIG
# Do not edit; regenerate from the topology document.
#########################################
`)

	writeAmplifiers(&b, doc, cards)

	b.WriteString(`
#########################################
# ROOM DEFINITIONS
#########################################
`)
	for _, room := range rooms {
		writeRoom(&b, room)
	}

	writeAllRooms(&b, rooms)

	return &Result{Config: b.String(), Cards: cards}, nil
}

// resolveCards assigns each amplifier its ALSA card name. Several identical
// USB devices enumerate under one base label; the kernel suffixes the second
// and later ones with _1, _2, ... in enumeration order, which we mirror by
// processing amplifiers sorted by ID.
func resolveCards(doc *model.Document) map[string]string {
	counts := make(map[string]int)
	cards := make(map[string]string, len(doc.Amplifiers))
	for _, id := range doc.AmplifierIDs() {
		base := doc.Amplifiers[id].Card
		if base == "" {
			base = "GAB8"
		}
		if n := counts[base]; n == 0 {
			cards[id] = base
		} else {
			cards[id] = fmt.Sprintf("%s_%d", base, n)
		}
		counts[base]++
	}
	return cards
}

// ipcKey derives the dmix IPC key for an amplifier. Keys only need to be
// distinct per device; the 10<last digit> scheme predates this generator and
// is kept for compatibility with existing installs.
func ipcKey(ampID string) string {
	last := byte('0')
	if len(ampID) > 0 {
		if c := ampID[len(ampID)-1]; c >= '0' && c <= '9' {
			last = c
		}
	}
	return "10" + string(last)
}

func writeAmplifiers(b *strings.Builder, doc *model.Document, cards map[string]string) {
	if len(doc.Amplifiers) == 0 {
		return
	}

	b.WriteString(`
#########################################
# AMPLIFIER DEFINITIONS
#########################################
`)

	maxVol := formatGain(doc.MaxVolume())
	for _, id := range doc.AmplifierIDs() {
		amp := doc.Amplifiers[id]
		fmt.Fprintf(b, `
# %s - %s (%d channels)
pcm.%s {
    type hw
    card %s
    device 0
}

pcm.%s_dmix {
    type dmix
    ipc_key %s
    ipc_perm 0666
    slave {
        pcm "%s"
        channels %d
        rate 48000
        period_size 2048
        buffer_size 16384
    }
}
`, id, cards[id], amp.Channels, id, cards[id], id, ipcKey(id), id, amp.Channels)

		// Per-channel devices for speaker identification. These route a
		// single channel at the global ceiling and exist independently of
		// any room assignment.
		for ch := 1; ch <= amp.Channels; ch++ {
			fmt.Fprintf(b, `
pcm.%s_ch%d_raw {
    type route
    slave.pcm "%s_dmix"
    slave.channels %d
    ttable.0.%d %s
    ttable.1.%d %s
}

pcm.%s_ch%d {
    type plug
    slave.pcm "%s_ch%d_raw"
}
`, id, ch, id, amp.Channels, ch-1, maxVol, ch-1, maxVol, id, ch, id, ch)
		}
	}
}

// formatGain renders an attenuation coefficient the way ALSA expects it,
// without trailing zeros.
func formatGain(g float64) string {
	return strconv.FormatFloat(g, 'g', -1, 64)
}

// speakerBinding is one speaker resolved down to its hardware coordinates.
type speakerBinding struct {
	Amplifier string
	Channels  int     // channel count of the amplifier, for slave.channels
	Channel   int     // 0-based
	Gain      float64 // volume/100 * global max volume
}

// roomRouting is a room with its speaker references resolved. Rooms without
// any speaker are dropped before this point.
type roomRouting struct {
	ID    string
	Name  string
	Left  *speakerBinding
	Right *speakerBinding
}

func (r *roomRouting) split() bool {
	return r.Left != nil && r.Right != nil && r.Left.Amplifier != r.Right.Amplifier
}

// resolveRooms produces the routable rooms in sorted ID order.
func resolveRooms(doc *model.Document) []*roomRouting {
	var rooms []*roomRouting
	for _, id := range doc.RoomIDs() {
		room := doc.Rooms[id]
		rr := &roomRouting{ID: id, Name: room.DisplayName(id)}
		rr.Left = resolveSpeaker(doc, room.Left)
		rr.Right = resolveSpeaker(doc, room.Right)
		if rr.Left == nil && rr.Right == nil {
			continue
		}
		rooms = append(rooms, rr)
	}
	return rooms
}

func resolveSpeaker(doc *model.Document, speakerID string) *speakerBinding {
	if speakerID == "" {
		return nil
	}
	sp, ok := doc.Speakers[speakerID]
	if !ok {
		return nil
	}
	amp := doc.Amplifiers[sp.Amplifier]
	return &speakerBinding{
		Amplifier: sp.Amplifier,
		Channels:  amp.Channels,
		Channel:   sp.Channel - 1,
		Gain:      sp.Gain(doc.MaxVolume()),
	}
}

func writeRoom(b *strings.Builder, room *roomRouting) {
	switch {
	case room.Left != nil && room.Right != nil && !room.split():
		writeStereoRoom(b, room)
	case room.split():
		writeSplitRoom(b, room)
	case room.Left != nil:
		writeMonoRoom(b, room, room.Left, naming.SideLeft)
	default:
		writeMonoRoom(b, room, room.Right, naming.SideRight)
	}
}

// writeStereoRoom handles both speakers on one amplifier: a single 2-channel
// route off the shared dmix. The route device carries the _internal_ prefix
// so snapclient's substring matching on "room_" only sees the plug wrapper.
func writeStereoRoom(b *strings.Builder, room *roomRouting) {
	device := naming.RoomDevice(room.ID)
	fmt.Fprintf(b, `
#########
# %s - Stereo (same device: %s)
#########

pcm.%s {
    type route
    slave.pcm "%s_dmix"
    slave.channels %d
    ttable.0.%d %s
    ttable.1.%d %s
}

pcm.%s {
    type plug
    slave.pcm "%s"
}
`, device, room.Left.Amplifier,
		naming.Internal(room.ID), room.Left.Amplifier, room.Left.Channels,
		room.Left.Channel, formatGain(room.Left.Gain),
		room.Right.Channel, formatGain(room.Right.Gain),
		device, naming.Internal(room.ID))
}

// writeSplitRoom handles speakers on two different amplifiers. ALSA's route
// construct cannot span cards, so each side gets an independent mono device
// driven by its own snapclient instance; the nominal room device aliases the
// left side for single-stream diagnostic playback.
func writeSplitRoom(b *strings.Builder, room *roomRouting) {
	fmt.Fprintf(b, `
#########
# %s - Cross-device stereo: %s ch%d + %s ch%d
# Use %s and %s with separate snapclients
#########
`, naming.RoomDevice(room.ID),
		room.Left.Amplifier, room.Left.Channel+1,
		room.Right.Amplifier, room.Right.Channel+1,
		naming.SpeakerDevice(room.ID, naming.SideLeft),
		naming.SpeakerDevice(room.ID, naming.SideRight))

	writeSide := func(side naming.Side, sp *speakerBinding) {
		internal := naming.Internal(room.ID + "_" + string(side))
		fmt.Fprintf(b, `
pcm.%s {
    type route
    slave.pcm "%s_dmix"
    slave.channels %d
    ttable.0.%d %s
    ttable.1.%d %s
}

pcm.%s {
    type plug
    slave.pcm "%s"
}
`, internal, sp.Amplifier, sp.Channels,
			sp.Channel, formatGain(sp.Gain),
			sp.Channel, formatGain(sp.Gain),
			naming.SpeakerDevice(room.ID, side), internal)
	}
	writeSide(naming.SideLeft, room.Left)
	writeSide(naming.SideRight, room.Right)

	fmt.Fprintf(b, `
# Combined device for testing (mono mix to left speaker only)
pcm.%s {
    type plug
    slave.pcm "%s"
}
`, naming.RoomDevice(room.ID), naming.Internal(room.ID+"_left"))
}

// writeMonoRoom duplicates a lone speaker's channel onto both stereo
// positions, a centered mono room.
func writeMonoRoom(b *strings.Builder, room *roomRouting, sp *speakerBinding, side naming.Side) {
	device := naming.RoomDevice(room.ID)
	fmt.Fprintf(b, `
#########
# %s - Mono (%s only on %s)
#########

pcm.%s {
    type route
    slave.pcm "%s_dmix"
    slave.channels %d
    ttable.0.%d %s
    ttable.1.%d %s
}

pcm.%s {
    type plug
    slave.pcm "%s"
}
`, device, side, sp.Amplifier,
		naming.Internal(room.ID), sp.Amplifier, sp.Channels,
		sp.Channel, formatGain(sp.Gain),
		sp.Channel, formatGain(sp.Gain),
		device, naming.Internal(room.ID))
}
