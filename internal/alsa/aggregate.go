package alsa

import (
	"fmt"
	"sort"
	"strings"
)

// channelUse is one (channel, stereo position) contribution of a speaker to
// the aggregate all_rooms device.
type channelUse struct {
	Channel   int // 0-based
	StereoPos int // 0 = left, 1 = right
}

// writeAllRooms emits the combined device that plays to every configured
// speaker. A single contributing amplifier allows a plain attenuation route;
// channels spanning amplifiers need the multi plugin, since ALSA's route
// construct cannot cross cards.
func writeAllRooms(b *strings.Builder, rooms []*roomRouting) {
	if len(rooms) == 0 {
		return
	}

	// rooms arrive in sorted ID order, so the contribution lists are
	// deterministic regardless of how the source maps were populated.
	uses := make(map[string][]channelUse)
	channels := make(map[string]int)
	for _, room := range rooms {
		if room.Left != nil {
			uses[room.Left.Amplifier] = append(uses[room.Left.Amplifier],
				channelUse{Channel: room.Left.Channel, StereoPos: 0})
			channels[room.Left.Amplifier] = room.Left.Channels
		}
		if room.Right != nil {
			uses[room.Right.Amplifier] = append(uses[room.Right.Amplifier],
				channelUse{Channel: room.Right.Channel, StereoPos: 1})
			channels[room.Right.Amplifier] = room.Right.Channels
		}
	}

	if len(uses) == 1 {
		for amp, list := range uses {
			writeAllRoomsSingle(b, amp, channels[amp], list)
		}
		return
	}
	writeAllRoomsMulti(b, uses, channels)
}

// writeAllRoomsSingle routes every contributing channel off one amplifier's
// dmix. The ttable set is deduplicated and sorted; a channel may legitimately
// feed both stereo positions when it is the lone channel of a mono room.
func writeAllRoomsSingle(b *strings.Builder, amp string, ampChannels int, list []channelUse) {
	lines := make(map[string]bool)
	for _, use := range list {
		lines[fmt.Sprintf("    ttable.%d.%d 1", use.StereoPos, use.Channel)] = true
	}
	table := make([]string, 0, len(lines))
	for line := range lines {
		table = append(table, line)
	}
	sort.Strings(table)

	fmt.Fprintf(b, `
#########
# all_rooms - Play stereo to all configured speakers
#########

pcm.all_rooms_raw {
    type route
    slave.pcm "%s_dmix"
    slave.channels %d
%s
}

pcm.all_rooms {
    type plug
    slave.pcm "all_rooms_raw"
}
`, amp, ampChannels, strings.Join(table, "\n"))
}

// writeAllRoomsMulti builds a multi-plugin device with one named slave per
// contributing amplifier and sequential channel bindings across all slaves.
func writeAllRoomsMulti(b *strings.Builder, uses map[string][]channelUse, channels map[string]int) {
	amps := make([]string, 0, len(uses))
	for amp := range uses {
		amps = append(amps, amp)
	}
	sort.Strings(amps)

	var slaves, bindings []string
	bindingIdx := 0
	for i, amp := range amps {
		letter := string(rune('a' + i))
		slaves = append(slaves,
			fmt.Sprintf("    slaves.%s.pcm \"%s_dmix\"", letter, amp),
			fmt.Sprintf("    slaves.%s.channels %d", letter, channels[amp]))
		for _, use := range uses[amp] {
			bindings = append(bindings,
				fmt.Sprintf("    bindings.%d.slave %s", bindingIdx, letter),
				fmt.Sprintf("    bindings.%d.channel %d", bindingIdx, use.Channel))
			bindingIdx++
		}
	}

	fmt.Fprintf(b, `
#########
# all_rooms - Play stereo to all configured speakers (multi-device)
#########

pcm.all_rooms_multi {
    type multi
%s
%s
}

pcm.all_rooms {
    type plug
    slave.pcm "all_rooms_multi"
}
`, strings.Join(slaves, "\n"), strings.Join(bindings, "\n"))
}
