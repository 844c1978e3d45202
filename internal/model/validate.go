package model

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every structural problem found in a document.
// The route compiler refuses to emit anything when validation fails, so all
// problems are collected in one pass instead of failing on the first.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid topology: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid topology (%d issues): %s",
		len(e.Issues), strings.Join(e.Issues, "; "))
}

// Validate checks the document's structural invariants. It returns a
// *ValidationError listing every violation, or nil when the document is
// sound. Rooms without speakers are inert, not errors.
func (d *Document) Validate() error {
	var issues []string

	if d.Version != Version {
		issues = append(issues, fmt.Sprintf("unsupported document version %q (want %q)", d.Version, Version))
	}

	if mv := d.MaxVolume(); mv < 0 || mv > 1 {
		issues = append(issues, fmt.Sprintf("global max_volume %v outside [0.0, 1.0]", mv))
	}

	for _, id := range d.AmplifierIDs() {
		if d.Amplifiers[id].Channels <= 0 {
			issues = append(issues, fmt.Sprintf("amplifier %q has non-positive channel count %d", id, d.Amplifiers[id].Channels))
		}
	}

	// Channel claims are unique per (amplifier, channel) pair.
	claims := make(map[string]string)
	for _, id := range sortedKeys(d.Speakers) {
		sp := d.Speakers[id]
		amp, ok := d.Amplifiers[sp.Amplifier]
		if !ok {
			issues = append(issues, fmt.Sprintf("speaker %q references unknown amplifier %q", id, sp.Amplifier))
			continue
		}
		if sp.Channel < 1 || sp.Channel > amp.Channels {
			issues = append(issues, fmt.Sprintf("speaker %q channel %d outside range 1-%d of amplifier %q",
				id, sp.Channel, amp.Channels, sp.Amplifier))
		}
		if v := sp.EffectiveVolume(); v < 0 || v > 100 {
			issues = append(issues, fmt.Sprintf("speaker %q volume %d outside [0, 100]", id, v))
		}
		key := fmt.Sprintf("%s/%d", sp.Amplifier, sp.Channel)
		if prev, taken := claims[key]; taken {
			issues = append(issues, fmt.Sprintf("speakers %q and %q both claim channel %d of amplifier %q",
				prev, id, sp.Channel, sp.Amplifier))
		} else {
			claims[key] = id
		}
	}

	for _, id := range d.RoomIDs() {
		room := d.Rooms[id]
		for _, ref := range []string{room.Left, room.Right} {
			if ref == "" {
				continue
			}
			if _, ok := d.Speakers[ref]; !ok {
				issues = append(issues, fmt.Sprintf("room %q references unknown speaker %q", id, ref))
			}
		}
		if room.Left != "" && room.Left == room.Right {
			issues = append(issues, fmt.Sprintf("room %q uses speaker %q for both positions", id, room.Left))
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
