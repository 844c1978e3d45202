// Package resolve turns the declarative stream targets into one unambiguous
// room-to-stream assignment.
//
// Streams are processed in the document's declaration order (see
// model.Document.StreamIDs); each stream's target claims a set of rooms, and
// a later stream overwrites an earlier one for any contested room. That
// last-write-wins rule is the override mechanism: declare the broad zone
// stream first and the room-specific exception after it.
package resolve

import (
	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/naming"
)

// DefaultStreamID is the stream every room falls back to when no target
// claims it.
const DefaultStreamID = "default"

// Targets resolves the complete room-to-stream mapping. The result is total
// over all rooms: rooms matched by no target map to the default stream's
// display name.
func Targets(doc *model.Document) map[string]string {
	assignment := make(map[string]string, len(doc.Rooms))

	fallback := defaultStreamName(doc)
	for roomID := range doc.Rooms {
		assignment[roomID] = fallback
	}

	for _, streamID := range doc.StreamIDs() {
		target, ok := doc.Snapcast.StreamTargets[streamID]
		if !ok {
			continue
		}
		name := naming.StreamDisplayName(streamID, doc.Snapcast.Streams[streamID])
		for roomID := range TargetRooms(doc, target) {
			assignment[roomID] = name
		}
	}

	return assignment
}

// TargetRooms expands one stream target into the set of rooms it claims:
// the union of its explicit room list and its zone expansions. A zone with
// the include-all flag short-circuits to every room outright; wildcard wins,
// it does not merge.
func TargetRooms(doc *model.Document, target *model.StreamTarget) map[string]bool {
	rooms := make(map[string]bool)
	for _, roomID := range target.Rooms {
		if _, ok := doc.Rooms[roomID]; ok {
			rooms[roomID] = true
		}
	}

	for _, zoneID := range target.Zones {
		zone, ok := doc.Zones[zoneID]
		if !ok {
			continue
		}
		if zone.IncludeAll {
			all := make(map[string]bool, len(doc.Rooms))
			for roomID := range doc.Rooms {
				all[roomID] = true
			}
			return all
		}
		for roomID, room := range doc.Rooms {
			if room.InZone(zoneID) {
				rooms[roomID] = true
			}
		}
	}

	return rooms
}

// defaultStreamName resolves the display name of the default stream,
// tolerating documents that never declare one.
func defaultStreamName(doc *model.Document) string {
	if stream, ok := doc.Snapcast.Streams[DefaultStreamID]; ok {
		return naming.StreamDisplayName(DefaultStreamID, stream)
	}
	return naming.StreamDisplayName(DefaultStreamID, &model.Stream{Type: model.StreamTypePipe})
}
