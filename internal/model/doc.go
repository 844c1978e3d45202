// Package model defines the declarative topology document for the multi-room
// audio installation: amplifiers, speakers, rooms, zones, snapcast streams and
// stream targets, plus global settings.
//
// The document is a single JSON file (format version "2.0") that is loaded
// once per compiler or reconciler run and treated as read-only for the
// duration of that run. Mutation goes through the Store, which rewrites the
// whole file and keeps a backup copy of the previous version.
//
// # Validation
//
// Structural errors that would make the generated routing graph ambiguous or
// wrong (a speaker referencing an unknown amplifier, a channel index outside
// the amplifier's channel count, two speakers claiming the same channel) are
// fatal and reported together via ValidationError. Rooms without speakers are
// inert, not errors.
//
// # Ordering
//
// JSON objects carry no order, but stream precedence in target resolution is
// "later declaration wins". Load therefore captures the declaration order of
// the snapcast.streams keys with a token-level scan and exposes it through
// Document.StreamIDs.
package model
