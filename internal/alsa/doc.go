// Package alsa compiles the topology model into an ALSA configuration: one
// hardware PCM and dmix mixer per amplifier, per-channel identification
// devices, one stereo (or mono) PCM per room, and an aggregate all_rooms
// device spanning every configured speaker.
//
// Compilation is all-or-nothing. A model that fails validation produces no
// output at all, so a half-broken topology can never be installed as
// /etc/asound.conf. Output is deterministic: identifiers are processed in
// sorted order throughout, and compiling a permuted but equivalent model
// yields byte-identical text.
package alsa
