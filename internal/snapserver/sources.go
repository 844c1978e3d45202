// Package snapserver compiles the topology's stream declarations into a
// snapserver configuration. Each stream becomes one source URI; unknown
// stream types are skipped with a visible comment marker instead of failing
// the batch, so one malformed stream cannot block distribution of the rest.
package snapserver

import (
	"fmt"
	"strings"

	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/naming"
)

// Defaults mirrored by the generated sources.
const (
	defaultPipeFormat     = "48000:16:2"
	defaultLibrespotRate  = "44100:16:2" // Spotify's native rate
	defaultInitialVolume  = 50
	defaultAirplayPort    = 7000
	defaultShairportPath  = "/usr/local/bin/shairport-sync"
	defaultTCPHost        = "0.0.0.0"
	defaultTCPPort        = 4953
	defaultLibrespotCache = "/var/cache/snapserver/librespot-"
)

// SourceLine renders the snapserver source URI for one stream. doc supplies
// the inputs table for alsa-type indirection. Unknown types yield a comment
// marker rather than an error.
func SourceLine(id string, stream *model.Stream, doc *model.Document) string {
	displayName := naming.StreamDisplayName(id, stream)
	encodedName := encode(displayName)

	switch stream.Type {
	case model.StreamTypePipe:
		path := stream.Path
		if path == "" {
			path = "/tmp/snapfifo_" + id
		}
		sf := stream.SampleFormat
		if sf == "" {
			sf = defaultPipeFormat
		}
		codec := stream.Codec
		if codec == "" {
			codec = "flac"
		}
		return fmt.Sprintf("source = pipe://%s?name=%s&sampleformat=%s&codec=%s",
			path, encodedName, sf, codec)

	case model.StreamTypeLibrespot:
		deviceName := stream.Name
		if deviceName == "" {
			deviceName = id
		}
		volume := defaultInitialVolume
		if stream.InitialVolume != nil {
			volume = *stream.InitialVolume
		}
		cache := stream.Cache
		if cache == "" {
			cache = defaultLibrespotCache + id
		}
		// Bitrate is pinned to 320 kbps and the sample format to Spotify's
		// native 44100 Hz regardless of overrides; librespot cannot deliver
		// anything better.
		return fmt.Sprintf("source = librespot:///librespot?name=%s&devicename=%s&bitrate=320&cache=%s&volume=%d&sampleformat=%s",
			encodedName, deviceName, cache, volume, defaultLibrespotRate)

	case model.StreamTypeAirplay:
		deviceName := stream.Name
		if deviceName == "" {
			deviceName = id
		}
		port := stream.Port
		if port == 0 {
			// Each AirPlay 2 instance needs a distinct port; the offset
			// shifts concurrent instances off the well-known base.
			port = defaultAirplayPort + stream.DeviceIDOffset
		}
		shairport := stream.ShairportPath
		if shairport == "" {
			shairport = defaultShairportPath
		}
		if stream.ConfigFile != "" {
			// Process source with an explicit config file so each instance
			// advertises a unique device ID.
			params := fmt.Sprintf("-c %s -o stdout -a %q -p %d", stream.ConfigFile, deviceName, port)
			return fmt.Sprintf("source = process://%s?name=%s&params=%s",
				shairport, encodedName, encode(params))
		}
		return fmt.Sprintf("source = airplay://%s?name=%s&devicename=%s&port=%d&coverart=false",
			shairport, encodedName, deviceName, port)

	case model.StreamTypeProcess:
		return fmt.Sprintf("source = process://%s?name=%s&params=%s",
			stream.Path, encodedName, encode(stream.Params))

	case model.StreamTypeTCP:
		host := stream.Host
		if host == "" {
			host = defaultTCPHost
		}
		port := stream.Port
		if port == 0 {
			port = defaultTCPPort
		}
		mode := stream.Mode
		if mode == "" {
			mode = "server"
		}
		return fmt.Sprintf("source = tcp://%s:%d?name=%s&mode=%s", host, port, encodedName, mode)

	case model.StreamTypeALSA:
		device := stream.Device
		sf := stream.SampleFormat
		if input, ok := doc.Inputs[stream.Input]; stream.Input != "" && ok {
			card := input.Card
			if card == "" {
				card = stream.Input
			}
			device = "hw:" + card
			if stream.Name == "" && input.Name != "" {
				encodedName = encode(input.Name)
			}
			if sf == "" {
				sf = input.SampleFormat
			}
		}
		if device == "" {
			device = "default"
		}
		if sf == "" {
			sf = defaultPipeFormat
		}
		return fmt.Sprintf("source = alsa://?name=%s&device=%s&sampleformat=%s", encodedName, device, sf)

	default:
		return fmt.Sprintf("# Unknown type: %s for %s", stream.Type, id)
	}
}

// encode percent-encodes s with no safe characters beyond the RFC 3986
// unreserved set. url.QueryEscape is not suitable here: it turns spaces into
// '+', which snapserver takes literally.
func encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
