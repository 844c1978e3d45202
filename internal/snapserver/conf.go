package snapserver

import (
	"strings"

	"github.com/tobsch/snappy/internal/model"
)

// confHeader is the static part of the generated snapserver.conf: server,
// logging, HTTP/TCP RPC and stream defaults. Source lines are appended below.
const confHeader = `###############################################################################
# Snapserver configuration - AUTO-GENERATED, do not edit.
# Regenerate from the topology document instead.
###############################################################################

# General server settings
[server]
# Number of threads to use (0 = auto)
threads = -1

# Logging
[logging]
# Log level: trace, debug, info, notice, warning, error, fatal
filter = *:info

# HTTP / Websocket / JSON-RPC settings
[http]
enabled = true
bind_to_address = 0.0.0.0
port = 1780
# Serve static web content
doc_root = /usr/share/snapserver/snapweb

# TCP JSON-RPC settings
[tcp]
enabled = true
bind_to_address = 0.0.0.0
port = 1705

# Stream settings
[stream]
# Default sample format
sampleformat = 48000:16:2
# Default codec (flac, ogg, opus, pcm)
codec = flac
# Buffer size in ms
buffer = 200
# Chunk size in ms
chunk_ms = 26
# Send audio to muted clients
send_to_muted = false

`

// Result is the compiled snapserver configuration plus the IDs of streams
// that were skipped because their type is unrecognized.
type Result struct {
	Config  string
	Skipped []string
}

// Compile renders the complete snapserver.conf for the document's streams.
// Source lines are emitted in sorted stream ID order so the artifact is
// stable across runs; target precedence is a reconciler concern, not a conf
// ordering one. Unrecognized stream types are skipped with a marker comment
// and reported in Skipped.
func Compile(doc *model.Document) *Result {
	var b strings.Builder
	b.WriteString(confHeader)
	b.WriteString("# Stream sources\n")

	var skipped []string
	for _, id := range doc.SortedStreamIDs() {
		stream := doc.Snapcast.Streams[id]
		if !stream.Type.Known() {
			skipped = append(skipped, id)
		}
		b.WriteString(SourceLine(id, stream, doc))
		b.WriteByte('\n')
	}

	return &Result{Config: b.String(), Skipped: skipped}
}
