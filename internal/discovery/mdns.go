// Package discovery locates a snapserver on the local network via mDNS.
//
// Snapserver advertises its JSON-RPC endpoint as _snapcast._tcp; when the
// daemon config names no host, the first responder wins.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

const serviceType = "_snapcast._tcp"

// ServerInfo is a discovered snapserver endpoint.
type ServerInfo struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// query is swapped out in tests.
var query = mdns.Query

// Find queries for snapservers and returns the first one that answers.
func Find(ctx context.Context, timeout time.Duration, log zerolog.Logger) (*ServerInfo, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	entries := make(chan *mdns.ServiceEntry, 10)
	errc := make(chan error, 1)
	go func() {
		errc <- query(&mdns.QueryParam{
			Service:     serviceType,
			Domain:      "local",
			Timeout:     timeout,
			Entries:     entries,
			DisableIPv6: true,
		})
		close(entries)
	}()

	var first *ServerInfo
	for entry := range entries {
		if entry.AddrV4 == nil {
			continue
		}
		if first == nil {
			first = &ServerInfo{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
			}
			log.Info().Str("name", first.Name).Str("host", first.Host).Int("port", first.Port).
				Msg("snapserver discovered")
		}
	}

	if err := <-errc; err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if first == nil {
		return nil, fmt.Errorf("no snapserver found via mdns")
	}
	return first, nil
}
