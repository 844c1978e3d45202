package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

func withFakeQuery(t *testing.T, fn func(*mdns.QueryParam) error) {
	t.Helper()
	orig := query
	query = fn
	t.Cleanup(func() { query = orig })
}

func TestFindReturnsFirstResponder(t *testing.T) {
	withFakeQuery(t, func(p *mdns.QueryParam) error {
		p.Entries <- &mdns.ServiceEntry{
			Name:   "snapserver._snapcast._tcp.local.",
			AddrV4: net.IPv4(10, 0, 0, 7),
			Port:   1705,
		}
		p.Entries <- &mdns.ServiceEntry{
			Name:   "other._snapcast._tcp.local.",
			AddrV4: net.IPv4(10, 0, 0, 8),
			Port:   1705,
		}
		return nil
	})

	info, err := Find(context.Background(), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if info.Host != "10.0.0.7" || info.Port != 1705 {
		t.Errorf("info = %+v", info)
	}
}

func TestFindSkipsEntriesWithoutAddress(t *testing.T) {
	withFakeQuery(t, func(p *mdns.QueryParam) error {
		p.Entries <- &mdns.ServiceEntry{Name: "broken", Port: 1705}
		p.Entries <- &mdns.ServiceEntry{Name: "good", AddrV4: net.IPv4(10, 0, 0, 9), Port: 1705}
		return nil
	})

	info, err := Find(context.Background(), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if info.Host != "10.0.0.9" {
		t.Errorf("host = %q", info.Host)
	}
}

func TestFindNoResponders(t *testing.T) {
	withFakeQuery(t, func(p *mdns.QueryParam) error { return nil })

	if _, err := Find(context.Background(), time.Second, zerolog.Nop()); err == nil {
		t.Fatal("expected error when nothing answers")
	}
}
