package snapcast

// Server is the status snapshot returned by Server.GetStatus, trimmed to the
// fields the reconciler and the HTTP API consume.
type Server struct {
	Groups  []Group  `json:"groups"`
	Streams []Stream `json:"streams"`
}

// Group is a set of clients bound to one stream.
type Group struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	StreamID string         `json:"stream_id"`
	Muted    bool           `json:"muted"`
	Clients  []ClientStatus `json:"clients"`
}

// ClientStatus is one connected (or recently seen) snapclient endpoint.
type ClientStatus struct {
	ID        string       `json:"id"`
	Connected bool         `json:"connected"`
	Config    ClientConfig `json:"config"`
	Host      Host         `json:"host"`
}

// ClientConfig holds the server-side per-client settings.
type ClientConfig struct {
	Name    string `json:"name"`
	Latency int    `json:"latency"`
	Volume  Volume `json:"volume"`
}

// Volume is a client volume setting.
type Volume struct {
	Percent int  `json:"percent"`
	Muted   bool `json:"muted"`
}

// Host identifies the machine a client runs on.
type Host struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// Stream is one configured audio source.
type Stream struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DisplayName returns the configured client name, falling back to the host
// name when none was assigned yet.
func (c ClientStatus) DisplayName() string {
	if c.Config.Name != "" {
		return c.Config.Name
	}
	return c.Host.Name
}

// GroupOf finds the group containing the client with the given display name.
func (s *Server) GroupOf(name string) (*Group, *ClientStatus) {
	for i := range s.Groups {
		g := &s.Groups[i]
		for j := range g.Clients {
			if g.Clients[j].DisplayName() == name {
				return g, &g.Clients[j]
			}
		}
	}
	return nil, nil
}

// ClientNames lists the display names of every client on the server.
func (s *Server) ClientNames() []string {
	var names []string
	for _, g := range s.Groups {
		for _, c := range g.Clients {
			names = append(names, c.DisplayName())
		}
	}
	return names
}
