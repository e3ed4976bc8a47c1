package web

import (
	"net"
	"sort"
	"sync/atomic"
	"time"

	"myohub/internal/engine"
)

// Status aggregates what /api/status reports: daemon identity and
// uptime, the configured transport, which outputs came up, and a live
// engine snapshot.
type Status struct {
	start     time.Time
	transport atomic.Value // string
	outputs   atomic.Value // []string
	engineFn  atomic.Value // func() engine.Snapshot
}

func NewStatus() *Status {
	s := &Status{start: time.Now().UTC()}
	s.transport.Store("")
	s.outputs.Store([]string(nil))
	return s
}

// SetTransport records the configured band transport kind.
func (s *Status) SetTransport(kind string) {
	s.transport.Store(kind)
}

// SetOutputs records which optional outputs came up.
func (s *Status) SetOutputs(names []string) {
	s.outputs.Store(append([]string(nil), names...))
}

// SetEngine installs the engine snapshot source.
func (s *Status) SetEngine(fn func() engine.Snapshot) {
	if fn != nil {
		s.engineFn.Store(fn)
	}
}

// EngineSnapshot returns the current engine state, or a zero snapshot
// when no source is installed yet.
func (s *Status) EngineSnapshot() engine.Snapshot {
	if fn, ok := s.engineFn.Load().(func() engine.Snapshot); ok {
		return fn()
	}
	return engine.Snapshot{}
}

type StatusSnapshot struct {
	Service   string          `json:"service"`
	Version   string          `json:"version,omitempty"`
	NowUTC    string          `json:"now_utc"`
	UptimeSec int64           `json:"uptime_sec"`
	Transport string          `json:"transport"`
	Connected bool            `json:"connected"`
	Outputs   []string        `json:"outputs"`
	Addrs     []string        `json:"addrs,omitempty"`
	Engine    engine.Snapshot `json:"engine"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	snap := StatusSnapshot{
		Service:   "myohub",
		Version:   buildVersion(),
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(s.start).Seconds()),
		Transport: s.transport.Load().(string),
		Outputs:   s.outputs.Load().([]string),
		Addrs:     localAddrs(),
		Engine:    s.EngineSnapshot(),
	}
	// Connected means the transport has delivered frames; the engine
	// stamps TimeConnected on the first EMG frame.
	snap.Connected = !snap.Engine.TimeConnected.IsZero()
	return snap
}

// localAddrs lists non-loopback IPv4 addresses so a headless install
// can be found from the status output.
func localAddrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	out := make([]string, 0, 4)
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, iface.Name+": "+ip4.String())
		}
	}
	sort.Strings(out)
	return out
}
