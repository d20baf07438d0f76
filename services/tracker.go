package services

import (
	"time"
)

// DetectionWindow is the rolling window every signature counts over.
const DetectionWindow = 60 * time.Second

// sourceState holds the per-source sliding windows. Timestamp slices are
// FIFO ordered; trimming drops from the front, appends go to the back.
type sourceState struct {
	packets     []time.Time
	syns        []time.Time
	connections []time.Time
	icmps       []time.Time

	ports           map[uint16]struct{}
	portWindowStart time.Time

	lastSeen time.Time
}

// Tracker maintains per-source sliding-window counters for the five attack
// signatures. It is intentionally not safe for concurrent use: the capture
// loop is its only writer, and maintenance-then-record must not interleave.
type Tracker struct {
	window  time.Duration
	idleTTL time.Duration
	sources map[string]*sourceState
}

func NewTracker() *Tracker {
	return &Tracker{
		window:  DetectionWindow,
		idleTTL: 2 * DetectionWindow,
		sources: make(map[string]*sourceState),
	}
}

func (t *Tracker) state(addr string, now time.Time) *sourceState {
	st, ok := t.sources[addr]
	if !ok {
		st = &sourceState{
			ports:           make(map[uint16]struct{}),
			portWindowStart: now,
		}
		t.sources[addr] = st
	}
	return st
}

// Maintain trims every window for addr to the trailing 60 seconds and resets
// the port-scan set when its window has elapsed. It must run before any
// count is read, otherwise stale entries inflate the counts.
func (t *Tracker) Maintain(addr string, now time.Time) {
	st, ok := t.sources[addr]
	if !ok {
		return
	}

	cutoff := now.Add(-t.window)
	st.packets = trimBefore(st.packets, cutoff)
	st.syns = trimBefore(st.syns, cutoff)
	st.connections = trimBefore(st.connections, cutoff)
	st.icmps = trimBefore(st.icmps, cutoff)

	if now.Sub(st.portWindowStart) > t.window {
		st.ports = make(map[uint16]struct{})
		st.portWindowStart = now
	}
}

func trimBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}

// RecordPacket registers one packet of any kind from addr.
func (t *Tracker) RecordPacket(addr string, now time.Time) {
	st := t.state(addr, now)
	st.packets = append(st.packets, now)
	st.lastSeen = now
}

// RecordSYN registers a TCP packet carrying the SYN flag.
func (t *Tracker) RecordSYN(addr string, now time.Time) {
	st := t.state(addr, now)
	st.syns = append(st.syns, now)
	st.lastSeen = now
}

// RecordConnection registers a TCP packet as a connection event.
func (t *Tracker) RecordConnection(addr string, now time.Time) {
	st := t.state(addr, now)
	st.connections = append(st.connections, now)
	st.lastSeen = now
}

// RecordICMP registers an ICMP packet.
func (t *Tracker) RecordICMP(addr string, now time.Time) {
	st := t.state(addr, now)
	st.icmps = append(st.icmps, now)
	st.lastSeen = now
}

// RecordPort registers a distinct destination port touched by addr.
func (t *Tracker) RecordPort(addr string, port uint16, now time.Time) {
	st := t.state(addr, now)
	st.ports[port] = struct{}{}
	st.lastSeen = now
}

func (t *Tracker) PacketCount(addr string) int {
	if st, ok := t.sources[addr]; ok {
		return len(st.packets)
	}
	return 0
}

func (t *Tracker) SYNCount(addr string) int {
	if st, ok := t.sources[addr]; ok {
		return len(st.syns)
	}
	return 0
}

func (t *Tracker) ConnectionCount(addr string) int {
	if st, ok := t.sources[addr]; ok {
		return len(st.connections)
	}
	return 0
}

func (t *Tracker) ICMPCount(addr string) int {
	if st, ok := t.sources[addr]; ok {
		return len(st.icmps)
	}
	return 0
}

func (t *Tracker) PortCount(addr string) int {
	if st, ok := t.sources[addr]; ok {
		return len(st.ports)
	}
	return 0
}

// TrackedSources returns the number of sources with live state.
func (t *Tracker) TrackedSources() int {
	return len(t.sources)
}

// EvictIdle drops state for sources that have been quiet for longer than
// twice the detection window, bounding memory on long-running deployments.
// Returns the evicted addresses.
func (t *Tracker) EvictIdle(now time.Time) []string {
	var evicted []string
	for addr, st := range t.sources {
		if now.Sub(st.lastSeen) > t.idleTTL {
			delete(t.sources, addr)
			evicted = append(evicted, addr)
		}
	}
	return evicted
}
