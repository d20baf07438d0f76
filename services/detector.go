package services

import (
	"fmt"
	"time"

	"sentryfw/config"
	"sentryfw/system"
)

// Attack kind labels, used for the per-type counters and event rows.
const (
	AttackPacketRate     = "High packet rate"
	AttackSYNFlood       = "SYN flood"
	AttackPortScan       = "Port scan"
	AttackConnectionRate = "High connection rate"
	AttackICMPFlood      = "ICMP flood"
)

// Verdict is the classifier output for a single packet.
type Verdict struct {
	Kind   string // short attack label
	Reason string // human-readable description with the observed count
}

// Detector applies the configured signature thresholds to the tracker state.
// Like the Tracker it rides the single capture loop and takes no locks.
type Detector struct {
	signatures config.AttackSignature
	whitelist  *Whitelist
	tracker    *Tracker
}

func NewDetector(signatures config.AttackSignature, whitelist *Whitelist, tracker *Tracker) *Detector {
	return &Detector{
		signatures: signatures,
		whitelist:  whitelist,
		tracker:    tracker,
	}
}

// Inspect records the packet into the per-source windows and evaluates the
// five signatures in fixed order, first match wins. Whitelisted sources are
// never recorded, so they cannot trigger a block no matter the volume.
// Packets without a source address are ignored.
func (d *Detector) Inspect(pkt PacketInfo, now time.Time) (Verdict, bool) {
	if pkt.SrcIP == "" {
		return Verdict{}, false
	}
	if d.whitelist.Contains(pkt.SrcIP) {
		return Verdict{}, false
	}

	addr := pkt.SrcIP
	d.tracker.Maintain(addr, now)

	d.tracker.RecordPacket(addr, now)
	switch pkt.Protocol {
	case ProtoTCP:
		if pkt.SYN {
			d.tracker.RecordSYN(addr, now)
		}
		d.tracker.RecordConnection(addr, now)
		d.tracker.RecordPort(addr, pkt.DstPort, now)
	case ProtoICMP:
		d.tracker.RecordICMP(addr, now)
	}

	verdict, ok := d.evaluate(pkt, addr)
	if ok {
		system.Warn("Attack detected from %s: %s", addr, verdict.Reason)
	}
	return verdict, ok
}

// evaluate runs the threshold checks. All comparisons are strict: a count
// equal to the threshold does not fire.
func (d *Detector) evaluate(pkt PacketInfo, addr string) (Verdict, bool) {
	if n := d.tracker.PacketCount(addr); n > d.signatures.PacketRateThreshold {
		return Verdict{AttackPacketRate, fmt.Sprintf("High packet rate: %d/min", n)}, true
	}

	if pkt.Protocol == ProtoTCP && pkt.SYN {
		if n := d.tracker.SYNCount(addr); n > d.signatures.SYNFloodThreshold {
			return Verdict{AttackSYNFlood, fmt.Sprintf("SYN flood: %d/min", n)}, true
		}
	}

	if pkt.Protocol == ProtoTCP {
		if n := d.tracker.PortCount(addr); n > d.signatures.PortScanThreshold {
			return Verdict{AttackPortScan, fmt.Sprintf("Port scan: %d ports", n)}, true
		}
		if n := d.tracker.ConnectionCount(addr); n > d.signatures.ConnectionThreshold {
			return Verdict{AttackConnectionRate, fmt.Sprintf("High connection rate: %d/min", n)}, true
		}
	}

	if pkt.Protocol == ProtoICMP {
		if n := d.tracker.ICMPCount(addr); n > d.signatures.ICMPFloodThreshold {
			return Verdict{AttackICMPFlood, fmt.Sprintf("ICMP flood: %d/min", n)}, true
		}
	}

	return Verdict{}, false
}
