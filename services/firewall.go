package services

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"sentryfw/config"
	"sentryfw/system"
)

// State is the coordinator lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

const (
	sweepInterval    = 30 * time.Second
	snapshotInterval = 60 * time.Second
	shutdownGrace    = 3 * time.Second
	watchdogTimeout  = 5 * time.Second
)

// Firewall coordinates packet ingestion, attack classification, blocking,
// the periodic expiry sweep and the periodic stats snapshot. Packets are
// processed strictly sequentially: window maintenance followed by recording
// is not atomic across calls, so the ingest path must never run two packets
// concurrently.
type Firewall struct {
	cfg       *config.Config
	iface     string
	whitelist *Whitelist
	tracker   *Tracker
	detector  *Detector
	blocker   *Blocker
	stats     *Stats

	source PacketSource

	state    atomic.Int32
	stopOnce sync.Once
	stopChan chan struct{}
	tasks    sync.WaitGroup

	lastEvict time.Time

	// trackedSources mirrors the tracker's map size for concurrent readers;
	// the tracker itself is only touched from the ingest path.
	trackedSources atomic.Int64

	// exit is called when the shutdown watchdog fires. Replaceable in tests.
	exit func(int)
}

// StatusSnapshot is the externally visible state of the firewall.
type StatusSnapshot struct {
	State            string                 `json:"state"`
	Interface        string                 `json:"interface"`
	Thresholds       config.AttackSignature `json:"thresholds"`
	BlockDuration    int                    `json:"block_duration"`
	WhitelistSize    int                    `json:"whitelist_size"`
	Stats            StatsSummary           `json:"stats"`
	PacketsPerSecond float64                `json:"packets_per_second"`
	TrackedSources   int                    `json:"tracked_sources"`
	CurrentlyBlocked int                    `json:"currently_blocked"`
	BlockedIPs       map[string]string      `json:"blocked_ips"`
}

// NewFirewall wires the detection and blocking subsystems for one interface.
func NewFirewall(cfg *config.Config, iface string, whitelist *Whitelist, blocker *Blocker) *Firewall {
	tracker := NewTracker()
	return &Firewall{
		cfg:       cfg,
		iface:     iface,
		whitelist: whitelist,
		tracker:   tracker,
		detector:  NewDetector(cfg.Thresholds, whitelist, tracker),
		blocker:   blocker,
		stats:     NewStats(),
		stopChan:  make(chan struct{}),
		exit:      os.Exit,
	}
}

// SetSource injects a packet source instead of opening live capture. Used
// by tests and replay tooling; sources injected here do not require root.
func (f *Firewall) SetSource(src PacketSource) {
	f.source = src
}

// State returns the current lifecycle state.
func (f *Firewall) State() State {
	return State(f.state.Load())
}

// Start transitions to Running, launches the expiry sweep and stats
// snapshot tasks, then runs the ingestion loop on the calling goroutine
// until Stop is called. Live capture requires root; the privilege check is
// fatal before any state exists.
func (f *Firewall) Start() error {
	if !f.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("firewall is already %s", f.State())
	}

	if f.source == nil {
		if !system.HasRootPrivileges() {
			f.state.Store(int32(StateStopped))
			return fmt.Errorf("packet capture on %s requires root/administrator privileges", f.iface)
		}
		src, err := OpenCapture(f.iface)
		if err != nil {
			f.state.Store(int32(StateStopped))
			return err
		}
		f.source = src
	}

	f.state.Store(int32(StateRunning))
	system.Info("Firewall running on interface %s (block duration: %ds, whitelist: %d entries)",
		f.iface, f.cfg.BlockDuration, f.whitelist.Size())

	f.tasks.Add(2)
	go f.sweepLoop()
	go f.snapshotLoop()

	return f.ingestLoop()
}

// ingestLoop drains the capture source sequentially. A closed packet
// channel while Running means the capture source died (interface gone);
// that is logged and triggers a controlled stop.
func (f *Firewall) ingestLoop() error {
	for {
		select {
		case <-f.stopChan:
			return nil
		case pkt, ok := <-f.source.Packets():
			if !ok {
				if f.State() == StateRunning {
					system.Error("Capture source on %s terminated unexpectedly, stopping", f.iface)
					go f.Stop()
					<-f.stopChan
				}
				return nil
			}
			f.ingest(pkt, time.Now())
		}
	}
}

// ingest processes one packet: count it, classify it, block on a verdict.
// Packets without a source address are counted but excluded from detection.
func (f *Firewall) ingest(pkt PacketInfo, now time.Time) {
	f.stats.RecordPacket(pkt.Length)

	if pkt.SrcIP == "" {
		return
	}

	// Idle-source eviction rides the ingest path because the tracker is
	// single-writer; once per window is plenty.
	if now.Sub(f.lastEvict) > DetectionWindow {
		if evicted := f.tracker.EvictIdle(now); len(evicted) > 0 {
			system.Debug("Evicted %d idle sources", len(evicted))
		}
		f.lastEvict = now
	}

	verdict, ok := f.detector.Inspect(pkt, now)
	f.trackedSources.Store(int64(f.tracker.TrackedSources()))
	if !ok {
		return
	}

	if f.blocker.Block(pkt.SrcIP, verdict.Reason) == ResultBlocked {
		f.stats.RecordAttack(verdict.Kind)
	}
}

// sweepLoop periodically removes expired blocks.
func (f *Firewall) sweepLoop() {
	defer f.tasks.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopChan:
			return
		case <-ticker.C:
			if unblocked := f.blocker.SweepExpired(time.Now()); len(unblocked) > 0 {
				system.Info("Unblocked expired IPs: %v", unblocked)
			}
		}
	}
}

// snapshotLoop periodically emits a stats summary to the log.
func (f *Firewall) snapshotLoop() {
	defer f.tasks.Done()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopChan:
			return
		case <-ticker.C:
			f.logSnapshot()
		}
	}
}

func (f *Firewall) logSnapshot() {
	summary := f.stats.Summary()
	system.Info("Stats: uptime=%s packets=%d data=%s pps=%.2f blocked=%d attacks=%d tracked_sources=%d",
		summary.Uptime, summary.Packets, summary.BytesHuman, f.stats.PacketsPerSecond(),
		f.blocker.Count(), summary.AttacksBlocked, f.trackedSources.Load())
	for kind, count := range summary.AttackTypes {
		system.Info("  %s: %d", kind, count)
	}
}

// Stop shuts the firewall down: the ingestion loop and both periodic tasks
// observe the stop signal, background tasks are joined with a bounded
// grace period, all blocks are removed best-effort, and a final snapshot is
// emitted. Idempotent; a watchdog force-exits the process if the graceful
// phase hangs.
func (f *Firewall) Stop() {
	f.stopOnce.Do(func() {
		f.state.Store(int32(StateStopping))
		system.Info("Stopping firewall...")

		watchdog := time.AfterFunc(watchdogTimeout, func() {
			system.Error("Graceful shutdown timed out, forcing exit")
			f.exit(1)
		})
		defer watchdog.Stop()

		close(f.stopChan)
		if f.source != nil {
			f.source.Stop()
		}

		done := make(chan struct{})
		go func() {
			f.tasks.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			system.Warn("Background tasks did not stop within %s", shutdownGrace)
		}

		if cleaned := f.blocker.CleanupAll(); len(cleaned) > 0 {
			system.Info("Cleaned up blocks for %d IPs", len(cleaned))
		}

		f.logSnapshot()
		f.state.Store(int32(StateStopped))
		system.Info("Firewall stopped")
	})
}

// Unblock manually removes a block, for the management API.
func (f *Firewall) Unblock(addr string) BlockResult {
	return f.blocker.Unblock(addr)
}

// Status returns the current status snapshot.
func (f *Firewall) Status() StatusSnapshot {
	blocked := f.blocker.BlockedAddresses()
	blockedIPs := make(map[string]string, len(blocked))
	for addr, at := range blocked {
		blockedIPs[addr] = at.Format(time.RFC3339)
	}

	return StatusSnapshot{
		State:            f.State().String(),
		Interface:        f.iface,
		Thresholds:       f.cfg.Thresholds,
		BlockDuration:    f.cfg.BlockDuration,
		WhitelistSize:    f.whitelist.Size(),
		Stats:            f.stats.Summary(),
		PacketsPerSecond: f.stats.PacketsPerSecond(),
		TrackedSources:   int(f.trackedSources.Load()),
		CurrentlyBlocked: len(blocked),
		BlockedIPs:       blockedIPs,
	}
}
