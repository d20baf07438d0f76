package services

import (
	"testing"
	"time"

	"sentryfw/config"
)

// fakeSource feeds scripted packets into the firewall.
type fakeSource struct {
	ch      chan PacketInfo
	stopped chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ch:      make(chan PacketInfo, 64),
		stopped: make(chan struct{}),
	}
}

func (f *fakeSource) Packets() <-chan PacketInfo { return f.ch }

func (f *fakeSource) Stop() {
	select {
	case <-f.stopped:
	default:
		close(f.stopped)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Thresholds: config.AttackSignature{
			SYNFloodThreshold:   5,
			ConnectionThreshold: 10,
			PacketRateThreshold: 20,
			PortScanThreshold:   3,
			ICMPFloodThreshold:  5,
		},
		BlockDuration: 300,
		LogLevel:      "ERROR",
	}
}

func newTestFirewall(cfg *config.Config, backend *fakeBackend) (*Firewall, *fakeSource) {
	whitelist := NewWhitelist(cfg.Whitelist)
	blocker := NewBlocker(backend, whitelist, cfg.BlockFor())
	fw := NewFirewall(cfg, "test0", whitelist, blocker)
	src := newFakeSource()
	fw.SetSource(src)
	return fw, src
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestFirewallBlocksSYNFlood(t *testing.T) {
	backend := newFakeBackend()
	fw, src := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()

	if !waitFor(t, time.Second, func() bool { return fw.State() == StateRunning }) {
		t.Fatal("firewall never reached Running")
	}

	// Six SYN packets from one source. Threshold 5, strict comparison, so
	// the sixth packet produces the block.
	for i := 0; i < 6; i++ {
		src.ch <- PacketInfo{SrcIP: "203.0.113.9", Protocol: ProtoTCP, SYN: true, DstPort: 80, Length: 60}
	}

	if !waitFor(t, time.Second, func() bool { return backend.installCount() == 1 }) {
		t.Fatalf("backend.Install called %d times, want 1", backend.installCount())
	}
	if _, blocked := fw.blocker.BlockedAddresses()["203.0.113.9"]; !blocked {
		t.Fatal("attacker missing from the block table")
	}

	// Continued traffic from the blocked source must not re-install.
	for i := 0; i < 6; i++ {
		src.ch <- PacketInfo{SrcIP: "203.0.113.9", Protocol: ProtoTCP, SYN: true, DstPort: 80, Length: 60}
	}
	if !waitFor(t, time.Second, func() bool { return fw.Status().Stats.Packets == 12 }) {
		t.Fatalf("packets analyzed = %d, want 12", fw.Status().Stats.Packets)
	}
	if got := backend.installCount(); got != 1 {
		t.Fatalf("backend.Install called %d times after repeat traffic, want 1", got)
	}

	fw.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Start returned %v", err)
	}
}

func TestFirewallWhitelistedSourceNeverBlocked(t *testing.T) {
	cfg := testConfig()
	cfg.Whitelist = []string{"192.0.2.1"}
	backend := newFakeBackend()
	fw, src := newTestFirewall(cfg, backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	for i := 0; i < 100; i++ {
		src.ch <- PacketInfo{SrcIP: "192.0.2.1", Protocol: ProtoTCP, SYN: true, DstPort: 80, Length: 60}
	}
	if !waitFor(t, time.Second, func() bool { return fw.Status().Stats.Packets == 100 }) {
		t.Fatalf("packets analyzed = %d, want 100", fw.Status().Stats.Packets)
	}
	if got := backend.installCount(); got != 0 {
		t.Fatalf("whitelisted source was blocked (%d installs)", got)
	}

	fw.Stop()
	<-done
}

func TestFirewallStopCleansUpBlocks(t *testing.T) {
	backend := newFakeBackend()
	fw, src := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	for i := 0; i < 6; i++ {
		src.ch <- PacketInfo{SrcIP: "198.51.100.7", Protocol: ProtoTCP, SYN: true, DstPort: 22, Length: 60}
	}
	waitFor(t, time.Second, func() bool { return backend.installCount() == 1 })

	fw.Stop()
	<-done

	if fw.State() != StateStopped {
		t.Fatalf("State after Stop = %v, want Stopped", fw.State())
	}
	if got := backend.removeCount(); got != 1 {
		t.Fatalf("backend.Remove called %d times at shutdown, want 1", got)
	}
	if got := fw.blocker.Count(); got != 0 {
		t.Fatalf("block table has %d entries after shutdown, want 0", got)
	}
}

func TestFirewallStopIdempotent(t *testing.T) {
	backend := newFakeBackend()
	fw, _ := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	fw.Stop()
	fw.Stop()
	fw.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Start returned %v", err)
	}
	if fw.State() != StateStopped {
		t.Fatalf("State = %v, want Stopped", fw.State())
	}
}

func TestFirewallDoubleStart(t *testing.T) {
	backend := newFakeBackend()
	fw, _ := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	if err := fw.Start(); err == nil {
		t.Fatal("second Start succeeded, want error")
	}

	fw.Stop()
	<-done
}

func TestFirewallSourceDeathStops(t *testing.T) {
	backend := newFakeBackend()
	fw, src := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	// A closed packet channel simulates the capture device going away.
	close(src.ch)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("firewall did not stop after source death")
	}
	if !waitFor(t, time.Second, func() bool { return fw.State() == StateStopped }) {
		t.Fatalf("State = %v, want Stopped", fw.State())
	}
}

func TestFirewallStatus(t *testing.T) {
	backend := newFakeBackend()
	fw, src := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	src.ch <- PacketInfo{SrcIP: "192.0.2.10", Protocol: ProtoUDP, DstPort: 53, Length: 90}
	waitFor(t, time.Second, func() bool { return fw.Status().Stats.Packets == 1 })

	st := fw.Status()
	if st.State != "running" {
		t.Errorf("State = %q, want running", st.State)
	}
	if st.Interface != "test0" {
		t.Errorf("Interface = %q", st.Interface)
	}
	if st.BlockDuration != 300 {
		t.Errorf("BlockDuration = %d, want 300", st.BlockDuration)
	}
	if st.TrackedSources != 1 {
		t.Errorf("TrackedSources = %d, want 1", st.TrackedSources)
	}

	fw.Stop()
	<-done
}

func TestFirewallManualUnblock(t *testing.T) {
	backend := newFakeBackend()
	fw, src := newTestFirewall(testConfig(), backend)

	done := make(chan error, 1)
	go func() { done <- fw.Start() }()
	waitFor(t, time.Second, func() bool { return fw.State() == StateRunning })

	for i := 0; i < 6; i++ {
		src.ch <- PacketInfo{SrcIP: "203.0.113.40", Protocol: ProtoTCP, SYN: true, DstPort: 443, Length: 60}
	}
	waitFor(t, time.Second, func() bool { return fw.blocker.Count() == 1 })

	if got := fw.Unblock("203.0.113.40"); got != ResultUnblocked {
		t.Fatalf("Unblock = %v, want unblocked", got)
	}
	if got := fw.Unblock("203.0.113.40"); got != ResultNotBlocked {
		t.Fatalf("repeated Unblock = %v, want not blocked", got)
	}

	fw.Stop()
	<-done
}
