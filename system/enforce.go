package system

import (
	"fmt"
	"strings"
)

// EnforcementBackend installs and removes network-level block rules for a
// single address or CIDR range. Implementations wrap the host's native
// packet filter; the blocking logic never sees platform specifics.
type EnforcementBackend interface {
	Install(target string) error
	Remove(target string) error
	Name() string
}

// NewEnforcementBackend selects the backend for the executor's platform.
func NewEnforcementBackend(exec CommandExecutor) (EnforcementBackend, error) {
	switch exec.GetOS() {
	case "linux":
		return &IPTablesBackend{Exec: exec}, nil
	case "darwin":
		return &PFBackend{Exec: exec, Table: "sentryfw_blocked"}, nil
	case "windows":
		return &NetshBackend{Exec: exec}, nil
	default:
		return nil, fmt.Errorf("no enforcement backend for platform %q", exec.GetOS())
	}
}

// IPTablesBackend blocks via an iptables DROP rule on the INPUT chain.
type IPTablesBackend struct {
	Exec CommandExecutor
}

func (b *IPTablesBackend) Install(target string) error {
	out, err := b.Exec.Execute("iptables", "-A", "INPUT", "-s", target, "-j", "DROP")
	if err != nil {
		return fmt.Errorf("iptables add failed: %w (%s)", err, strings.TrimSpace(out))
	}
	return nil
}

func (b *IPTablesBackend) Remove(target string) error {
	out, err := b.Exec.Execute("iptables", "-D", "INPUT", "-s", target, "-j", "DROP")
	if err != nil {
		return fmt.Errorf("iptables delete failed: %w (%s)", err, strings.TrimSpace(out))
	}
	return nil
}

func (b *IPTablesBackend) Name() string { return "iptables" }

// PFBackend blocks via a pf table on macOS. The table must be referenced
// from pf.conf; entries are added and removed with pfctl.
type PFBackend struct {
	Exec  CommandExecutor
	Table string
}

func (b *PFBackend) Install(target string) error {
	out, err := b.Exec.Execute("pfctl", "-t", b.Table, "-T", "add", target)
	if err != nil {
		return fmt.Errorf("pfctl add failed: %w (%s)", err, strings.TrimSpace(out))
	}
	// pf must be enabled for the table to take effect. -e fails when pf is
	// already running, which is not an error for us.
	b.Exec.Execute("pfctl", "-e")
	return nil
}

func (b *PFBackend) Remove(target string) error {
	out, err := b.Exec.Execute("pfctl", "-t", b.Table, "-T", "delete", target)
	if err != nil {
		return fmt.Errorf("pfctl delete failed: %w (%s)", err, strings.TrimSpace(out))
	}
	return nil
}

func (b *PFBackend) Name() string { return "pf" }

// NetshBackend blocks via Windows Firewall rules named after the address.
type NetshBackend struct {
	Exec CommandExecutor
}

func (b *NetshBackend) ruleName(target string) string {
	return "SentryFW_Block_" + strings.NewReplacer(".", "_", ":", "_", "/", "_").Replace(target)
}

func (b *NetshBackend) Install(target string) error {
	out, err := b.Exec.Execute("netsh", "advfirewall", "firewall", "add", "rule",
		"name="+b.ruleName(target), "dir=in", "action=block", "remoteip="+target)
	if err != nil {
		return fmt.Errorf("netsh add rule failed: %w (%s)", err, strings.TrimSpace(out))
	}
	return nil
}

func (b *NetshBackend) Remove(target string) error {
	out, err := b.Exec.Execute("netsh", "advfirewall", "firewall", "delete", "rule",
		"name="+b.ruleName(target))
	if err != nil {
		return fmt.Errorf("netsh delete rule failed: %w (%s)", err, strings.TrimSpace(out))
	}
	return nil
}

func (b *NetshBackend) Name() string { return "netsh" }
