package services

import (
	"net"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"sentryfw/models"
	"sentryfw/system"
)

// BlockResult is the outcome of a block or unblock request.
type BlockResult int

const (
	ResultBlocked BlockResult = iota
	ResultAlreadyBlocked
	ResultWhitelisted
	ResultInvalidAddress
	ResultBackendFailure
	ResultUnblocked
	ResultNotBlocked
)

func (r BlockResult) String() string {
	switch r {
	case ResultBlocked:
		return "blocked"
	case ResultAlreadyBlocked:
		return "already blocked"
	case ResultWhitelisted:
		return "whitelisted"
	case ResultInvalidAddress:
		return "invalid address"
	case ResultBackendFailure:
		return "backend failure"
	case ResultUnblocked:
		return "unblocked"
	case ResultNotBlocked:
		return "not blocked"
	default:
		return "unknown"
	}
}

// Succeeded reports whether the request left the table in the requested
// state (including the idempotent no-op cases).
func (r BlockResult) Succeeded() bool {
	switch r {
	case ResultBlocked, ResultAlreadyBlocked, ResultUnblocked:
		return true
	default:
		return false
	}
}

// Blocker is the authoritative table of currently-enforced blocks. The
// capture loop blocks addresses, the sweep task and the API unblock them,
// and shutdown clears everything, so every table mutation happens under one
// mutex.
type Blocker struct {
	backend       system.EnforcementBackend
	whitelist     *Whitelist
	blockDuration time.Duration

	mu      sync.Mutex
	blocked map[string]time.Time

	// Optional collaborators for event persistence and alerting.
	db      *gorm.DB
	webhook *WebhookService
	geoip   *GeoIPService
}

func NewBlocker(backend system.EnforcementBackend, whitelist *Whitelist, blockDuration time.Duration) *Blocker {
	return &Blocker{
		backend:       backend,
		whitelist:     whitelist,
		blockDuration: blockDuration,
		blocked:       make(map[string]time.Time),
	}
}

// SetServices connects the event store, webhook and GeoIP collaborators.
// All three are optional.
func (b *Blocker) SetServices(db *gorm.DB, webhook *WebhookService, geoip *GeoIPService) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.db = db
	b.webhook = webhook
	b.geoip = geoip
}

// validTarget reports whether addr is a well-formed host address or CIDR.
func validTarget(addr string) bool {
	if strings.Contains(addr, "/") {
		_, _, err := net.ParseCIDR(addr)
		return err == nil
	}
	return net.ParseIP(addr) != nil
}

// Block installs an enforcement rule for addr and records it. Idempotent:
// an address that is already blocked reports AlreadyBlocked and nothing is
// re-installed. The record is only created when the backend succeeds.
func (b *Blocker) Block(addr, reason string) BlockResult {
	if !validTarget(addr) {
		system.Warn("Refusing to block malformed address %q", addr)
		return ResultInvalidAddress
	}
	if b.whitelist != nil && b.whitelist.Contains(addr) {
		system.Info("IP %s is whitelisted, not blocking", addr)
		return ResultWhitelisted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.blocked[addr]; exists {
		system.Debug("IP %s already blocked", addr)
		return ResultAlreadyBlocked
	}

	if err := b.backend.Install(addr); err != nil {
		system.Error("Failed to block IP %s: %v", addr, err)
		return ResultBackendFailure
	}

	b.blocked[addr] = time.Now()
	system.Warn("BLOCKED IP: %s - Reason: %s", addr, reason)
	go b.recordAttack(addr, reason)
	return ResultBlocked
}

// Unblock removes the enforcement rule for addr. The record is only removed
// when the backend succeeds, so a failed removal is retried by the next
// sweep cycle. The backend is not invoked for addresses that are not
// blocked.
func (b *Blocker) Unblock(addr string) BlockResult {
	if !validTarget(addr) {
		system.Warn("Refusing to unblock malformed address %q", addr)
		return ResultInvalidAddress
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unblockLocked(addr)
}

func (b *Blocker) unblockLocked(addr string) BlockResult {
	if _, exists := b.blocked[addr]; !exists {
		system.Debug("IP %s was not blocked", addr)
		return ResultNotBlocked
	}

	if err := b.backend.Remove(addr); err != nil {
		system.Error("Failed to unblock IP %s: %v", addr, err)
		return ResultBackendFailure
	}

	delete(b.blocked, addr)
	system.Info("UNBLOCKED IP: %s", addr)
	if b.webhook != nil {
		go b.webhook.SendUnblockAlert(addr)
	}
	return ResultUnblocked
}

// SweepExpired unblocks every address whose block duration has elapsed and
// returns the ones that were removed. The expired set is snapshotted before
// any mutation so the sweep never iterates a map it is changing.
func (b *Blocker) SweepExpired(now time.Time) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expired []string
	for addr, blockedAt := range b.blocked {
		if now.Sub(blockedAt) > b.blockDuration {
			expired = append(expired, addr)
		}
	}

	var unblocked []string
	for _, addr := range expired {
		if b.unblockLocked(addr) == ResultUnblocked {
			unblocked = append(unblocked, addr)
		}
	}
	return unblocked
}

// CleanupAll unconditionally removes every block, best-effort: a backend
// failure for one address does not abort cleanup of the rest. Used at
// shutdown.
func (b *Blocker) CleanupAll() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	addrs := make([]string, 0, len(b.blocked))
	for addr := range b.blocked {
		addrs = append(addrs, addr)
	}

	var cleaned []string
	for _, addr := range addrs {
		if b.unblockLocked(addr) == ResultUnblocked {
			cleaned = append(cleaned, addr)
		}
	}
	return cleaned
}

// BlockedAddresses returns a copy of the table: address to block time.
func (b *Blocker) BlockedAddresses() map[string]time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]time.Time, len(b.blocked))
	for addr, at := range b.blocked {
		out[addr] = at
	}
	return out
}

// Count returns the number of currently blocked addresses.
func (b *Blocker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blocked)
}

// recordAttack persists the attack event and fires the webhook alert. Runs
// off the capture path so a slow database or Discord never stalls ingest.
func (b *Blocker) recordAttack(addr, reason string) {
	countryName, countryCode := "Unknown", "XX"
	if b.geoip != nil {
		countryName, countryCode = b.geoip.GetCountry(addr)
	}

	kind := reason
	if i := strings.IndexByte(reason, ':'); i > 0 {
		kind = reason[:i]
	}

	if b.db != nil {
		event := models.AttackEvent{
			Timestamp:   time.Now(),
			SourceIP:    addr,
			CountryCode: countryCode,
			CountryName: countryName,
			AttackType:  kind,
			Reason:      reason,
			Action:      "blocked",
		}
		if err := b.db.Create(&event).Error; err != nil {
			system.Warn("Failed to log attack event: %v", err)
		}
	}

	if b.webhook != nil {
		b.webhook.SendBlockAlert(addr, countryName, reason)
	}
}
