package services

import (
	"sync"
	"sync/atomic"
	"time"

	"sentryfw/system"
)

// Stats tracks packet, byte and attack counters. The capture loop is the
// only writer for the packet counters; the snapshot task and the API read
// them concurrently, so everything is atomic or mutex-guarded.
type Stats struct {
	startTime       time.Time
	packetsAnalyzed atomic.Int64
	bytesAnalyzed   atomic.Int64
	attacksBlocked  atomic.Int64

	mu          sync.RWMutex
	attackTypes map[string]int64
}

// StatsSummary is a point-in-time view of the counters.
type StatsSummary struct {
	Uptime         string           `json:"uptime"`
	StartTime      time.Time        `json:"start_time"`
	Packets        int64            `json:"packets_analyzed"`
	Bytes          int64            `json:"bytes_analyzed"`
	BytesHuman     string           `json:"data_processed"`
	AttacksBlocked int64            `json:"total_attacks_blocked"`
	AttackTypes    map[string]int64 `json:"attack_types"`
}

func NewStats() *Stats {
	return &Stats{
		startTime:   time.Now(),
		attackTypes: make(map[string]int64),
	}
}

// RecordPacket counts one processed packet and its size.
func (s *Stats) RecordPacket(size int) {
	s.packetsAnalyzed.Add(1)
	s.bytesAnalyzed.Add(int64(size))
}

// RecordAttack counts one blocked attack of the given kind.
func (s *Stats) RecordAttack(kind string) {
	s.attacksBlocked.Add(1)
	s.mu.Lock()
	s.attackTypes[kind]++
	s.mu.Unlock()
}

// PacketsPerSecond returns the average ingest rate since start.
func (s *Stats) PacketsPerSecond() float64 {
	elapsed := time.Since(s.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.packetsAnalyzed.Load()) / elapsed
}

// Summary returns a consistent-enough snapshot for reporting. Counter reads
// are relaxed; this is informational output, not accounting.
func (s *Stats) Summary() StatsSummary {
	s.mu.RLock()
	types := make(map[string]int64, len(s.attackTypes))
	for k, v := range s.attackTypes {
		types[k] = v
	}
	s.mu.RUnlock()

	bytes := s.bytesAnalyzed.Load()
	return StatsSummary{
		Uptime:         time.Since(s.startTime).Truncate(time.Second).String(),
		StartTime:      s.startTime,
		Packets:        s.packetsAnalyzed.Load(),
		Bytes:          bytes,
		BytesHuman:     system.FormatBytes(bytes),
		AttacksBlocked: s.attacksBlocked.Load(),
		AttackTypes:    types,
	}
}
