package models

import (
	"time"
)

// AttackEvent records a detected attack and the automatic response.
type AttackEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	SourceIP    string    `gorm:"index" json:"source_ip"`
	CountryCode string    `json:"country_code"`
	CountryName string    `json:"country_name"`
	AttackType  string    `json:"attack_type"` // "SYN flood", "Port scan", ...
	Reason      string    `json:"reason"`      // full classifier verdict text
	Action      string    `json:"action"`      // "blocked"
}

// Admin is a management API account. Passwords are stored bcrypt-hashed.
type Admin struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"unique;not null" json:"username"`
	Password       string     `gorm:"not null" json:"-"`
	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AttackStats provides aggregated attack statistics for the API.
type AttackStats struct {
	TodayCount    int64  `json:"today_count"`
	WeekCount     int64  `json:"week_count"`
	MonthCount    int64  `json:"month_count"`
	TopAttackType string `json:"top_attack_type"`
	TopAttackerIP string `json:"top_attacker_ip"`
	TotalBlocked  int64  `json:"total_blocked"`
}
