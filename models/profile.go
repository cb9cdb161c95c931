// models/profile.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the per-identity progression record. Identities arrive from the
// gateway as wallet addresses; a profile is created lazily on first sight.
type Profile struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Wallet      string `json:"wallet" gorm:"uniqueIndex;not null"` // external identity key
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	Points         int64 `json:"points" gorm:"default:0"`
	LifetimePoints int64 `json:"lifetime_points" gorm:"default:0"` // monotonically non-decreasing

	// Epoch ms at which the reward lock opens. Only ever decreases after
	// creation: completions and time_reduction purchases both subtract.
	LockEndTime int64 `json:"lock_end_time"`

	// Purchased lock-reduction amplifier. Additive, never reset.
	Multiplier float64 `json:"multiplier" gorm:"default:1"`

	Solved        []SolvedMission  `json:"solved,omitempty" gorm:"foreignKey:ProfileID"`
	Inventory     []InventoryEntry `json:"inventory,omitempty" gorm:"foreignKey:ProfileID"`
	Lockouts      []MissionLockout `json:"-" gorm:"foreignKey:ProfileID"`
	PersonalBests []PersonalBest   `json:"personal_bests,omitempty" gorm:"foreignKey:ProfileID"`

	Timestamps
}

// SolvedMission marks one completed mission per profile. SharedAt gates the
// one-time share bonus for that completion.
type SolvedMission struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	ProfileID string     `json:"-" gorm:"index:idx_solved_profile_mission,unique;not null"`
	MissionID string     `json:"mission_id" gorm:"index:idx_solved_profile_mission,unique;not null"`
	ElapsedMs int64      `json:"elapsed_ms"`
	Earned    int64      `json:"earned"`
	NewRecord bool       `json:"new_record"`
	SharedAt  *time.Time `json:"shared_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// InventoryEntry records one purchased market item.
type InventoryEntry struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	ProfileID    string    `json:"-" gorm:"index;not null"`
	MarketItemID string    `json:"market_item_id" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// MissionLockout is the 24h cooldown written on an incorrect quiz/hunt
// submission. FailedAt is overwritten on each new failure; expiry is computed
// from it on every check, never by a background timer.
type MissionLockout struct {
	ID        string `json:"id" gorm:"primaryKey"`
	ProfileID string `json:"-" gorm:"index:idx_lockout_profile_mission,unique;not null"`
	MissionID string `json:"mission_id" gorm:"index:idx_lockout_profile_mission,unique;not null"`
	FailedAt  int64  `json:"failed_at"` // epoch ms
}

// PersonalBest is the profile's own fastest completion per mission.
type PersonalBest struct {
	ID        string `json:"id" gorm:"primaryKey"`
	ProfileID string `json:"-" gorm:"index:idx_best_profile_mission,unique;not null"`
	MissionID string `json:"mission_id" gorm:"index:idx_best_profile_mission,unique;not null"`
	BestMs    int64  `json:"best_ms"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
