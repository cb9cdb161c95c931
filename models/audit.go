// models/audit.go
package models

import "time"

// CompletionAudit is the append-only record of a mission completion. The
// engine writes it exactly once per completion and never reads it back.
type CompletionAudit struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Wallet    string    `json:"wallet" gorm:"index;not null"`
	MissionID string    `json:"mission_id" gorm:"index;not null"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Earned    int64     `json:"earned"`
	NewRecord bool      `json:"new_record"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
