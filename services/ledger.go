// services/ledger.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"mission-engine/models"
	"mission-engine/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// Per-completion base lock reduction, scaled by the profile's purchased
	// multiplier. The flat unscaled variant is superseded.
	BaseLockReductionMs = MsPerHour

	// One-time bonus for sharing a completed mission.
	ShareBonusPoints = 50
)

type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// CompletionResult is the committed outcome of one mission completion.
type CompletionResult struct {
	AlreadySolved   bool    `json:"already_solved"`
	Earned          int64   `json:"earned"`
	Multiplier      float64 `json:"multiplier"`
	NewRecord       bool    `json:"new_record"`
	LockReductionMs int64   `json:"lock_reduction_ms"`
	Points          int64   `json:"points"`
	LifetimePoints  int64   `json:"lifetime_points"`
	LockEndTime     int64   `json:"lock_end_time"`
}

// CompleteMission commits a mission outcome to the profile in a single
// transaction. Re-completing a solved mission is a no-op, not an error.
func (s *LedgerService) CompleteMission(wallet, missionID string, elapsedMs int64) (*CompletionResult, error) {
	if elapsedMs < 0 {
		elapsedMs = 0
	}

	var result CompletionResult
	var audit models.CompletionAudit

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prof, err := ensureProfile(tx, wallet)
		if err != nil {
			return err
		}

		var solvedCount int64
		if err := tx.Model(&models.SolvedMission{}).
			Where("profile_id = ? AND mission_id = ?", prof.ID, missionID).
			Count(&solvedCount).Error; err != nil {
			return err
		}
		if solvedCount > 0 {
			result = CompletionResult{
				AlreadySolved:  true,
				Points:         prof.Points,
				LifetimePoints: prof.LifetimePoints,
				LockEndTime:    prof.LockEndTime,
			}
			return nil
		}

		var mission models.Mission
		if err := tx.Where("id = ?", missionID).First(&mission).Error; err != nil {
			return fmt.Errorf("mission %s not found: %w", missionID, err)
		}

		isNewRecord := mission.BestTime == nil || elapsedMs < *mission.BestTime
		multiplier := ScoreMultiplier(elapsedMs, mission.BestTime)
		earned := int64(math.Floor(float64(mission.BasePoints) * multiplier))
		if isNewRecord {
			// Flat doubling, applied after the time-decay multiplier.
			earned *= NewRecordBonusFactor
		}

		lockReduction := int64(float64(BaseLockReductionMs) * prof.Multiplier)

		prof.Points += earned
		prof.LifetimePoints += earned
		prof.LockEndTime -= lockReduction
		if err := tx.Save(prof).Error; err != nil {
			return err
		}

		solved := models.SolvedMission{
			ID:        uuid.NewString(),
			ProfileID: prof.ID,
			MissionID: missionID,
			ElapsedMs: elapsedMs,
			Earned:    earned,
			NewRecord: isNewRecord,
		}
		if err := tx.Create(&solved).Error; err != nil {
			return err
		}

		best := models.PersonalBest{
			ID:        uuid.NewString(),
			ProfileID: prof.ID,
			MissionID: missionID,
			BestMs:    elapsedMs,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "mission_id"}},
			DoNothing: true,
		}).Create(&best).Error; err != nil {
			return err
		}

		if isNewRecord {
			// Guard in SQL as well: never overwrite with a worse time, even if
			// called out of order.
			if err := tx.Model(&models.Mission{}).
				Where("id = ? AND (best_time IS NULL OR best_time > ?)", missionID, elapsedMs).
				Updates(map[string]interface{}{
					"best_time":        elapsedMs,
					"best_time_holder": prof.DisplayName,
				}).Error; err != nil {
				return err
			}
		}

		audit = models.CompletionAudit{
			ID:        uuid.NewString(),
			Wallet:    wallet,
			MissionID: missionID,
			ElapsedMs: elapsedMs,
			Earned:    earned,
			NewRecord: isNewRecord,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		result = CompletionResult{
			Earned:          earned,
			Multiplier:      multiplier,
			NewRecord:       isNewRecord,
			LockReductionMs: lockReduction,
			Points:          prof.Points,
			LifetimePoints:  prof.LifetimePoints,
			LockEndTime:     prof.LockEndTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadySolved {
		log.Printf("🏁 Completion: %s solved %s in %dms → +%d pts (record=%t)",
			wallet, missionID, elapsedMs, result.Earned, result.NewRecord)
		// Write-only archive copy; failures never affect the committed state.
		go func(a models.CompletionAudit) {
			if err := utils.ArchiveCompletionAudit(a); err != nil {
				log.Printf("⚠️  Audit archive failed for %s: %v", a.ID, err)
			}
		}(audit)
	}

	return &result, nil
}

// ShareResult reports the outcome of a share-bonus claim.
type ShareResult struct {
	Awarded        bool   `json:"awarded"`
	Reason         string `json:"reason,omitempty"`
	Bonus          int64  `json:"bonus,omitempty"`
	Points         int64  `json:"points"`
	LifetimePoints int64  `json:"lifetime_points"`
}

// ShareCompletion awards the flat share bonus at most once per completed
// mission per profile.
func (s *LedgerService) ShareCompletion(wallet, missionID string) (*ShareResult, error) {
	var result ShareResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prof, err := ensureProfile(tx, wallet)
		if err != nil {
			return err
		}

		var solved models.SolvedMission
		err = tx.Where("profile_id = ? AND mission_id = ?", prof.ID, missionID).First(&solved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = ShareResult{Reason: "mission_not_completed", Points: prof.Points, LifetimePoints: prof.LifetimePoints}
			return nil
		}
		if err != nil {
			return err
		}
		if solved.SharedAt != nil {
			result = ShareResult{Reason: "already_shared", Points: prof.Points, LifetimePoints: prof.LifetimePoints}
			return nil
		}

		now := time.Now()
		solved.SharedAt = &now
		if err := tx.Save(&solved).Error; err != nil {
			return err
		}

		prof.Points += ShareBonusPoints
		prof.LifetimePoints += ShareBonusPoints
		if err := tx.Save(prof).Error; err != nil {
			return err
		}

		result = ShareResult{
			Awarded:        true,
			Bonus:          ShareBonusPoints,
			Points:         prof.Points,
			LifetimePoints: prof.LifetimePoints,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GrantPoints is the admin backdoor: adds to both balances, never subtracts.
func (s *LedgerService) GrantPoints(wallet string, points int64, reason string) (*models.Profile, error) {
	if points <= 0 {
		return nil, errors.New("points must be positive")
	}
	var prof *models.Profile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		p, err := ensureProfile(tx, wallet)
		if err != nil {
			return err
		}
		p.Points += points
		p.LifetimePoints += points
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		prof = p
		log.Printf("🎮 Points granted: %s → +%d (reason: %s)", wallet, points, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prof, nil
}
