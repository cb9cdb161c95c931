// services/profiles.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MsPerHour = int64(3600000)
	MsPerDay  = 24 * MsPerHour

	// New profiles start with a 90-day reward lock minus a 1-hour welcome
	// discount.
	InitialLockDays   = 90
	WelcomeDiscountMs = MsPerHour
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// ensureProfile loads the profile for a wallet, creating it on first sight
// (idempotent). Safe to call inside a surrounding transaction.
func ensureProfile(tx *gorm.DB, wallet string) (*models.Profile, error) {
	if wallet == "" {
		return nil, errors.New("empty wallet identity")
	}
	var prof models.Profile
	err := tx.Where("wallet = ?", wallet).First(&prof).Error
	if err == nil {
		return &prof, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prof = models.Profile{
		ID:          uuid.NewString(),
		Wallet:      wallet,
		DisplayName: shortWallet(wallet),
		LockEndTime: time.Now().UnixMilli() + int64(InitialLockDays)*MsPerDay - WelcomeDiscountMs,
		Multiplier:  1.0,
	}
	if err := tx.Create(&prof).Error; err != nil {
		return nil, err
	}
	log.Printf("👤 New profile created for %s (lock ends %d)", wallet, prof.LockEndTime)
	return &prof, nil
}

// EnsureProfile is the non-transactional entry point.
func (s *ProfileService) EnsureProfile(wallet string) (*models.Profile, error) {
	return ensureProfile(s.DB, wallet)
}

func shortWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}

// LockStatus is the computed lock-timer view; recomputed from LockEndTime on
// every read, never by a background timer.
type LockStatus struct {
	LockEndTime int64  `json:"lock_end_time"`
	RemainingMs int64  `json:"remaining_ms"`
	Unlocked    bool   `json:"unlocked"`
	Display     string `json:"display"`
}

func lockStatusAt(lockEndMs int64, now time.Time) LockStatus {
	remaining := lockEndMs - now.UnixMilli()
	if remaining <= 0 {
		return LockStatus{LockEndTime: lockEndMs, RemainingMs: 0, Unlocked: true, Display: "UNLOCKED"}
	}
	return LockStatus{
		LockEndTime: lockEndMs,
		RemainingMs: remaining,
		Display:     FormatCountdown(remaining),
	}
}

// FormatCountdown renders a millisecond duration as days/hours for display.
func FormatCountdown(ms int64) string {
	if ms <= 0 {
		return "UNLOCKED"
	}
	days := ms / MsPerDay
	hours := (ms % MsPerDay) / MsPerHour
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return "<1h"
	}
}

// GetProfile returns (lazily creating) the requester's profile with the
// computed lock timer attached.
func (s *ProfileService) GetProfile(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)

	prof, err := s.EnsureProfile(wallet)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load profile",
			"cause": err.Error(),
		})
	}

	if err := s.DB.
		Preload("Solved").
		Preload("Inventory").
		Preload("PersonalBests").
		Where("id = ?", prof.ID).
		First(prof).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load profile relations",
			"cause": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"profile": prof,
		"lock":    lockStatusAt(prof.LockEndTime, time.Now()),
	})
}

// UpdateProfile patches display name / avatar.
func (s *ProfileService) UpdateProfile(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)

	var req struct {
		DisplayName *string `json:"display_name"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	prof, err := s.EnsureProfile(wallet)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load profile",
			"cause": err.Error(),
		})
	}

	if req.DisplayName != nil {
		prof.DisplayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		prof.AvatarURL = *req.AvatarURL
	}

	if err := s.DB.Save(prof).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update profile",
			"cause": err.Error(),
		})
	}

	return c.JSON(prof)
}
