// services/verification.go
package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockoutDuration is the cooldown written on an incorrect quiz/hunt
// submission. Expiry is recomputed from the stored timestamp on every check.
const LockoutDuration = 24 * time.Hour

// Submission outcome statuses. An incorrect submission is a valid terminal
// branch, not an error.
const (
	SubmitCorrect       = "correct"
	SubmitIncorrect     = "incorrect"
	SubmitLocked        = "locked"
	SubmitAlreadySolved = "already_solved"
	SubmitNoAttempt     = "no_attempt"
)

// ErrNotSubmittable marks answer submissions against mission kinds that have
// no answer (placement puzzles solve through their session drops).
var ErrNotSubmittable = errors.New("mission kind does not accept answer submissions")

var answerFolder = cases.Fold()

// NormalizeAnswer prepares a hunt answer for comparison: trimmed, ASCII-folded
// and case-folded, so "  São Paulo " matches "sao paulo".
func NormalizeAnswer(s string) string {
	return answerFolder.String(unidecode.Unidecode(strings.TrimSpace(s)))
}

type VerificationService struct {
	DB     *gorm.DB
	Ledger *LedgerService

	mu       sync.Mutex
	attempts map[string]time.Time // wallet|missionID → attempt start
}

func NewVerificationService(db *gorm.DB, ledger *LedgerService) *VerificationService {
	return &VerificationService{
		DB:       db,
		Ledger:   ledger,
		attempts: make(map[string]time.Time),
	}
}

func attemptKey(wallet, missionID string) string {
	return wallet + "|" + missionID
}

// StartAttempt records the attempt start server-side so elapsed time is
// captured once, at the submit action, never from a client clock.
func (s *VerificationService) StartAttempt(wallet, missionID string, now time.Time) {
	s.mu.Lock()
	s.attempts[attemptKey(wallet, missionID)] = now
	s.mu.Unlock()
}

func (s *VerificationService) takeAttempt(wallet, missionID string, now time.Time) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(wallet, missionID)
	started, ok := s.attempts[key]
	if !ok {
		return 0, false
	}
	delete(s.attempts, key)
	return now.Sub(started).Milliseconds(), true
}

// LockoutState is the computed cooldown view for one (profile, mission).
type LockoutState struct {
	Locked      bool   `json:"locked"`
	RemainingMs int64  `json:"remaining_ms,omitempty"`
	Display     string `json:"display,omitempty"`
}

func lockoutStateAt(failedAtMs int64, now time.Time) LockoutState {
	remaining := failedAtMs + LockoutDuration.Milliseconds() - now.UnixMilli()
	if remaining <= 0 {
		return LockoutState{}
	}
	return LockoutState{Locked: true, RemainingMs: remaining, Display: FormatCountdown(remaining)}
}

// Lockout returns the current cooldown state; absence or expiry of the window
// means the mission is attemptable.
func (s *VerificationService) Lockout(wallet, missionID string, now time.Time) (LockoutState, error) {
	prof, err := ensureProfile(s.DB, wallet)
	if err != nil {
		return LockoutState{}, err
	}
	var lockout models.MissionLockout
	err = s.DB.Where("profile_id = ? AND mission_id = ?", prof.ID, missionID).First(&lockout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LockoutState{}, nil
	}
	if err != nil {
		return LockoutState{}, err
	}
	return lockoutStateAt(lockout.FailedAt, now), nil
}

// SubmitResult is the state-machine outcome of one answer submission.
type SubmitResult struct {
	Status     string            `json:"status"`
	Lockout    *LockoutState     `json:"lockout,omitempty"`
	Completion *CompletionResult `json:"completion,omitempty"`
}

// Submit drives Idle → Submitted → {Correct, Incorrect} for quiz and hunt
// missions. Incorrect writes (overwrites) the lockout timestamp; Correct is
// terminal and commits through the ledger.
func (s *VerificationService) Submit(wallet, missionID, choiceID, answer string, now time.Time) (*SubmitResult, error) {
	prof, err := ensureProfile(s.DB, wallet)
	if err != nil {
		return nil, err
	}

	var mission models.Mission
	if err := s.DB.
		Preload("Choices").
		Where("id = ? AND status = ?", missionID, models.MissionStatusPublished).
		First(&mission).Error; err != nil {
		return nil, err
	}

	// Lockout gate: no submission is accepted inside the window.
	var lockout models.MissionLockout
	err = s.DB.Where("profile_id = ? AND mission_id = ?", prof.ID, missionID).First(&lockout).Error
	if err == nil {
		if state := lockoutStateAt(lockout.FailedAt, now); state.Locked {
			return &SubmitResult{Status: SubmitLocked, Lockout: &state}, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var solvedCount int64
	if err := s.DB.Model(&models.SolvedMission{}).
		Where("profile_id = ? AND mission_id = ?", prof.ID, missionID).
		Count(&solvedCount).Error; err != nil {
		return nil, err
	}
	if solvedCount > 0 {
		return &SubmitResult{Status: SubmitAlreadySolved}, nil
	}

	if mission.Kind != models.MissionKindQuiz && mission.Kind != models.MissionKindHunt {
		return nil, ErrNotSubmittable
	}

	// Elapsed time only ever comes from a server-registered attempt. With no
	// attempt on record the submission is refused outright: grading it would
	// mean either trusting a client clock or inventing a duration, and an
	// invented zero would stand as an unbeatable mission record.
	elapsedMs, started := s.takeAttempt(wallet, missionID, now)
	if !started {
		return &SubmitResult{Status: SubmitNoAttempt}, nil
	}

	var correct bool
	switch mission.Kind {
	case models.MissionKindQuiz:
		for _, choice := range mission.Choices {
			if choice.ID == choiceID {
				correct = choice.IsCorrect
				break
			}
		}
	case models.MissionKindHunt:
		correct = NormalizeAnswer(answer) == NormalizeAnswer(mission.Hunt.ExpectedAnswer)
	}

	if !correct {
		// Cooldown restarts from this failure; the timestamp is overwritten,
		// not accumulated.
		failure := models.MissionLockout{
			ID:        uuid.NewString(),
			ProfileID: prof.ID,
			MissionID: missionID,
			FailedAt:  now.UnixMilli(),
		}
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "mission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"failed_at"}),
		}).Create(&failure).Error; err != nil {
			return nil, err
		}
		state := lockoutStateAt(failure.FailedAt, now)
		return &SubmitResult{Status: SubmitIncorrect, Lockout: &state}, nil
	}

	completion, err := s.Ledger.CompleteMission(wallet, missionID, elapsedMs)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Status: SubmitCorrect, Completion: completion}, nil
}

// --- Fiber handlers ---

func (s *VerificationService) HandleStartAttempt(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	missionID := c.Params("id")
	now := time.Now()

	state, err := s.Lockout(wallet, missionID, now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lockout check failed", "cause": err.Error()})
	}
	if state.Locked {
		return c.JSON(fiber.Map{"started": false, "lockout": state})
	}

	s.StartAttempt(wallet, missionID, now)
	return c.JSON(fiber.Map{"started": true, "started_at": now.UnixMilli()})
}

func (s *VerificationService) HandleSubmit(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	missionID := c.Params("id")

	var req struct {
		ChoiceID string `json:"choice_id"`
		Answer   string `json:"answer"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	result, err := s.Submit(wallet, missionID, req.ChoiceID, req.Answer, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		if errors.Is(err, ErrNotSubmittable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "submission failed", "cause": err.Error()})
	}
	return c.JSON(result)
}

func (s *VerificationService) HandleLockout(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	missionID := c.Params("id")

	state, err := s.Lockout(wallet, missionID, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lockout check failed", "cause": err.Error()})
	}
	return c.JSON(state)
}
