package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ScorePreviewInterval is the live-display recompute cadence. Purely UI
// feedback; the committed value is always the elapsed time captured at the
// solve itself.
const ScorePreviewInterval = 100 * time.Millisecond

// ScorePreview is one live-scoring tick.
type ScorePreview struct {
	ElapsedMs  int64   `json:"elapsed_ms"`
	Multiplier float64 `json:"multiplier"`
	Points     int64   `json:"points"`
}

// StreamScoreSSE streams the live point preview for an active placement
// session. Stops once the session solves, disappears, or the client goes
// away.
func (s *PlacementService) StreamScoreSSE(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	sessionID := c.Params("session_id")

	sess := s.Session(sessionID, wallet)
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "placement session not found"})
	}

	// Snapshot the mission's record once per stream; the committed score is
	// recomputed from the store at completion time anyway.
	var mission models.Mission
	if err := s.DB.Where("id = ?", sess.MissionID).First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
	}
	basePoints := mission.BasePoints
	bestTime := mission.BestTime
	startedAt := sess.StartedAt

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(ScorePreviewInterval)
		defer ticker.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		var lastPoints int64 = -1

		for {
			select {
			case <-ticker.C:
				exists, solved := s.sessionState(sessionID, wallet)
				if !exists || solved {
					fmt.Fprint(w, "event: done\ndata: {}\n\n")
					_ = w.Flush()
					return
				}

				elapsed := time.Since(startedAt).Milliseconds()
				preview := ScorePreview{
					ElapsedMs:  elapsed,
					Multiplier: ScoreMultiplier(elapsed, bestTime),
					Points:     Score(elapsed, bestTime, basePoints),
				}
				if preview.Points == lastPoints {
					continue
				}
				lastPoints = preview.Points

				payload, err := json.Marshal(preview)
				if err != nil {
					log.Printf("SSE marshal error for session %s: %v", sessionID, err)
					continue
				}
				fmt.Fprintf(w, "event: score\ndata: %s\n\n", payload)

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
