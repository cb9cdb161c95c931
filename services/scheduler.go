// services/scheduler.go
package services

import (
	"log"
	"time"

	"mission-engine/models"

	"github.com/go-co-op/gocron/v2"
)

// StartSchedulers runs the background jobs: publishing scheduled missions and
// sweeping idle placement sessions. The lockout and lock timers need no jobs;
// they self-expire by wall-clock comparison on every check.
func (s *CatalogService) StartSchedulers(placement *PlacementService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: publish scheduled missions whose time has come.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var missions []models.Mission
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", models.MissionStatusScheduled, now).
				Find(&missions).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, m := range missions {
				m.Status = models.MissionStatusPublished
				m.PublishAt = nil
				if err := s.DB.Save(&m).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish mission %s: %v", m.ID, err)
				} else {
					log.Printf("✅ Auto-published mission: %s", m.Name)
				}
			}
		}),
	)

	// Every 10 minutes: drop abandoned placement sessions.
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			if removed := placement.SweepExpired(time.Now()); removed > 0 {
				log.Printf("[Scheduler] Swept %d idle placement session(s)", removed)
			}
		}),
	)
}
