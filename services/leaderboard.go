// services/leaderboard.go
package services

import (
	"sort"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TopEntries is how many leaders the board shows before the requester's own
// row is appended separately.
const TopEntries = 3

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Wallet      string `json:"wallet"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Score       int64  `json:"score"`
}

type Standings struct {
	Top       []LeaderboardEntry `json:"top"`
	Requester *LeaderboardEntry  `json:"requester,omitempty"`
}

// rankingScore is cumulative lifetime points, falling back to the spendable
// balance for legacy profiles that never tracked lifetime.
func rankingScore(p *models.Profile) int64 {
	if p.LifetimePoints > 0 {
		return p.LifetimePoints
	}
	return p.Points
}

// Standings totally orders all profiles by score descending, wallet ascending
// as the deterministic tie-break. When the requesting wallet ranks outside
// the top entries its own rank and score are appended separately.
func (s *LeaderboardService) Standings(wallet string) (*Standings, error) {
	if _, err := ensureProfile(s.DB, wallet); err != nil {
		return nil, err
	}

	var profiles []models.Profile
	if err := s.DB.Find(&profiles).Error; err != nil {
		return nil, err
	}

	sort.Slice(profiles, func(i, j int) bool {
		si, sj := rankingScore(&profiles[i]), rankingScore(&profiles[j])
		if si != sj {
			return si > sj
		}
		return profiles[i].Wallet < profiles[j].Wallet
	})

	standings := &Standings{Top: make([]LeaderboardEntry, 0, TopEntries)}
	for i := range profiles {
		entry := LeaderboardEntry{
			Rank:        i + 1,
			Wallet:      profiles[i].Wallet,
			DisplayName: profiles[i].DisplayName,
			AvatarURL:   profiles[i].AvatarURL,
			Score:       rankingScore(&profiles[i]),
		}
		if i < TopEntries {
			standings.Top = append(standings.Top, entry)
		}
		if profiles[i].Wallet == wallet && i >= TopEntries {
			e := entry
			standings.Requester = &e
		}
	}
	return standings, nil
}

// GetStandings is the Fiber handler over Standings.
func (s *LeaderboardService) GetStandings(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)

	standings, err := s.Standings(wallet)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build leaderboard", "cause": err.Error()})
	}
	return c.JSON(standings)
}
