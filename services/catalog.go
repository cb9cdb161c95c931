// services/catalog.go
package services

import (
	"errors"
	"sort"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CatalogService serves the externally-authored mission catalog. The engine
// treats it as a read-through snapshot; the only engine-owned writes are the
// record fields, handled in the ledger.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// MissionView is the client-facing shape: common fields plus exactly one
// kind-selected payload arm. Correct-answer data never leaves the engine.
type MissionView struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Kind           string `json:"kind"`
	ImageURL       string `json:"image_url,omitempty"`
	BasePoints     int64  `json:"base_points"`
	SortOrder      int    `json:"sort_order"`
	BestTime       *int64 `json:"best_time,omitempty"`
	BestTimeHolder string `json:"best_time_holder,omitempty"`

	Placement *PlacementView `json:"placement,omitempty"`
	Quiz      *QuizView      `json:"quiz,omitempty"`
	Hunt      *HuntView      `json:"hunt,omitempty"`
}

type PlacementView struct {
	GridSize int `json:"grid_size"`
}

type QuizView struct {
	Question string       `json:"question"`
	Choices  []ChoiceView `json:"choices"`
}

type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type HuntView struct {
	Destination  string `json:"destination,omitempty"`
	HintImageURL string `json:"hint_image_url,omitempty"`
}

// BuildMissionView projects a mission row into its tagged-variant view.
func BuildMissionView(m *models.Mission) MissionView {
	view := MissionView{
		ID:             m.ID,
		Slug:           m.Slug,
		Name:           m.Name,
		Description:    m.Description,
		Kind:           m.Kind,
		ImageURL:       m.ImageURL,
		BasePoints:     m.BasePoints,
		SortOrder:      m.SortOrder,
		BestTime:       m.BestTime,
		BestTimeHolder: m.BestTimeHolder,
	}

	switch m.Kind {
	case models.MissionKindPlacement:
		view.Placement = &PlacementView{GridSize: ClampGridSize(m.Placement.GridSize)}
	case models.MissionKindQuiz:
		choices := make([]ChoiceView, 0, len(m.Choices))
		sorted := append([]models.QuizChoice(nil), m.Choices...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })
		for _, c := range sorted {
			choices = append(choices, ChoiceView{ID: c.ID, Text: c.Text})
		}
		view.Quiz = &QuizView{Question: m.Quiz.Question, Choices: choices}
	case models.MissionKindHunt:
		view.Hunt = &HuntView{Destination: m.Hunt.Destination, HintImageURL: m.Hunt.HintImageURL}
	}
	return view
}

// GetMissions lists the published catalog in display order.
func (s *CatalogService) GetMissions(c *fiber.Ctx) error {
	var missions []models.Mission
	if err := s.DB.
		Preload("Choices").
		Where("status = ?", models.MissionStatusPublished).
		Order("sort_order ASC").
		Find(&missions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch missions", "cause": err.Error()})
	}

	views := make([]MissionView, len(missions))
	for i := range missions {
		views[i] = BuildMissionView(&missions[i])
	}
	return c.JSON(views)
}

// GetMissionByID fetches one published mission.
func (s *CatalogService) GetMissionByID(c *fiber.Ctx) error {
	var mission models.Mission
	err := s.DB.
		Preload("Choices").
		Where("id = ? AND status = ?", c.Params("id"), models.MissionStatusPublished).
		First(&mission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
	}
	return c.JSON(BuildMissionView(&mission))
}
