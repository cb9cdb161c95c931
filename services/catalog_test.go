package services

import (
	"encoding/json"
	"strings"
	"testing"

	"mission-engine/models"
)

func TestBuildMissionViewPlacement(t *testing.T) {
	m := models.Mission{
		ID: "m1", Slug: "puzzle", Name: "Puzzle", Kind: models.MissionKindPlacement,
		BasePoints: 100,
		Placement:  models.PlacementPayload{GridSize: 5},
	}
	view := BuildMissionView(&m)
	if view.Placement == nil || view.Placement.GridSize != 5 {
		t.Fatalf("placement view %+v", view.Placement)
	}
	if view.Quiz != nil || view.Hunt != nil {
		t.Fatal("non-selected payload arms populated")
	}
}

func TestBuildMissionViewClampsGridSize(t *testing.T) {
	m := models.Mission{
		ID: "m1", Kind: models.MissionKindPlacement,
		Placement: models.PlacementPayload{GridSize: 12},
	}
	if view := BuildMissionView(&m); view.Placement.GridSize != MaxGridSize {
		t.Fatalf("grid size %d, want clamped to %d", view.Placement.GridSize, MaxGridSize)
	}
}

func TestBuildMissionViewQuizHidesCorrectness(t *testing.T) {
	m := models.Mission{
		ID: "m1", Kind: models.MissionKindQuiz,
		Quiz: models.QuizPayload{Question: "2+2?"},
		Choices: []models.QuizChoice{
			{ID: "c2", Text: "Five", SortOrder: 1},
			{ID: "c1", Text: "Four", IsCorrect: true, SortOrder: 0},
		},
	}
	view := BuildMissionView(&m)
	if view.Quiz == nil {
		t.Fatal("quiz arm missing")
	}
	if view.Quiz.Choices[0].ID != "c1" || view.Quiz.Choices[1].ID != "c2" {
		t.Fatalf("choices not in display order: %+v", view.Quiz.Choices)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	if strings.Contains(string(raw), "is_correct") || strings.Contains(string(raw), "IsCorrect") {
		t.Fatalf("view leaks answer flags: %s", raw)
	}
}

func TestBuildMissionViewHuntHidesAnswer(t *testing.T) {
	m := models.Mission{
		ID: "m1", Kind: models.MissionKindHunt,
		Hunt: models.HuntPayload{
			ExpectedAnswer: "secret city",
			Destination:    "Find the mural downtown",
			HintImageURL:   "https://cdn.example.com/hint.jpg",
		},
	}
	view := BuildMissionView(&m)
	if view.Hunt == nil || view.Hunt.Destination == "" {
		t.Fatalf("hunt view %+v", view.Hunt)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	if strings.Contains(string(raw), "secret city") {
		t.Fatalf("view leaks the expected answer: %s", raw)
	}
}
