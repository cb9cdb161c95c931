// models/mission.go
package models

import "time"

const (
	MissionKindPlacement = "placement"
	MissionKindQuiz      = "quiz"
	MissionKindHunt      = "hunt"
)

const (
	MissionStatusDraft     = "draft"
	MissionStatusScheduled = "scheduled"
	MissionStatusPublished = "published"
)

// Mission is one challenge unit. The catalog is externally authored and
// mirrored here; the engine only ever writes back BestTime/BestTimeHolder
// when a record falls.
type Mission struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Slug        string `json:"slug" gorm:"uniqueIndex"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Kind        string `json:"kind" gorm:"not null;index"` // placement | quiz | hunt
	ImageURL    string `json:"image_url,omitempty"`

	BasePoints int64 `json:"base_points" gorm:"default:0"`
	SortOrder  int   `json:"sort_order" gorm:"default:0"`

	// Record keeping. BestTime only ever moves to a strictly smaller value.
	BestTime       *int64 `json:"best_time,omitempty"` // ms
	BestTimeHolder string `json:"best_time_holder,omitempty"`

	// Kind-specific payloads. Only the arm selected by Kind is meaningful;
	// handlers expose missions through MissionView so clients see a tagged
	// variant instead of the flattened row.
	Placement PlacementPayload `json:"-" gorm:"embedded;embeddedPrefix:placement_"`
	Quiz      QuizPayload      `json:"-" gorm:"embedded;embeddedPrefix:quiz_"`
	Hunt      HuntPayload      `json:"-" gorm:"embedded;embeddedPrefix:hunt_"`

	Choices []QuizChoice `json:"choices,omitempty" gorm:"foreignKey:MissionID"`

	// Publishing lifecycle
	Status    string     `json:"status" gorm:"default:draft;index"`
	PublishAt *time.Time `json:"publish_at,omitempty"`

	Timestamps
}

// PlacementPayload carries the jigsaw grid configuration.
type PlacementPayload struct {
	GridSize int `json:"grid_size" gorm:"default:3"` // 3..7
}

// QuizPayload carries the question; choices live in their own table.
type QuizPayload struct {
	Question string `json:"question"`
}

// HuntPayload carries the expected scavenger-hunt answer and optional hints.
type HuntPayload struct {
	ExpectedAnswer string `json:"-"` // never serialized to clients
	Destination    string `json:"destination,omitempty"`
	HintImageURL   string `json:"hint_image_url,omitempty"`
}

// QuizChoice is one selectable answer attached to a quiz mission.
type QuizChoice struct {
	ID        string `json:"id" gorm:"primaryKey"`
	MissionID string `json:"mission_id" gorm:"index;not null"`
	Text      string `json:"text" gorm:"not null"`
	IsCorrect bool   `json:"-" gorm:"not null"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`
}
