package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"mission-engine/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogSyncClient pulls externally-authored mission definitions into the
// local mirror. The engine never writes missions back through this path; its
// only catalog writes are the record fields on record-breaking completions.
type CatalogSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewCatalogSyncClient(db *gorm.DB) *CatalogSyncClient {
	baseURL := os.Getenv("CONTENT_SERVICE_URL")
	token := os.Getenv("ENGINE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("ENGINE_SERVICE_TOKEN environment variable is required for catalog sync")
	}

	return &CatalogSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

// SyncedMission matches the JSON shape published by the content service.
type SyncedMission struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Kind           string     `json:"kind"`
	ImageURL       string     `json:"image_url"`
	BasePoints     int64      `json:"base_points"`
	SortOrder      int        `json:"sort_order"`
	Status         string     `json:"status"`
	PublishAt      *time.Time `json:"publish_at,omitempty"`
	GridSize       int        `json:"grid_size,omitempty"`
	Question       string     `json:"question,omitempty"`
	ExpectedAnswer string     `json:"expected_answer,omitempty"`
	Destination    string     `json:"destination,omitempty"`
	HintImageURL   string     `json:"hint_image_url,omitempty"`
	Choices        []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
		SortOrder int    `json:"sort_order"`
	} `json:"choices,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *CatalogSyncClient) GetChangedMissions(ctx context.Context, since time.Time) ([]SyncedMission, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/missions", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call content service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("content service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Missions []SyncedMission `json:"missions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode content service response: %w", err)
	}

	return response.Missions, nil
}

// upsert mirrors one synced mission, leaving best_time/best_time_holder alone
// — those columns are engine-owned.
func (c *CatalogSyncClient) upsert(synced SyncedMission) error {
	mission := models.Mission{
		ID:          synced.ID,
		Slug:        slug.Make(synced.Name),
		Name:        synced.Name,
		Description: synced.Description,
		Kind:        synced.Kind,
		ImageURL:    synced.ImageURL,
		BasePoints:  synced.BasePoints,
		SortOrder:   synced.SortOrder,
		Status:      synced.Status,
		PublishAt:   synced.PublishAt,
		Placement:   models.PlacementPayload{GridSize: synced.GridSize},
		Quiz:        models.QuizPayload{Question: synced.Question},
		Hunt: models.HuntPayload{
			ExpectedAnswer: synced.ExpectedAnswer,
			Destination:    synced.Destination,
			HintImageURL:   synced.HintImageURL,
		},
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"slug",
				"name",
				"description",
				"kind",
				"image_url",
				"base_points",
				"sort_order",
				"status",
				"publish_at",
				"placement_grid_size",
				"quiz_question",
				"hunt_expected_answer",
				"hunt_destination",
				"hunt_hint_image_url",
				"updated_at",
			}),
		}).Create(&mission).Error; err != nil {
			return err
		}

		// Choices are replaced wholesale: the content service owns them.
		if err := tx.Where("mission_id = ?", mission.ID).Delete(&models.QuizChoice{}).Error; err != nil {
			return err
		}
		for _, choice := range synced.Choices {
			row := models.QuizChoice{
				ID:        choice.ID,
				MissionID: mission.ID,
				Text:      choice.Text,
				IsCorrect: choice.IsCorrect,
				SortOrder: choice.SortOrder,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PollCatalog keeps the local mission mirror current.
func PollCatalog(ctx context.Context, client *CatalogSyncClient, pollInterval time.Duration) {
	log.Println("Starting mission catalog polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Catalog polling stopped.")
			return
		case <-ticker.C:
			pollStart := time.Now().UTC()

			missions, err := client.GetChangedMissions(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling mission catalog: %v", err)
				continue
			}

			if len(missions) == 0 {
				continue
			}

			failed := 0
			for _, m := range missions {
				if err := client.upsert(m); err != nil {
					failed++
					log.Printf("❌ Failed to upsert mission %s: %v", m.ID, err)
				}
			}
			if failed > 0 {
				// Retry the same window next tick rather than skipping rows.
				continue
			}

			lastSyncTime = pollStart
			log.Printf("✅ Upserted %d mission(s) from content service.", len(missions))
		}
	}
}
