package services

import (
	"path/filepath"
	"testing"

	"mission-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Mission{},
		&models.QuizChoice{},
		&models.Profile{},
		&models.SolvedMission{},
		&models.InventoryEntry{},
		&models.MissionLockout{},
		&models.PersonalBest{},
		&models.MarketItem{},
		&models.CompletionAudit{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func seedMission(t *testing.T, db *gorm.DB, m models.Mission) *models.Mission {
	t.Helper()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Slug == "" {
		m.Slug = m.ID
	}
	if m.Status == "" {
		m.Status = models.MissionStatusPublished
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed mission: %v", err)
	}
	return &m
}

func seedChoice(t *testing.T, db *gorm.DB, missionID, text string, correct bool) *models.QuizChoice {
	t.Helper()
	choice := models.QuizChoice{
		ID:        uuid.NewString(),
		MissionID: missionID,
		Text:      text,
		IsCorrect: correct,
	}
	if err := db.Create(&choice).Error; err != nil {
		t.Fatalf("seed choice: %v", err)
	}
	return &choice
}

func loadProfile(t *testing.T, db *gorm.DB, wallet string) *models.Profile {
	t.Helper()
	var prof models.Profile
	if err := db.Where("wallet = ?", wallet).First(&prof).Error; err != nil {
		t.Fatalf("load profile %s: %v", wallet, err)
	}
	return &prof
}

func int64ptr(v int64) *int64 { return &v }
