// services/market.go
package services

import (
	"errors"
	"log"

	"mission-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type MarketService struct {
	DB *gorm.DB
}

func NewMarketService(db *gorm.DB) *MarketService {
	return &MarketService{DB: db}
}

// defaultMarketItems seed the catalog on first boot.
var defaultMarketItems = []models.MarketItem{
	{
		Name:        "Time Warp I",
		Description: "Increase lock reduction speed by 10%.",
		Cost:        200,
		Kind:        models.MarketItemMultiplier,
		Value:       0.1,
		IconKey:     "zap",
		SortOrder:   0,
	},
	{
		Name:        "Flash Loan",
		Description: "Instantly reduce lock time by 24 hours.",
		Cost:        150,
		Kind:        models.MarketItemTimeReduction,
		Value:       float64(24 * MsPerHour),
		IconKey:     "clock",
		SortOrder:   1,
	},
	{
		Name:        "Time Warp II",
		Description: "Increase lock reduction speed by 25%.",
		Cost:        500,
		Kind:        models.MarketItemMultiplier,
		Value:       0.25,
		IconKey:     "zap",
		SortOrder:   2,
	},
	{
		Name:        "Founder 1:1",
		Description: "Exclusive 30min call with the founder.",
		Cost:        5000,
		Kind:        models.MarketItemSpecial,
		IconKey:     "shield",
		SortOrder:   3,
	},
}

// SeedDefaults installs the default catalog when the table is empty.
func (s *MarketService) SeedDefaults() error {
	var count int64
	if err := s.DB.Model(&models.MarketItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, item := range defaultMarketItems {
		item.ID = uuid.NewString()
		item.Slug = slug.Make(item.Name)
		if err := s.DB.Create(&item).Error; err != nil {
			return err
		}
	}
	log.Printf("🛒 Seeded %d default market items", len(defaultMarketItems))
	return nil
}

// PurchaseResult reports a purchase or its refusal. A refused purchase is not
// an error: nothing changed, and the reason is the answer.
type PurchaseResult struct {
	Purchased   bool               `json:"purchased"`
	Reason      string             `json:"reason,omitempty"`
	Item        *models.MarketItem `json:"item,omitempty"`
	Points      int64              `json:"points"`
	Multiplier  float64            `json:"multiplier"`
	LockEndTime int64              `json:"lock_end_time"`
}

// Purchase applies an item's effect to the profile: cost deducted, item
// appended to inventory, then multiplier increase or direct lock reduction.
// special items are inventory-only.
func (s *MarketService) Purchase(wallet, itemID string) (*PurchaseResult, error) {
	var result PurchaseResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prof, err := ensureProfile(tx, wallet)
		if err != nil {
			return err
		}

		var item models.MarketItem
		if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
			return err
		}

		if prof.Points < item.Cost {
			result = PurchaseResult{
				Reason:      "insufficient_points",
				Points:      prof.Points,
				Multiplier:  prof.Multiplier,
				LockEndTime: prof.LockEndTime,
			}
			return nil
		}

		prof.Points -= item.Cost
		switch item.Kind {
		case models.MarketItemMultiplier:
			prof.Multiplier += item.Value
		case models.MarketItemTimeReduction:
			prof.LockEndTime -= int64(item.Value)
		case models.MarketItemSpecial:
			// recorded in inventory only; fulfillment is off-engine
		}
		if err := tx.Save(prof).Error; err != nil {
			return err
		}

		entry := models.InventoryEntry{
			ID:           uuid.NewString(),
			ProfileID:    prof.ID,
			MarketItemID: item.ID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = PurchaseResult{
			Purchased:   true,
			Item:        &item,
			Points:      prof.Points,
			Multiplier:  prof.Multiplier,
			LockEndTime: prof.LockEndTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Fiber handlers ---

func (s *MarketService) GetItems(c *fiber.Ctx) error {
	var items []models.MarketItem
	if err := s.DB.Order("sort_order ASC").Find(&items).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch market items", "cause": err.Error()})
	}
	return c.JSON(items)
}

func (s *MarketService) HandlePurchase(c *fiber.Ctx) error {
	wallet := c.Locals("user_id").(string)
	itemID := c.Params("id")

	result, err := s.Purchase(wallet, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "market item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "purchase failed", "cause": err.Error()})
	}
	return c.JSON(result)
}
