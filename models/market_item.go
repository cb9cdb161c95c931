// models/market_item.go
package models

// MarketItemKind distinguishes what a purchase does to the profile.
type MarketItemKind string

const (
	MarketItemMultiplier    MarketItemKind = "multiplier"     // Value added to profile.Multiplier
	MarketItemTimeReduction MarketItemKind = "time_reduction" // Value is ms subtracted from LockEndTime
	MarketItemSpecial       MarketItemKind = "special"        // inventory-only, fulfilled off-engine
)

// MarketItem is a purchasable catalog entry. Read-only to the engine except
// for the initial default seed.
type MarketItem struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	Slug        string         `json:"slug" gorm:"uniqueIndex"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	Cost        int64          `json:"cost" gorm:"default:0"`
	Kind        MarketItemKind `json:"kind" gorm:"not null"`
	Value       float64        `json:"value"` // kind-dependent: multiplier delta or ms
	IconKey     string         `json:"icon_key"`
	SortOrder   int            `json:"sort_order" gorm:"default:0"`

	Timestamps
}
