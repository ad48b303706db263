package models

import "time"

// FoodEntry is one identified dish in a user's gallery. Entries are written
// once on a successful identification+save and never updated; the owning
// UserID is immutable after creation.
type FoodEntry struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      string `gorm:"type:varchar(255);index;not null" json:"user_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text;not null" json:"description"`
	// Ingredients is stored denormalized as comma-joined text ("rice, pork").
	Ingredients string    `gorm:"type:text" json:"ingredients"`
	ImageURL    string    `gorm:"type:text;not null" json:"image_url"`
	UserContext *string   `gorm:"type:text" json:"user_context"`
	CreatedAt   time.Time `json:"created_at"`
}

func (FoodEntry) TableName() string {
	return "food_entries"
}
