package services

import (
	"strings"

	"github.com/kyleolivo/viet-food/models"

	"gorm.io/gorm"
)

type FoodService struct {
	db *gorm.DB
}

func NewFoodService(db *gorm.DB) *FoodService {
	return &FoodService{db: db}
}

// List returns one page of the user's gallery, newest first, plus the total
// entry count.
func (s *FoodService) List(userID string, limit, offset int) ([]models.FoodEntry, int64, error) {
	var total int64
	if err := s.db.Model(&models.FoodEntry{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.FoodEntry
	err := s.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, total, err
}

// Create stores one identified dish. Ingredients are denormalized to
// comma-joined text; entries are never updated afterwards.
func (s *FoodService) Create(userID, name, description string, ingredients []string, imageURL string, userContext *string) (*models.FoodEntry, error) {
	entry := models.FoodEntry{
		UserID:      userID,
		Name:        name,
		Description: description,
		Ingredients: strings.Join(ingredients, ", "),
		ImageURL:    imageURL,
		UserContext: userContext,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes an entry only when the caller owns it. A miss (wrong id or
// wrong owner) reports gorm.ErrRecordNotFound.
func (s *FoodService) Delete(userID string, id uint) error {
	res := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.FoodEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
