package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kyleolivo/viet-food/logger"
	"github.com/kyleolivo/viet-food/models"
	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type FoodController struct {
	guard
	foods *services.FoodService
}

func NewFoodController(foods *services.FoodService, security *services.SecurityService, audit *services.AuditService, moderator services.Moderator) *FoodController {
	return &FoodController{
		guard: guard{security: security, audit: audit, moderator: moderator},
		foods: foods,
	}
}

// GET /api/foods?limit&offset
func (f *FoodController) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, total, err := f.foods.List(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

type SaveFoodInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	ImageURL    string   `json:"imageUrl"`
	UserContext *string  `json:"userContext"`
}

// POST /api/foods
func (f *FoodController) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input SaveFoodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if input.Name == "" || input.Description == "" || input.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	const action = "save_food"
	if !f.authorize(c, userID, action) {
		return
	}

	text := input.Name + "\n" + input.Description
	if input.UserContext != nil {
		text += "\n" + *input.UserContext
	}
	if !f.moderateText(c, userID, action, text) {
		return
	}

	entry, err := f.foods.Create(userID, input.Name, input.Description, input.Ingredients, input.ImageURL, input.UserContext)
	if err != nil {
		f.fail(c, userID, action, "Failed to save food entry", err)
		return
	}

	if err := f.audit.Log(services.AuditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: "food",
		ResourceID:   fmt.Sprint(entry.ID),
		Details:      entry.Name,
		Meta:         requestMeta(c),
	}); err != nil {
		logger.Error("failed to audit save", "user_id", userID, "error", err)
	}

	c.JSON(http.StatusCreated, entry)
}

// DELETE /api/foods/:id
func (f *FoodController) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	const action = "delete_food"
	if !f.authorize(c, userID, action) {
		return
	}

	if err := f.foods.Delete(userID, uint(id)); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
			return
		}
		f.fail(c, userID, action, "Failed to delete food entry", err)
		return
	}

	if err := f.audit.Log(services.AuditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: "food",
		ResourceID:   fmt.Sprint(id),
		Status:       models.AuditStatusSuccess,
		Meta:         requestMeta(c),
	}); err != nil {
		logger.Error("failed to audit delete", "user_id", userID, "error", err)
	}

	c.Status(http.StatusNoContent)
}
