// Package gormstore persists the pantry aggregates with GORM on SQLite or PostgreSQL.
package gormstore

import "time"

type GroceryItemModel struct {
	ID           string     `gorm:"type:varchar(36);primaryKey"`
	UserID       string     `gorm:"type:varchar(36);not null;index:idx_grocery_user_created,priority:1"`
	Name         string     `gorm:"type:varchar(255);not null"`
	Quantity     float64    `gorm:"not null"`
	Unit         string     `gorm:"type:varchar(50);not null"`
	Category     string     `gorm:"type:varchar(50)"`
	PurchaseDate *time.Time `gorm:"type:date"`
	ExpiryDate   *time.Time `gorm:"type:date"`
	CreatedAt    time.Time  `gorm:"not null;index:idx_grocery_user_created,priority:2"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

func (GroceryItemModel) TableName() string { return "grocery_items" }

type RecipeModel struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	UserID       string `gorm:"type:varchar(36);not null;index"`
	Title        string `gorm:"type:varchar(255);not null"`
	Description  string `gorm:"type:text"`
	Instructions string `gorm:"type:text;not null"`
	PrepTime     *int
	CookTime     *int
	Servings     int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`

	Ingredients []RecipeIngredientModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (RecipeModel) TableName() string { return "recipes" }

type RecipeIngredientModel struct {
	ID       string  `gorm:"type:varchar(36);primaryKey"`
	RecipeID string  `gorm:"type:varchar(36);not null;index"`
	Name     string  `gorm:"column:ingredient_name;type:varchar(255);not null"`
	Quantity float64 `gorm:"not null"`
	Unit     string  `gorm:"type:varchar(50)"`
	// Position keeps the order the recipe lists its ingredients in.
	Position  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
}

func (RecipeIngredientModel) TableName() string { return "recipe_ingredients" }

type MealPlanModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(36);not null;index"`
	RecipeID    string    `gorm:"type:varchar(36);not null;index"`
	PlannedDate time.Time `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'planned'"`
	CreatedAt   time.Time `gorm:"not null"`

	Recipe *RecipeModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (MealPlanModel) TableName() string { return "meal_plans" }
