package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups complaints. Categories in use are deactivated, not deleted.
type Category struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Name        string    `gorm:"uniqueIndex;type:varchar(100);not null" json:"name" bson:"name"`
	Description string    `gorm:"type:text" json:"description" bson:"description"`
	Icon        string    `gorm:"type:varchar(64)" json:"icon" bson:"icon"`
	Color       string    `gorm:"type:varchar(16)" json:"color" bson:"color"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"isActive" bson:"isActive"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder" bson:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
