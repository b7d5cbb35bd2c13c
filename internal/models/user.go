package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a platform account: a citizen, an official or an admin.
type User struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Name       string    `gorm:"type:varchar(120);not null" json:"name" bson:"name"`
	Email      string    `gorm:"uniqueIndex;type:varchar(255);not null" json:"email" bson:"email"`
	Password   string    `gorm:"not null" json:"-" bson:"password"`
	Role       Role      `gorm:"type:varchar(16);index;not null;default:citizen" json:"role" bson:"role"`
	Phone      string    `gorm:"type:varchar(32)" json:"phone,omitempty" bson:"phone,omitempty"`
	Address    string    `gorm:"type:text" json:"address,omitempty" bson:"address,omitempty"`
	Department string    `gorm:"type:varchar(120)" json:"department,omitempty" bson:"department,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// BeforeCreate викликається GORM перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// ProfileUpdate carries the self-service profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
}
