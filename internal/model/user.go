package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(64);not null" json:"name"`
	Email        string         `gorm:"type:varchar(256);not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(128);not null" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
