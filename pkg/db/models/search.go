package models

import (
	"time"

	"gorm.io/gorm"
)

// SavedSearch is a named search expression a user can run again
type SavedSearch struct {
	ID              uint   `gorm:"primaryKey"                                  json:"id"`
	UserID          string `gorm:"type:text;not null;uniqueIndex:idx_user_search" json:"user_id"`
	Name            string `gorm:"type:text;not null;uniqueIndex:idx_user_search" json:"name"`
	QueryExpression string `gorm:"type:text;not null"                          json:"query_expression"` // e.g., `size>"10GB" title:"movie"`
	Description     string `gorm:"type:text"                                   json:"description"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
