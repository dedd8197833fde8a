package models

import (
	"time"
)

// SharedLink is a link a user shared through a host, with its visit counters
type SharedLink struct {
	AutoID         uint   `gorm:"primaryKey;autoIncrement"               json:"auto_id"`
	UserID         string `gorm:"type:text;not null;index:idx_user_link" json:"user_id"`
	State          string `gorm:"type:text;not null;default:'Valid'"     json:"state"`
	Host           string `gorm:"type:text;not null"                     json:"host"`
	CreatedBy      string `gorm:"type:text;not null"                     json:"created_by"`
	Title          string `gorm:"type:text"                              json:"title"`
	OriginalLink   string `gorm:"type:text;not null;index:idx_user_link" json:"original_link"`
	HostSharedLink string `gorm:"type:text"                              json:"host_shared_link"`

	// Counters
	Size    int64 `gorm:"default:0" json:"size"`
	Visitor int64 `gorm:"default:0" json:"visitor"`
	Stored  int64 `gorm:"default:0" json:"stored"`
	Revenue int64 `gorm:"default:0" json:"revenue"`

	// Timestamps
	LastVisitedAt time.Time `gorm:"index" json:"last_visited_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// DaysNotVisit is derived from LastVisitedAt when links are listed
	DaysNotVisit int64 `gorm:"-" json:"days_not_visit"`
}

// ComputeDaysNotVisit fills DaysNotVisit in whole days relative to now
func (l *SharedLink) ComputeDaysNotVisit(now time.Time) {
	if l.LastVisitedAt.IsZero() || now.Before(l.LastVisitedAt) {
		l.DaysNotVisit = 0
		return
	}
	l.DaysNotVisit = int64(now.Sub(l.LastVisitedAt) / (24 * time.Hour))
}
