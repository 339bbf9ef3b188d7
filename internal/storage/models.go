package storage

import (
	"time"

	"gorm.io/gorm"
)

// AppState stores small key/value settings that must survive restarts
type AppState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (AppState) TableName() string {
	return "app_state"
}

// BeforeSave stamps the update time
func (a *AppState) BeforeSave(tx *gorm.DB) error {
	if a.UpdatedTS == 0 {
		a.UpdatedTS = time.Now().Unix()
	}
	return nil
}
