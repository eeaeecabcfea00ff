package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/lawdesk/lawdesk-server/internal/aicontext"
	"github.com/lawdesk/lawdesk-server/internal/chat"
	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return gdb, nil
}

// Migrate creates or updates every table the server and the worker share.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Case{},
		&models.CaseDocument{},
		&aicontext.CacheEntry{},
		&chat.Session{},
		&chat.Message{},
		&ocr.TranscriptionJob{},
	)
}
