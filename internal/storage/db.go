package storage

import (
	"highlight-ai/internal/appdirs"
	"highlight-ai/internal/types"
	"highlight-ai/log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB
var appDirsResolver = appdirs.Resolve

func InitDB() {
	dbPath, err := resolveDBPath()
	if err != nil {
		log.GetLogger().Fatal("failed to resolve database path", zap.Error(err))
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.GetLogger().Fatal("failed to create database directory", zap.String("dir", dir), zap.Error(err))
	}

	DB, err = openDB(dbPath)
	if err != nil {
		log.GetLogger().Fatal("failed to open database", zap.String("path", dbPath), zap.Error(err))
	}

	log.GetLogger().Info("Database initialized successfully", zap.String("path", dbPath))
}

// OpenAt replaces DB with the sqlite file at dbPath.
func OpenAt(dbPath string) error {
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// openDB opens the sqlite file and migrates the job schema. Tests use it with
// a temp path.
func openDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&types.HighlightJob{}); err != nil {
		return nil, err
	}
	return db, nil
}

func resolveDBPath() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.DBPathFor(dirs), nil
}
