package database

import (
	"log"

	"github.com/codyseavey/deckistry/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize opens the database, migrates it and installs it as the
// process-wide handle returned by GetDB.
func Initialize(dbPath string) error {
	db, err := Open(dbPath, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the SQLite file at dbPath and brings the schema and data
// up to date. Tests use it directly against a temporary file.
func Open(dbPath string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connected successfully")

	err = db.AutoMigrate(
		&models.Card{},
		&models.Deck{},
		&models.DeckCard{},
		&models.CollectionItem{},
		&models.Comment{},
		&models.Rating{},
	)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
