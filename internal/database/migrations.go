package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs the data migrations after schema changes.
// Every step is safe to run on each startup.
func RunMigrations(db *gorm.DB) error {
	if err := migrateFormatValues(db); err != nil {
		return err
	}
	if err := cleanupEmptyDeckCards(db); err != nil {
		return err
	}
	if err := cleanupCommanderDeckCards(db); err != nil {
		return err
	}
	return nil
}

// migrateFormatValues lower-cases legacy format names ("Commander" -> "commander")
func migrateFormatValues(db *gorm.DB) error {
	if !db.Migrator().HasColumn("decks", "format") {
		return nil
	}

	result := db.Exec(`UPDATE decks SET format = LOWER(TRIM(format)) WHERE format <> LOWER(TRIM(format))`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Normalized format of %d decks", result.RowsAffected)
	}
	return nil
}

// cleanupEmptyDeckCards removes composition rows that can never be loaded
func cleanupEmptyDeckCards(db *gorm.DB) error {
	if !db.Migrator().HasTable("deck_cards") {
		return nil
	}

	result := db.Exec(`DELETE FROM deck_cards WHERE quantity IS NULL OR quantity < 1`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d deck_cards entries with no quantity", result.RowsAffected)
	}
	return nil
}

// cleanupCommanderDeckCards removes entries that duplicate the deck's
// commander. The commander lives in decks.commander_id only.
func cleanupCommanderDeckCards(db *gorm.DB) error {
	if !db.Migrator().HasTable("deck_cards") || !db.Migrator().HasColumn("decks", "commander_id") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM deck_cards
		WHERE EXISTS (
			SELECT 1 FROM decks
			WHERE decks.id = deck_cards.deck_id
			AND decks.commander_id = deck_cards.card_id
		)
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to clean up commander duplicates: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d deck_cards entries duplicating a commander", result.RowsAffected)
	}
	return nil
}
