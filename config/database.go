package config

import (
	"fmt"

	"recipebox/models"
	"recipebox/utils"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "mysql":
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DBUser, c.DBPassword, c.DBHost, port, c.DBName)
	case "sqlite":
		return c.DBPath
	default:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	}
}

// OpenDB connects to the configured database.
func OpenDB(c *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.DBDriver {
	case "mysql":
		dialector = mysql.Open(c.DSN())
	case "sqlite":
		dialector = sqlite.Open(c.DSN())
	default:
		dialector = postgres.Open(c.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: utils.NewGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.DBDriver, err)
	}
	return db, nil
}

// Migrate creates or updates the recipe tables and their join tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.Tag{},
		&models.Recipe{},
	); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	if err := backfillSearchNames(db, &models.Recipe{}); err != nil {
		return err
	}
	return backfillSearchNames(db, &models.Ingredient{})
}

// backfillSearchNames fills search_name on rows stored before the column
// existed. UpdateColumn skips hooks and timestamps.
func backfillSearchNames(db *gorm.DB, model interface{}) error {
	type row struct {
		ID   uint
		Name string
	}
	for {
		var rows []row
		err := db.Model(model).
			Select("id", "name").
			Where("(search_name IS NULL OR search_name = '') AND name <> ''").
			Order("id").
			Limit(500).
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("backfill search names: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for _, r := range rows {
			err := db.Model(model).Where("id = ?", r.ID).
				UpdateColumn("search_name", models.SearchKey(r.Name)).Error
			if err != nil {
				return fmt.Errorf("backfill search name of %d: %w", r.ID, err)
			}
		}
	}
}
