package database

import (
	"fmt"

	"agentforge/internal/logging"
	"agentforge/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// gormLogger forwards gorm's error output to zerolog.
type gormLogger struct {
	logger zerolog.Logger
}

func (l gormLogger) Print(values ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprint(values...))
}

// Open connects to the registry database and migrates its tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	db.SetLogger(gormLogger{logger: logging.WithComponent("database")})

	// SQLite allows a single writer; in-memory databases are also per connection.
	if driver == "sqlite3" {
		db.DB().SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.AgentRecord{}, &models.DeploymentRecord{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
