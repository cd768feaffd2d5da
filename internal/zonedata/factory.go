package zonedata

import (
	"fmt"
	"log/slog"

	"github.com/compassradar/extension/internal/config"
	"github.com/compassradar/extension/internal/zone"
	"gorm.io/gorm"
)

// New creates the zone data provider selected by cfg.Type and loads
// cfg.SeedFile into it when set.
func New(cfg config.ZoneDataConfig, dbCfg config.DBConfig, logger *slog.Logger) (zone.Provider, error) {
	var seed *SeedData
	if cfg.SeedFile != "" {
		data, err := LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = &data
	}

	switch cfg.Type {
	case "memory", "":
		m := NewMemory()
		if seed != nil {
			m.Apply(*seed)
		}
		logger.Info("Using in-memory zone data", "seed", cfg.SeedFile)
		return m, nil

	case "sqlite", "postgres":
		db, err := openFor(cfg, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s zone data: %w", cfg.Type, err)
		}
		s := NewStore(db)
		if err := s.Migrate(); err != nil {
			return nil, err
		}
		if seed != nil {
			if err := s.Apply(*seed); err != nil {
				return nil, err
			}
		}
		logger.Info("Using database zone data", "type", cfg.Type, "seed", cfg.SeedFile)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown zone data type: %s", cfg.Type)
	}
}

func openFor(cfg config.ZoneDataConfig, dbCfg config.DBConfig) (*gorm.DB, error) {
	if cfg.Type == "postgres" {
		return OpenPostgres(dbCfg)
	}
	return OpenSQLite(cfg.SQLitePath)
}
