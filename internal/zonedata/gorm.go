package zonedata

import (
	"errors"
	"fmt"

	"github.com/compassradar/extension/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TerritoryTypeRow is the gorm model of a territory.
type TerritoryTypeRow struct {
	ID            uint32 `gorm:"primaryKey;autoIncrement:false"`
	MapID         uint32 `gorm:"index"`
	PlaceNameID   uint32
	IsPvPZone     bool
	BattalionMode uint8
	IntendedUse   uint8
	ExclusiveType uint8
}

// TableName fixes the table name across dialects.
func (TerritoryTypeRow) TableName() string { return "territory_types" }

// TerritoryTransientRow is the gorm model of a territory's transient data.
type TerritoryTransientRow struct {
	ID      uint32 `gorm:"primaryKey;autoIncrement:false"`
	OffsetZ int16
}

// TableName fixes the table name across dialects.
func (TerritoryTransientRow) TableName() string { return "territory_transients" }

// MapRow is the gorm model of a map.
type MapRow struct {
	ID         uint32 `gorm:"primaryKey;autoIncrement:false"`
	SizeFactor uint16
	OffsetX    int16
	OffsetY    int16
}

// TableName fixes the table name across dialects.
func (MapRow) TableName() string { return "maps" }

// PlaceNameRow stores all localised names of a place as one JSON column.
type PlaceNameRow struct {
	ID    uint32 `gorm:"primaryKey;autoIncrement:false"`
	Names datatypes.JSONMap
}

// TableName fixes the table name across dialects.
func (PlaceNameRow) TableName() string { return "place_names" }

// Models lists every table migrated by Store.Migrate.
var Models = []any{
	&TerritoryTypeRow{},
	&TerritoryTransientRow{},
	&MapRow{},
	&PlaceNameRow{},
}

// Store is a zone data provider backed by a gorm database.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the zone data tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate zone data schema: %w", err)
	}
	return nil
}

// Apply upserts every row in data inside one transaction.
func (s *Store) Apply(data SeedData) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Each table needs its own statement; a shared chain keeps the first model's schema.
		upsert := func(rows any) error {
			return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rows).Error
		}

		if len(data.Territories) > 0 {
			rows := make([]TerritoryTypeRow, 0, len(data.Territories))
			for _, t := range data.Territories {
				rows = append(rows, territoryToRow(t))
			}
			if err := upsert(&rows); err != nil {
				return fmt.Errorf("upserting territories: %w", err)
			}
		}

		if len(data.Transients) > 0 {
			rows := make([]TerritoryTransientRow, 0, len(data.Transients))
			for _, t := range data.Transients {
				rows = append(rows, TerritoryTransientRow{ID: t.ID, OffsetZ: t.OffsetZ})
			}
			if err := upsert(&rows); err != nil {
				return fmt.Errorf("upserting transients: %w", err)
			}
		}

		if len(data.Maps) > 0 {
			rows := make([]MapRow, 0, len(data.Maps))
			for _, m := range data.Maps {
				rows = append(rows, MapRow{ID: m.ID, SizeFactor: m.Scale, OffsetX: m.OffsetX, OffsetY: m.OffsetY})
			}
			if err := upsert(&rows); err != nil {
				return fmt.Errorf("upserting maps: %w", err)
			}
		}

		if len(data.PlaceNames) > 0 {
			rows := make([]PlaceNameRow, 0, len(data.PlaceNames))
			for _, p := range data.PlaceNames {
				names := datatypes.JSONMap{}
				for k, v := range p.Names {
					names[k] = v
				}
				rows = append(rows, PlaceNameRow{ID: p.ID, Names: names})
			}
			if err := upsert(&rows); err != nil {
				return fmt.Errorf("upserting place names: %w", err)
			}
		}

		return nil
	})
}

// Territory returns the territory row.
func (s *Store) Territory(id uint32) (core.TerritoryType, error) {
	var row TerritoryTypeRow
	if err := s.first(&row, id, "territory"); err != nil {
		return core.TerritoryType{}, err
	}
	return core.TerritoryType{
		ID:            row.ID,
		MapID:         row.MapID,
		PlaceNameID:   row.PlaceNameID,
		IsPvPZone:     row.IsPvPZone,
		BattalionMode: row.BattalionMode,
		IntendedUse:   row.IntendedUse,
		ExclusiveType: row.ExclusiveType,
	}, nil
}

// Transient returns the territory transient row.
func (s *Store) Transient(territoryID uint32) (core.TerritoryTransient, error) {
	var row TerritoryTransientRow
	if err := s.first(&row, territoryID, "territory transient"); err != nil {
		return core.TerritoryTransient{}, err
	}
	return core.TerritoryTransient{ID: row.ID, OffsetZ: row.OffsetZ}, nil
}

// Map returns the map row.
func (s *Store) Map(id uint32) (core.MapParameters, error) {
	var row MapRow
	if err := s.first(&row, id, "map"); err != nil {
		return core.MapParameters{}, err
	}
	return core.MapParameters{ID: row.ID, Scale: row.SizeFactor, OffsetX: row.OffsetX, OffsetY: row.OffsetY}, nil
}

// PlaceName returns the name in lang, falling back to English.
func (s *Store) PlaceName(id uint32, lang string) (string, error) {
	var row PlaceNameRow
	if err := s.first(&row, id, "place name"); err != nil {
		return "", err
	}
	names := make(map[string]string, len(row.Names))
	for k, v := range row.Names {
		if str, ok := v.(string); ok {
			names[k] = str
		}
	}
	return pickName(names, lang, id)
}

func (s *Store) first(dest any, id uint32, what string) error {
	err := s.db.Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading %s %d: %w", what, id, err)
	}
	return nil
}

func territoryToRow(t core.TerritoryType) TerritoryTypeRow {
	return TerritoryTypeRow{
		ID:            t.ID,
		MapID:         t.MapID,
		PlaceNameID:   t.PlaceNameID,
		IsPvPZone:     t.IsPvPZone,
		BattalionMode: t.BattalionMode,
		IntendedUse:   t.IntendedUse,
		ExclusiveType: t.ExclusiveType,
	}
}
