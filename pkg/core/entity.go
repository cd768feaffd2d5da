// pkg/core/entity.go
package core

// EntityHandle is an opaque key into the live entity store.
// It is resolved again on every tick and never dereferenced directly.
type EntityHandle uint64

// EntityKind is the object kind tag reported by the game.
type EntityKind uint8

const (
	KindNone EntityKind = iota
	KindPlayer
	KindBattleNpc
	KindEventNpc
	KindTreasure
	KindAetheryte
	KindGatheringPoint
	KindEventObj
	KindMountType
	KindCompanion
	KindRetainer
	KindAreaObject
	KindHousingEventObject
	KindCutscene
	KindMjiObject
	KindOrnament
	KindCardStand
)

var kindNames = map[EntityKind]string{
	KindNone:               "None",
	KindPlayer:             "Player",
	KindBattleNpc:          "BattleNpc",
	KindEventNpc:           "EventNpc",
	KindTreasure:           "Treasure",
	KindAetheryte:          "Aetheryte",
	KindGatheringPoint:     "GatheringPoint",
	KindEventObj:           "EventObj",
	KindMountType:          "MountType",
	KindCompanion:          "Companion",
	KindRetainer:           "Retainer",
	KindAreaObject:         "AreaObject",
	KindHousingEventObject: "HousingEventObject",
	KindCutscene:           "Cutscene",
	KindMjiObject:          "MjiObject",
	KindOrnament:           "Ornament",
	KindCardStand:          "CardStand",
}

func (k EntityKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Entity is a one-tick snapshot of a live game object.
type Entity struct {
	Handle   EntityHandle  `json:"handle" yaml:"handle"`
	Name     string        `json:"name" yaml:"name"`
	Kind     EntityKind    `json:"kind" yaml:"kind"`
	NameID   uint32        `json:"nameId" yaml:"nameId"`
	DataID   uint32        `json:"dataId" yaml:"dataId"`
	Position WorldPosition `json:"position" yaml:"position"`
	Level    uint8         `json:"level" yaml:"level"`
	Dead     bool          `json:"dead" yaml:"dead"`
	Hostile  bool          `json:"hostile" yaml:"hostile"`
}

// IsCharacter reports whether the entity is a character-type object.
func (e Entity) IsCharacter() bool {
	switch e.Kind {
	case KindPlayer, KindBattleNpc, KindEventNpc, KindCompanion, KindRetainer:
		return true
	}
	return false
}

// IsAlive reports whether the entity is a living character.
func (e Entity) IsAlive() bool {
	return e.IsCharacter() && !e.Dead
}

// IsHostileCharacter reports whether the entity is a hostile character.
func (e Entity) IsHostileCharacter() bool {
	return e.IsCharacter() && e.Hostile
}

// CharacterLevel returns the level for characters and 0 otherwise.
func (e Entity) CharacterLevel() uint8 {
	if !e.IsCharacter() {
		return 0
	}
	return e.Level
}
