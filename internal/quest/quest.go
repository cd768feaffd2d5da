// Package quest looks up entries of the player's active quest list.
package quest

import "sync"

// ListLength is the number of slots in the active quest list.
const ListLength = 30

// Flags are the per-quest display flags.
type Flags uint8

const (
	FlagPriority Flags = 1
	FlagHidden   Flags = 8
)

// Quest is one slot of the active quest list.
type Quest struct {
	ID    uint16 `json:"id"`
	Seq   uint8  `json:"seq"`
	Flags Flags  `json:"flags"`
	// TodoFlags tracks the to-do steps of the current sequence.
	TodoFlags uint32 `json:"todoFlags"`
	// InteractedFlags has one bit per objective of the current sequence,
	// objective 0 in the most significant bit.
	InteractedFlags uint8 `json:"interactedFlags"`
	StartClassJobID uint8 `json:"startClassJobId"`
}

// IsHidden reports whether the quest is hidden from the quest tracker.
func (q Quest) IsHidden() bool { return q.Flags&FlagHidden != 0 }

// IsPriority reports whether the quest is pinned as a priority quest.
func (q Quest) IsPriority() bool { return q.Flags&FlagPriority != 0 }

// IsObjectiveInteracted reports whether objective idx (0..7) of the
// current sequence has been interacted with.
func (q Quest) IsObjectiveInteracted(idx int) bool {
	return idx >= 0 && idx <= 7 && q.InteractedFlags&(1<<(7-idx)) != 0
}

// Log holds the latest copy of the quest list pushed by the game host.
type Log struct {
	mu    sync.RWMutex
	slots []Quest
	ok    bool
}

// Update replaces the list. Entries past ListLength are ignored.
func (l *Log) Update(slots []Quest) {
	if len(slots) > ListLength {
		slots = slots[:ListLength]
	}
	cp := make([]Quest, len(slots))
	copy(cp, slots)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots = cp
	l.ok = true
}

// Reset forgets the list, e.g. on logout.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots = nil
	l.ok = false
}

// HasQuest reports whether id is in the list. Quest id 0 marks an empty slot.
func (l *Log) HasQuest(id uint16) bool {
	_, ok := l.TryGetQuest(id)
	return ok
}

// TryGetQuest returns the slot for id.
func (l *Log) TryGetQuest(id uint16) (Quest, bool) {
	if id == 0 {
		return Quest{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.ok {
		return Quest{}, false
	}
	for _, q := range l.slots {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}
