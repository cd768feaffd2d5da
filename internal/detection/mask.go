package detection

import "math/bits"

// FilterMask enables sub-categories of a policy, one bit per category.
// Bit i corresponds to row i of the policy's category table.
type FilterMask uint32

const (
	MaskNone FilterMask = 0
	MaskAll  FilterMask = 0xFFFFFFFF
)

// MaxCategories is the number of sub-categories a single mask can address.
const MaxCategories = 32

// Has reports whether category bit is enabled. Bits past 31 are never enabled.
func (m FilterMask) Has(bit uint) bool {
	return bit < MaxCategories && m&(1<<bit) != 0
}

// Set returns m with bit enabled.
func (m FilterMask) Set(bit uint) FilterMask {
	if bit >= MaxCategories {
		return m
	}
	return m | 1<<bit
}

// Clear returns m with bit disabled.
func (m FilterMask) Clear(bit uint) FilterMask {
	if bit >= MaxCategories {
		return m
	}
	return m &^ (1 << bit)
}

// Toggle returns m with bit flipped.
func (m FilterMask) Toggle(bit uint) FilterMask {
	if bit >= MaxCategories {
		return m
	}
	return m ^ 1<<bit
}

// IsAll reports whether every category is enabled.
func (m FilterMask) IsAll() bool { return m == MaskAll }

// IsNone reports whether every category is disabled.
func (m FilterMask) IsNone() bool { return m == MaskNone }

// Count returns the number of enabled categories.
func (m FilterMask) Count() int { return bits.OnesCount32(uint32(m)) }
