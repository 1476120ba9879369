package ecs

import (
	"math/bits"
	"strconv"
)

// MaxComponentTypes is the hard ceiling on simultaneously registered
// component types. It is fixed by the mask width: one bit per type.
const MaxComponentTypes = 64

// Mask is a per-entity component bitset. Bit i is set iff the entity holds
// an instance of the component type assigned TypeID i. The Registry keeps
// this in lockstep with pool membership; nothing else may mutate it.
type Mask uint64

func (m *Mask) Set(id TypeID)   { *m |= 1 << uint64(id) }
func (m *Mask) Clear(id TypeID) { *m &^= 1 << uint64(id) }

func (m Mask) Has(id TypeID) bool {
	return m&(1<<uint64(id)) != 0
}

// ContainsAll reports whether every bit set in sub is also set in m.
// Views use this as their superset filter.
func (m Mask) ContainsAll(sub Mask) bool {
	return m&sub == sub
}

func (m Mask) IsEmpty() bool { return m == 0 }

// Count returns the number of set bits.
func (m Mask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Bits returns the TypeIDs of all set bits in ascending order.
func (m Mask) Bits() []TypeID {
	ids := make([]TypeID, 0, m.Count())
	v := uint64(m)
	for v != 0 {
		i := bits.TrailingZeros64(v)
		ids = append(ids, TypeID(i))
		v &^= 1 << uint(i)
	}
	return ids
}

func (m Mask) String() string {
	return "0b" + strconv.FormatUint(uint64(m), 2)
}
