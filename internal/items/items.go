package items

import "sync"

// ItemType represents a unique identifier for an item kind.
type ItemType = string

// ItemStack represents a quantity of a specific item type and fungibility key.
type ItemStack struct {
	Type           ItemType `json:"type"`
	FungibilityKey string   `json:"fungibility_key"`
	Quantity       int      `json:"quantity"`
}

// IsEmpty reports whether the stack holds no item.
func (s ItemStack) IsEmpty() bool {
	return s.Type == "" && s.Quantity == 0
}

// SameItemSameKey reports whether two stacks hold the same item kind with the
// same fungibility key, ignoring quantity.
func SameItemSameKey(a, b ItemStack) bool {
	return a.Type == b.Type && a.FungibilityKey == b.FungibilityKey
}

// StacksEqual reports whether two stacks are structurally identical: same
// item kind, same fungibility key, and same quantity.
func StacksEqual(a, b ItemStack) bool {
	return SameItemSameKey(a, b) && a.Quantity == b.Quantity
}

// Storage is a fixed-size indexed slot store. Reads and writes outside the
// slot range are no-ops that return the zero stack.
type Storage struct {
	mu    sync.RWMutex
	slots []ItemStack
}

// NewStorage allocates an empty store with the given slot count.
func NewStorage(size int) *Storage {
	if size < 0 {
		size = 0
	}
	return &Storage{slots: make([]ItemStack, size)}
}

// Get returns the stack stored at slot.
func (s *Storage) Get(slot int) ItemStack {
	if s == nil {
		return ItemStack{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if slot < 0 || slot >= len(s.slots) {
		return ItemStack{}
	}
	return s.slots[slot]
}

// Set stores the stack at slot.
func (s *Storage) Set(slot int, item ItemStack) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= len(s.slots) {
		return
	}
	s.slots[slot] = item
}

// Size returns the slot count.
func (s *Storage) Size() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Snapshot copies the current slot contents.
func (s *Storage) Snapshot() []ItemStack {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]ItemStack, len(s.slots))
	copy(copied, s.slots)
	return copied
}
