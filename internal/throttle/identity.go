package throttle

import "strconv"

// Identity is the unit of counting: a grouping key within one time slot.
// It is comparable and used directly as a map key, so two identities are the
// same bucket only when both the key and the slot are equal.
type Identity struct {
	Key  string
	Slot int64
}

// NewIdentity combines a resolved grouping key with a slot index.
func NewIdentity(key string, slot int64) Identity {
	return Identity{Key: key, Slot: slot}
}

// String renders the identity for logs.
func (id Identity) String() string {
	return id.Key + "@" + strconv.FormatInt(id.Slot, 10)
}
