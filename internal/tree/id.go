package tree

// ID identifies a folder or file on the client. A Pending ID is a
// placeholder minted for an optimistic create and is never sent to the
// server; a Persisted ID is the server-issued one.
type ID struct {
	value   string
	pending bool
}

// Persisted wraps a server-issued ID
func Persisted(id string) ID {
	return ID{value: id}
}

// Pending wraps a client-minted temporary ID
func Pending(tempID string) ID {
	return ID{value: tempID, pending: true}
}

// IsPending reports whether the ID is a not-yet-reconciled placeholder
func (id ID) IsPending() bool { return id.pending }

// IsZero reports whether the ID is unset
func (id ID) IsZero() bool { return id.value == "" }

// Value returns the raw ID string, temporary or not
func (id ID) Value() string { return id.value }

// ServerID returns the server ID, or false for a pending ID
func (id ID) ServerID() (string, bool) {
	if id.pending || id.value == "" {
		return "", false
	}
	return id.value, true
}

func (id ID) String() string {
	if id.pending {
		return "pending:" + id.value
	}
	return id.value
}

// Ptr returns a pointer to a copy of id
func (id ID) Ptr() *ID { return &id }

// SameID compares two optional IDs; nil means the data room root
func SameID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// PersistedPtr converts an optional server ID
func PersistedPtr(id *string) *ID {
	if id == nil {
		return nil
	}
	return Persisted(*id).Ptr()
}
