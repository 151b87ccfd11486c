// Package models holds the service group entity.
package models

import (
	"smpd/pkg/domain"
)

// ServiceGroup is the local registration record for one participant on this
// SMP. At most one exists per participant identifier; the storage layer
// enforces that with a unique key on (scheme, value).
type ServiceGroup struct {
	ParticipantID domain.ParticipantIdentifier
	OwnerID       string
	// Extension is an opaque extension payload; nil means none.
	Extension *string
}

// Change reports whether a mutation touched anything.
type Change bool

const (
	Changed   Change = true
	Unchanged Change = false
)

// IsChanged reports whether the mutation modified state.
func (c Change) IsChanged() bool { return bool(c) }

// ExtensionEqual compares two optional extension payloads.
func ExtensionEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Diff reports which fields of an update differ from the current record.
type Diff struct {
	OwnerChanged     bool
	ExtensionChanged bool
}

// Any reports whether anything differs.
func (d Diff) Any() bool { return d.OwnerChanged || d.ExtensionChanged }

// DiffAgainst compares the stored record against proposed new values.
func (sg *ServiceGroup) DiffAgainst(newOwnerID string, newExtension *string) Diff {
	return Diff{
		OwnerChanged:     sg.OwnerID != newOwnerID,
		ExtensionChanged: !ExtensionEqual(sg.Extension, newExtension),
	}
}
