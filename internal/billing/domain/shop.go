package billing

import (
	"errors"
	"time"
)

// Shop is a node in the merchant hierarchy.
type Shop struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsRoot reports whether the shop has no parent.
func (s Shop) IsRoot() bool { return s.ParentID == "" }

// Validate checks shop invariants.
func (s Shop) Validate() error {
	if s.ID == "" {
		return errors.New("shop: empty id")
	}
	if s.ParentID == s.ID {
		return errors.New("shop: parent is self")
	}
	return nil
}
