package billing

import (
	"errors"
	"time"
)

// Device is a billing terminal owned by exactly one shop.
type Device struct {
	ID        string    `json:"id"`
	ShopID    string    `json:"shop_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device: empty id")
	}
	if d.ShopID == "" {
		return errors.New("device: empty shop id")
	}
	return nil
}
