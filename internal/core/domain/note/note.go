package note

import "time"

// House is a map marker with a free-form note attached. Rows come from the
// relational store; the cache layer treats them as opaque payloads.
type House struct {
	ID          int64     `json:"id" db:"id"`
	Address     string    `json:"address" db:"address"`
	Description string    `json:"description" db:"description"`
	Lat         float64   `json:"lat" db:"lat"`
	Lng         float64   `json:"lng" db:"lng"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Comment is one threaded note under a house.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	HouseID   int64     `json:"house_id" db:"house_id"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateHouseRequest is the payload for creating a house note.
type CreateHouseRequest struct {
	Address     string  `json:"address"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// UpdateHouseRequest is the payload for editing a house note.
type UpdateHouseRequest struct {
	Address     string `json:"address"`
	Description string `json:"description"`
}
