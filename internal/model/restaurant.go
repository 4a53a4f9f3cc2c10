package model

import "time"

// Restaurant is one row of the restaurants table.
type Restaurant struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Cuisine     string    `db:"cuisine" json:"cuisine"`
	Description string    `db:"description" json:"description"`
	MapURL      string    `db:"map_url" json:"map_url"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
