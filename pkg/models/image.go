package models

import "time"

// Image is a moth photo uploaded by a user. FilePath is relative to the
// media root; classified images are relocated into a bucket named after
// their species, unclassified ones live under DefaultSpecies.
type Image struct {
	ID         int64     `db:"id"          json:"id"`
	UserID     int64     `db:"user_id"     json:"user_id"`
	FilePath   string    `db:"file_path"   json:"file_path"`
	Country    string    `db:"country"     json:"country,omitempty"`
	Region     string    `db:"region"      json:"region,omitempty"`
	County     string    `db:"county"      json:"county,omitempty"`
	City       string    `db:"city"        json:"city,omitempty"`
	Street     string    `db:"street"      json:"street,omitempty"`
	ZipCode    *int      `db:"zip_code"    json:"zip_code,omitempty"`
	Lat        *float64  `db:"lat"         json:"lat,omitempty"`
	Lng        *float64  `db:"lng"         json:"lng,omitempty"`
	Width      *int      `db:"width"       json:"width,omitempty"`
	Height     *int      `db:"height"      json:"height,omitempty"`
	IsTraining bool      `db:"is_training" json:"is_training"`
	Hash       string    `db:"hash"        json:"hash,omitempty"`
	DateTaken  time.Time `db:"date_taken"  json:"date_taken"`
}
