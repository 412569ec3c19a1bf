package models

// DefaultSpecies is the sentinel species assigned to images that have not
// been classified yet. Unclassified assets live in the bucket of this name
// under the media root.
const DefaultSpecies = "unknown"

// Classification is the species/accuracy verdict attached to an image.
// Exactly one exists per image; the image id is its primary key.
type Classification struct {
	ImageID     int64   `db:"image_id"     json:"image_id"`
	Species     string  `db:"species"      json:"species"`
	Accuracy    float64 `db:"accuracy"     json:"accuracy"`
	IsAutomated bool    `db:"is_automated" json:"is_automated"`
	NeedsReview bool    `db:"needs_review" json:"needs_review"`
}
