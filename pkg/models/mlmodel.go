package models

import "time"

// ModelType distinguishes the two kinds of ML model artifacts workers load.
type ModelType string

const (
	ModelTypeDetector   ModelType = "detector"
	ModelTypeClassifier ModelType = "classifier"
)

// MLModel references a trained model artifact. FileName identifies the file
// a worker must load; Rating drives model selection at dispatch time.
type MLModel struct {
	ID          int64     `db:"id"           json:"id"`
	Name        string    `db:"name"         json:"name"`
	FileName    string    `db:"file_name"    json:"file_name"`
	ModelType   ModelType `db:"model_type"   json:"model_type"`
	Rating      float64   `db:"rating"       json:"rating"`
	Comments    string    `db:"comments"     json:"comments,omitempty"`
	DateCreated time.Time `db:"date_created" json:"date_created"`
}
