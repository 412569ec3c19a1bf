package models

// DispatchMessage is the JSON payload published on the job-request channel.
// Workers load ModelFile, fetch the image by id, and answer on the result
// channel.
type DispatchMessage struct {
	Job       int64  `json:"job"`
	ModelFile string `json:"model_file"`
	Image     int64  `json:"image"`
}

// ResultMessage is the JSON payload a worker publishes on the job-result
// channel once inference is done. Accuracy is a percentage in [0, 100].
type ResultMessage struct {
	Job      int64   `json:"job"`
	Species  string  `json:"species"`
	Accuracy float64 `json:"accuracy"`
}
