package models

// RunRequest triggers an ingest run. Empty Files reconciles everything the
// file source provides.
type RunRequest struct {
	Files []string `json:"files" validate:"max=100,unique,dive,required,endswith=.xlsx"`
}
