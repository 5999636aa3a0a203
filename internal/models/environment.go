package models

// EnvRecord describes one conda environment known to the local installation.
type EnvRecord struct {
	Name    string `json:"name"`
	Prefix  string `json:"prefix"`
	Healthy bool   `json:"healthy"`
}
