package models

// Option is one entry of a <select> control: Value drives the selection,
// Text is the visible label.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}
