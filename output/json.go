package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/use-agent/prayertimes/models"
)

// WriteJSON writes agg as UTF-8 JSON with 4-space indentation. Non-ASCII
// text is written as is. The file is truncated first; a failed write can
// leave it partial.
func WriteJSON(path string, agg *models.Aggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(agg); err != nil {
		f.Close()
		return fmt.Errorf("encode json: %w", err)
	}
	return f.Close()
}

// LoadJSON reads a file written by WriteJSON.
func LoadJSON(path string) (*models.Aggregate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	agg := models.NewAggregate()
	if err := json.Unmarshal(data, agg); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return agg, nil
}
