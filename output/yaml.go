package output

import (
	"fmt"
	"os"

	"github.com/use-agent/prayertimes/models"
	"gopkg.in/yaml.v3"
)

// WriteYAML writes agg as YAML, keeping city, date and header order.
func WriteYAML(path string, agg *models.Aggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(4)
	if err := enc.Encode(agg); err != nil {
		f.Close()
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encode yaml: %w", err)
	}
	return f.Close()
}

// LoadYAML reads a file written by WriteYAML.
func LoadYAML(path string) (*models.Aggregate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	agg := models.NewAggregate()
	if err := yaml.Unmarshal(data, agg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return agg, nil
}
