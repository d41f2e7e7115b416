// Package corpus loads question/answer template corpora from YAML files.
// The file corpus seeds classifier training before the database holds any
// verified templates, and backs the offline training CLI.
package corpus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calpoly-csai/nimbus/pkg/models"
)

// File is the on-disk corpus shape.
type File struct {
	Pairs []models.QuestionTemplate `yaml:"pairs"`
}

// Load reads a YAML corpus and returns its verified template pairs.
// Unverified pairs are skipped; a corpus with no verified pairs is an error
// since a classifier cannot be trained from it.
func Load(path string) ([]models.QuestionTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}

	var verified []models.QuestionTemplate
	for _, pair := range file.Pairs {
		if !pair.Verified {
			continue
		}
		if pair.QuestionFormat == "" || pair.AnswerFormat == "" {
			return nil, fmt.Errorf("corpus %s has a pair with an empty format", path)
		}
		verified = append(verified, pair)
	}

	if len(verified) == 0 {
		return nil, fmt.Errorf("corpus %s contains no verified pairs", path)
	}

	return verified, nil
}
