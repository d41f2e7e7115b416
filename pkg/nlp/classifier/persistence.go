package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
)

const (
	classificationDir = "classification"
	featuresDir       = "features"
	modelPrefix       = "nlp-model-"
	featuresPrefix    = "overall-features-"
	timestampLayout   = "20060102T150405"
)

// Store persists trained models. One trained unit is two files sharing a
// timestamp: the model file (labels + vectors) and its companion overall
// feature set. They are only ever written and loaded together.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a model store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger.Named("model-store")}
}

// modelFile is the serialized model shape.
type modelFile struct {
	TrainedAt time.Time   `json:"trained_at"`
	Labels    []string    `json:"labels"`
	Vectors   [][]float64 `json:"vectors"`
}

// Save writes the model and its companion feature set as one timestamped
// unit, returning the model file path.
func (s *Store) Save(m *Model) (string, error) {
	ts := m.TrainedAt.UTC().Format(timestampLayout)

	classDir := filepath.Join(s.dir, classificationDir)
	featDir := filepath.Join(s.dir, featuresDir)
	for _, dir := range []string{classDir, featDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	rows, _ := m.matrix.Dims()
	vectors := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		vectors[i] = m.matrix.RawRowView(i)
	}

	modelPath := filepath.Join(classDir, modelPrefix+ts+".json")
	if err := writeJSON(modelPath, modelFile{
		TrainedAt: m.TrainedAt,
		Labels:    m.Labels,
		Vectors:   vectors,
	}); err != nil {
		return "", err
	}

	// The feature set is persisted as a zero-valued mapping; it exists
	// purely to pin the vectorization key ordering.
	features := make(map[string]int, len(m.Features))
	for _, key := range m.Features {
		features[key] = 0
	}
	featuresPath := filepath.Join(featDir, featuresPrefix+ts+".json")
	if err := writeJSON(featuresPath, features); err != nil {
		return "", err
	}

	s.logger.Info("Saved classifier model",
		zap.String("model", modelPath),
		zap.String("features", featuresPath))

	return modelPath, nil
}

// LoadLatest loads the most recent trained unit. It fails loudly when no
// model exists, or when the companion feature set is absent or does not
// match the model's vector width.
func (s *Store) LoadLatest() (*Model, error) {
	classDir := filepath.Join(s.dir, classificationDir)
	entries, err := os.ReadDir(classDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrModelMissing
		}
		return nil, fmt.Errorf("failed to read model directory: %w", err)
	}

	// Timestamped names sort chronologically, so the lexicographic maximum
	// is the most recent unit.
	var latest string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, modelPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name > latest {
			latest = name
		}
	}
	if latest == "" {
		return nil, apperrors.ErrModelMissing
	}

	ts := strings.TrimSuffix(strings.TrimPrefix(latest, modelPrefix), ".json")
	modelPath := filepath.Join(classDir, latest)
	featuresPath := filepath.Join(s.dir, featuresDir, featuresPrefix+ts+".json")

	var mf modelFile
	if err := readJSON(modelPath, &mf); err != nil {
		return nil, err
	}

	var features map[string]int
	if err := readJSON(featuresPath, &features); err != nil {
		return nil, fmt.Errorf("companion feature set for %s: %w", latest, err)
	}

	model, err := rebuild(mf, features)
	if err != nil {
		return nil, fmt.Errorf("model unit %s is inconsistent: %w", ts, err)
	}

	s.logger.Info("Loaded classifier model",
		zap.String("model", modelPath),
		zap.Time("trained_at", model.TrainedAt))

	return model, nil
}

// rebuild reconstructs the in-memory model from its two serialized halves,
// restoring the canonical ordering (sorted, NotRelatedFeature last).
func rebuild(mf modelFile, features map[string]int) (*Model, error) {
	if len(mf.Vectors) == 0 || len(mf.Labels) != len(mf.Vectors) {
		return nil, fmt.Errorf("label count %d does not match vector count %d",
			len(mf.Labels), len(mf.Vectors))
	}

	if _, ok := features[NotRelatedFeature]; !ok {
		return nil, fmt.Errorf("feature set is missing the %q key", NotRelatedFeature)
	}

	overall := make([]string, 0, len(features))
	for key := range features {
		if key == NotRelatedFeature {
			continue
		}
		overall = append(overall, key)
	}
	sort.Strings(overall)
	overall = append(overall, NotRelatedFeature)

	width := len(mf.Vectors[0])
	if width != len(overall) {
		return nil, fmt.Errorf("feature set size %d does not match vector width %d",
			len(overall), width)
	}

	matrix := mat.NewDense(len(mf.Vectors), width, nil)
	for i, row := range mf.Vectors {
		if len(row) != width {
			return nil, fmt.Errorf("vector %d has width %d, want %d", i, len(row), width)
		}
		matrix.SetRow(i, row)
	}

	return &Model{
		Features:  overall,
		Labels:    mf.Labels,
		TrainedAt: mf.TrainedAt,
		matrix:    matrix,
	}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
