// Package classifier implements the nearest-neighbor question classifier.
// Each known question format is embedded as a weighted lexical feature
// vector; an incoming question is assigned the closest format unless the
// distance exceeds a configured threshold.
package classifier

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/nlp"
)

// NotRelatedFeature is the reserved catch-all key appended to every overall
// feature set. It is always zero-valued and exists so an all-unknown input
// still vectorizes into the trained space.
const NotRelatedFeature = "not related"

// Outcome describes how a classification attempt ended.
type Outcome int

const (
	// OutcomeMatched means the nearest template is a confident match.
	OutcomeMatched Outcome = iota

	// OutcomeOutOfDomain means no template is within the distance threshold.
	OutcomeOutOfDomain

	// OutcomeWHMismatch means the nearest template disagrees with the input
	// on interrogative words. Treated as a rejection: a WH mismatch strongly
	// suggests a wrong template.
	OutcomeWHMismatch
)

// Prediction is the result of classifying one question.
type Prediction struct {
	QuestionClass string
	Distance      float64
	Outcome       Outcome
}

// Model is an immutable trained nearest-neighbor index. Concurrent reads
// are safe; retraining builds a new Model and swaps the reference.
type Model struct {
	// Features is the overall feature set in its fixed vectorization order,
	// with NotRelatedFeature last.
	Features []string

	// Labels holds the original question format of each training vector.
	Labels []string

	TrainedAt time.Time

	matrix *mat.Dense
}

// Classifier classifies questions against an atomically-swappable Model.
type Classifier struct {
	extractor *nlp.FeatureExtractor
	threshold float64
	logger    *zap.Logger
	model     atomic.Pointer[Model]
}

// New creates a classifier with no model loaded. Callers must Swap in a
// trained or freshly-loaded model before classifying.
func New(extractor *nlp.FeatureExtractor, threshold float64, logger *zap.Logger) *Classifier {
	return &Classifier{
		extractor: extractor,
		threshold: threshold,
		logger:    logger.Named("question-classifier"),
	}
}

// Swap atomically replaces the live model. In-flight classifications keep
// using the model they started with.
func (c *Classifier) Swap(m *Model) {
	c.model.Store(m)
}

// Model returns the live model, or nil when none is loaded.
func (c *Classifier) Model() *Model {
	return c.model.Load()
}

// Train builds a model from the template corpus: extract features for every
// question format, union the keys into the overall feature set, and embed
// each template as a dense vector over that fixed ordering.
func (c *Classifier) Train(templates []models.QuestionTemplate) (*Model, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("cannot train on an empty template corpus")
	}

	labels := make([]string, 0, len(templates))
	featureMaps := make([]nlp.FeatureVector, 0, len(templates))
	union := make(map[string]struct{})

	for _, t := range templates {
		features, err := c.extractor.Extract(t.QuestionFormat)
		if err != nil {
			return nil, fmt.Errorf("failed to extract features for %q: %w", t.QuestionFormat, err)
		}
		labels = append(labels, t.QuestionFormat)
		featureMaps = append(featureMaps, features)
		for key := range features {
			union[key] = struct{}{}
		}
	}

	// Sorted ordering keeps vectorization reproducible between training
	// and inference; the ordering is persisted with the model.
	overall := make([]string, 0, len(union)+1)
	for key := range union {
		if key == NotRelatedFeature {
			continue
		}
		overall = append(overall, key)
	}
	sort.Strings(overall)
	overall = append(overall, NotRelatedFeature)

	matrix := mat.NewDense(len(featureMaps), len(overall), nil)
	for i, features := range featureMaps {
		matrix.SetRow(i, vectorize(features, overall))
	}

	model := &Model{
		Features:  overall,
		Labels:    labels,
		TrainedAt: time.Now(),
		matrix:    matrix,
	}

	c.logger.Info("Trained question classifier",
		zap.Int("templates", len(labels)),
		zap.Int("features", len(overall)))

	return model, nil
}

// Classify assigns the incoming question to its nearest known question
// format. Features unseen at training time contribute zero.
func (c *Classifier) Classify(question string) (Prediction, error) {
	m := c.model.Load()
	if m == nil {
		return Prediction{}, apperrors.ErrModelMissing
	}

	features, err := c.extractor.Extract(question)
	if err != nil {
		return Prediction{}, err
	}

	vector := vectorize(features, m.Features)

	minDist := -1.0
	nearest := 0
	rows, _ := m.matrix.Dims()
	for i := 0; i < rows; i++ {
		d := floats.Distance(m.matrix.RawRowView(i), vector, 2)
		if minDist < 0 || d < minDist {
			minDist = d
			nearest = i
		}
	}

	if minDist > c.threshold {
		c.logger.Debug("Question out of domain", zap.Float64("distance", minDist))
		return Prediction{Distance: minDist, Outcome: OutcomeOutOfDomain}, nil
	}

	predicted := m.Labels[nearest]

	match, err := c.whWordsAgree(question, predicted)
	if err != nil {
		return Prediction{}, err
	}
	if !match {
		c.logger.Debug("WH words disagree with predicted template",
			zap.String("predicted", predicted))
		return Prediction{QuestionClass: predicted, Distance: minDist, Outcome: OutcomeWHMismatch}, nil
	}

	return Prediction{QuestionClass: predicted, Distance: minDist, Outcome: OutcomeMatched}, nil
}

// whWordsAgree compares the interrogative token sequences of the input and
// the predicted template.
func (c *Classifier) whWordsAgree(question, predicted string) (bool, error) {
	qWords, err := c.extractor.WHWords(question)
	if err != nil {
		return false, err
	}
	pWords, err := c.extractor.WHWords(predicted)
	if err != nil {
		return false, err
	}
	if len(qWords) != len(pWords) {
		return false, nil
	}
	for i := range qWords {
		if qWords[i] != pWords[i] {
			return false, nil
		}
	}
	return true, nil
}

// vectorize projects a feature map onto the fixed overall ordering. Keys
// outside the ordering are dropped.
func vectorize(features nlp.FeatureVector, overall []string) []float64 {
	vector := make([]float64, len(overall))
	for i, key := range overall {
		if weight, ok := features[key]; ok {
			vector[i] = float64(weight)
		}
	}
	return vector
}
