// train-classifier trains a question classifier from a YAML corpus and
// writes the timestamped model unit, without needing a database or a
// running server.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/corpus"
	"github.com/calpoly-csai/nimbus/pkg/nlp"
	"github.com/calpoly-csai/nimbus/pkg/nlp/classifier"
)

func main() {
	corpusPath := flag.String("corpus", "q_a_pairs.yaml", "path to the YAML template corpus")
	modelsDir := flag.String("models-dir", "models", "directory to write the trained model unit")
	threshold := flag.Float64("threshold", 150, "classifier distance threshold")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := train(*corpusPath, *modelsDir, *threshold, logger); err != nil {
		logger.Fatal("Training failed", zap.Error(err))
	}
}

func train(corpusPath, modelsDir string, threshold float64, logger *zap.Logger) error {
	templates, err := corpus.Load(corpusPath)
	if err != nil {
		return err
	}

	extractor, err := nlp.NewFeatureExtractor()
	if err != nil {
		return err
	}

	clf := classifier.New(extractor, threshold, logger)
	model, err := clf.Train(templates)
	if err != nil {
		return err
	}

	store := classifier.NewStore(modelsDir, logger)
	path, err := store.Save(model)
	if err != nil {
		return err
	}

	logger.Info("Wrote model unit",
		zap.String("path", path),
		zap.Int("templates", len(templates)))
	return nil
}
