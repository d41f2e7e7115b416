// Package nlp converts normalized questions into weighted lexical feature
// vectors for nearest-neighbor classification.
package nlp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/bbalet/stopwords"
	prose "github.com/jdkato/prose/v2"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
)

// Feature weights form a three-tier priority encoding: bracketed entity
// variables dominate, the main verb and interrogatives rank next, and all
// remaining content words share the base weight.
const (
	WeightBracketedVariable = 90
	WeightMainVerb          = 60
	WeightWHWord            = 60
	WeightContentWord       = 30
)

// FeatureVector maps a lexical feature key (bracketed variable text, lemma,
// or interrogative surface form) to its integer weight. Missing features
// are implicitly zero.
type FeatureVector map[string]int

// whTags are the Penn Treebank tags of interrogative determiners, pronouns
// and adverbs.
var whTags = map[string]struct{}{
	"WDT": {},
	"WP":  {},
	"WP$": {},
	"WRB": {},
}

var (
	bracketPattern  = regexp.MustCompile(`\[[^\[\]]*\]`)
	nonAlnumPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// FeatureExtractor tokenizes, tags and lemmatizes questions. It is
// stateless after construction and safe for concurrent use.
type FeatureExtractor struct {
	lemmatizer *golem.Lemmatizer
}

// NewFeatureExtractor loads the English lemma dictionary.
func NewFeatureExtractor() (*FeatureExtractor, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load lemmatizer: %w", err)
	}
	return &FeatureExtractor{lemmatizer: lemmatizer}, nil
}

// Extract builds the weighted feature vector of a normalized question.
// Extraction is deterministic: the same input always yields the same
// mapping. A question with no parseable sentence is an input error.
func (e *FeatureExtractor) Extract(question string) (FeatureVector, error) {
	features := make(FeatureVector)

	// Bracketed variables are features in their own right and must not
	// leak into tokenization.
	stripped := question
	for _, match := range bracketPattern.FindAllString(question, -1) {
		setFeature(features, match, WeightBracketedVariable)
		stripped = strings.ReplaceAll(stripped, match, " ")
	}

	stripped = nonAlnumPattern.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" && len(features) == 0 {
		return nil, apperrors.ErrEmptyQuestion
	}

	doc, err := prose.NewDocument(stripped, prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse question: %w", err)
	}

	tokens := doc.Tokens()
	if stripped != "" && (len(tokens) == 0 || len(doc.Sentences()) == 0) {
		return nil, apperrors.ErrEmptyQuestion
	}

	if verb, ok := mainVerb(tokens); ok {
		setFeature(features, e.lemmatizer.LemmaLower(verb), WeightMainVerb)
	}

	for _, tok := range tokens {
		if _, ok := whTags[tok.Tag]; ok {
			setFeature(features, strings.ToLower(tok.Text), WeightWHWord)
		}
	}

	for _, tok := range tokens {
		word := strings.ToLower(tok.Text)
		if isStopWord(word) {
			continue
		}
		lemma := e.lemmatizer.LemmaLower(word)
		if _, exists := features[lemma]; !exists {
			features[lemma] = WeightContentWord
		}
	}

	return features, nil
}

// WHWords returns the question's interrogative tokens in surface order,
// lowercased. Used to cross-check a predicted template against its input.
func (e *FeatureExtractor) WHWords(question string) ([]string, error) {
	text := strings.TrimSpace(bracketPattern.ReplaceAllString(question, " "))
	if text == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse question: %w", err)
	}

	var words []string
	for _, tok := range doc.Tokens() {
		if _, ok := whTags[tok.Tag]; ok {
			words = append(words, strings.ToLower(tok.Text))
		}
	}
	return words, nil
}

// mainVerb approximates the syntactic root of the first sentence: the first
// verb-tagged token, falling back to the leading token when the tagger finds
// no verb at all.
func mainVerb(tokens []prose.Token) (string, bool) {
	for _, tok := range tokens {
		if strings.HasPrefix(tok.Tag, "VB") {
			return tok.Text, true
		}
	}
	if len(tokens) > 0 {
		return tokens[0].Text, true
	}
	return "", false
}

// setFeature assigns the weight unless a higher-priority class already
// claimed the key.
func setFeature(features FeatureVector, key string, weight int) {
	if existing, ok := features[key]; ok && existing >= weight {
		return
	}
	features[key] = weight
}

func isStopWord(word string) bool {
	return strings.TrimSpace(stopwords.CleanString(word, "en", false)) == ""
}
