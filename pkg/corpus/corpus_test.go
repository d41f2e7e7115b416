package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_SkipsUnverifiedPairs(t *testing.T) {
	path := writeCorpus(t, `
pairs:
  - question: "Who teaches [COURSE]?"
    answer: "[prof..first_name] teaches [ex]."
    verified: true
  - question: "What is the meaning of life?"
    answer: "Forty-two."
    verified: false
`)

	templates, err := Load(path)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "Who teaches [COURSE]?", templates[0].QuestionFormat)
	assert.Equal(t, "[prof..first_name] teaches [ex].", templates[0].AnswerFormat)
	assert.True(t, templates[0].Verified)
}

func TestLoad_NoVerifiedPairs(t *testing.T) {
	path := writeCorpus(t, `
pairs:
  - question: "Who teaches [COURSE]?"
    answer: "[prof..first_name] teaches [ex]."
    verified: false
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "no verified pairs")
}

func TestLoad_EmptyFormat(t *testing.T) {
	path := writeCorpus(t, `
pairs:
  - question: "Who teaches [COURSE]?"
    answer: ""
    verified: true
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "empty format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeCorpus(t, "pairs: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_SeedCorpusParses(t *testing.T) {
	// The repository's seed corpus must always load cleanly; the service
	// falls back to it on first boot.
	templates, err := Load(filepath.Join("..", "..", "q_a_pairs.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, templates)
	for _, tmpl := range templates {
		assert.True(t, tmpl.Verified)
	}
}
