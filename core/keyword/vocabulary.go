package keyword

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/siherrmann/refrag/model"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// DefaultVocabulary returns the built-in basketball rule vocabulary.
func DefaultVocabulary() *model.Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in vocabulary: %v", err))
	}
	return v
}

// ParseVocabulary parses and validates a YAML vocabulary.
func ParseVocabulary(data []byte) (*model.Vocabulary, error) {
	v := &model.Vocabulary{}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("error parsing vocabulary: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadVocabulary reads a YAML vocabulary from path.
func LoadVocabulary(path string) (*model.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseVocabulary(data)
}
