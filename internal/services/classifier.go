package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

// CategoryLabels maps the classifier's integer classes to job categories.
// "Blockchain " keeps the trailing space it was trained with.
var CategoryLabels = [20]string{
	"Arts",
	"Automation Testing",
	"Operations Manager",
	"DotNet Developer",
	"Civil Engineer",
	"Data Science",
	"Database",
	"DevOps Engineer",
	"Business Analyst",
	"Health and fitness",
	"HR",
	"Electrical Engineering",
	"Java Developer",
	"Mechanical Engineer",
	"Network Security Engineer",
	"Blockchain ",
	"Python Developer",
	"Sales",
	"Testing",
	"Web Designing",
}

// Classifier predicts a resume's job category.
type Classifier interface {
	Classify(path string) (string, error)
	ClassifyText(rawText string) (string, error)
}

// SparseVector is a bag-of-words vector keyed by vocabulary index.
type SparseVector map[int]float64

// TFIDFVectorizer is the persisted vectorizer artifact.
type TFIDFVectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Lowercase   bool           `json:"lowercase"`
	SublinearTF bool           `json:"sublinear_tf"`
	StopWords   []string       `json:"stop_words,omitempty"`

	stopSet map[string]struct{}
}

var vectorizerToken = regexp.MustCompile(`\b\w\w+\b`)

// Transform turns text into an L2-normalised TF-IDF vector.
func (v *TFIDFVectorizer) Transform(text string) SparseVector {
	if v.Lowercase {
		text = strings.ToLower(text)
	}

	counts := make(map[int]float64)
	for _, token := range vectorizerToken.FindAllString(text, -1) {
		if _, stop := v.stopSet[token]; stop {
			continue
		}
		if idx, ok := v.Vocabulary[token]; ok {
			counts[idx]++
		}
	}

	vec := make(SparseVector, len(counts))
	var norm float64
	for idx, tf := range counts {
		if v.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		weight := tf
		if idx < len(v.IDF) {
			weight *= v.IDF[idx]
		}
		vec[idx] = weight
		norm += weight * weight
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

type knnSample struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// KNNModel is the persisted nearest-neighbour classifier artifact.
type KNNModel struct {
	Neighbors int         `json:"n_neighbors"`
	Samples   []knnSample `json:"samples"`
	Labels    []int       `json:"labels"`

	vectors []SparseVector
}

type neighbour struct {
	distance float64
	label    int
}

// Predict returns the majority class among the nearest training samples.
// Vote ties go to the smallest class index.
func (m *KNNModel) Predict(vec SparseVector) (int, error) {
	if len(m.vectors) == 0 {
		return 0, fmt.Errorf("classifier has no training samples")
	}

	neighbours := make([]neighbour, len(m.vectors))
	for i, sample := range m.vectors {
		neighbours[i] = neighbour{distance: euclidean(vec, sample), label: m.Labels[i]}
	}
	sort.SliceStable(neighbours, func(i, j int) bool {
		return neighbours[i].distance < neighbours[j].distance
	})

	k := m.Neighbors
	if k <= 0 || k > len(neighbours) {
		k = len(neighbours)
	}

	votes := make(map[int]int)
	for _, n := range neighbours[:k] {
		votes[n.label]++
	}

	best, bestVotes := -1, 0
	for label, count := range votes {
		if count > bestVotes || (count == bestVotes && label < best) {
			best, bestVotes = label, count
		}
	}
	return best, nil
}

func euclidean(a, b SparseVector) float64 {
	var sum float64
	for idx, av := range a {
		d := av - b[idx]
		sum += d * d
	}
	for idx, bv := range b {
		if _, ok := a[idx]; !ok {
			sum += bv * bv
		}
	}
	return math.Sqrt(sum)
}

type classifierService struct {
	extractor  TextExtractor
	vectorizer *TFIDFVectorizer
	model      *KNNModel
}

// NewClassifier wires already loaded artifacts into a Classifier.
func NewClassifier(extractor TextExtractor, vectorizer *TFIDFVectorizer, model *KNNModel) Classifier {
	return &classifierService{
		extractor:  extractor,
		vectorizer: vectorizer,
		model:      model,
	}
}

// LoadClassifier reads both artifacts from disk. Called once at startup.
func LoadClassifier(extractor TextExtractor, vectorizerPath, modelPath string) (Classifier, error) {
	vectorizer, err := LoadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}

	model, err := LoadKNNModel(modelPath)
	if err != nil {
		return nil, err
	}

	return NewClassifier(extractor, vectorizer, model), nil
}

func LoadVectorizer(path string) (*TFIDFVectorizer, error) {
	var v TFIDFVectorizer
	if err := readJSONArtifact(path, &v); err != nil {
		return nil, fmt.Errorf("failed to load vectorizer: %w", err)
	}
	if len(v.Vocabulary) == 0 {
		return nil, fmt.Errorf("failed to load vectorizer: empty vocabulary in %s", path)
	}

	v.stopSet = make(map[string]struct{}, len(v.StopWords))
	for _, w := range v.StopWords {
		v.stopSet[w] = struct{}{}
	}
	return &v, nil
}

func LoadKNNModel(path string) (*KNNModel, error) {
	var m KNNModel
	if err := readJSONArtifact(path, &m); err != nil {
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}
	if len(m.Samples) != len(m.Labels) {
		return nil, fmt.Errorf("failed to load classifier: %d samples but %d labels", len(m.Samples), len(m.Labels))
	}

	m.vectors = make([]SparseVector, len(m.Samples))
	for i, s := range m.Samples {
		if len(s.Indices) != len(s.Values) {
			return nil, fmt.Errorf("failed to load classifier: sample %d is malformed", i)
		}
		vec := make(SparseVector, len(s.Indices))
		for j, idx := range s.Indices {
			vec[idx] = s.Values[j]
		}
		m.vectors[i] = vec
	}
	return &m, nil
}

func readJSONArtifact(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	return nil
}

// Classify implements Classifier.
func (c *classifierService) Classify(path string) (string, error) {
	text, err := c.extractor.Extract(path)
	if err != nil {
		return "", err
	}
	return c.ClassifyText(text)
}

// ClassifyText implements Classifier.
func (c *classifierService) ClassifyText(rawText string) (string, error) {
	text := strings.ReplaceAll(rawText, `\n`, " ")
	vec := c.vectorizer.Transform(CleanResume(text))

	class, err := c.model.Predict(vec)
	if err != nil {
		return "", err
	}

	if class < 0 || class >= len(CategoryLabels) {
		return "", fmt.Errorf("%w: %d", ErrUnknownCategory, class)
	}
	return CategoryLabels[class], nil
}
