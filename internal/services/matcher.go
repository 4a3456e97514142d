package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/models"
)

// MatcherService ranks a folder of resumes against one job description.
type MatcherService interface {
	RankBatch(ctx context.Context, jobDescPath, resumeDir string) ([]models.RankedResult, error)
}

// ResumeRecord is everything derived from one resume during a batch.
type ResumeRecord struct {
	Filename       string
	RawText        string
	NormalizedText string
	Name           string
	Email          string
	Category       string
}

type matcherService struct {
	extractor  TextExtractor
	pdfParser  PDFParserService
	normalizer *Normalizer
	classifier Classifier
	embedder   Embedder
	ranker     Ranker
	resumeExt  string
	log        *zap.Logger
}

func NewMatcherService(
	extractor TextExtractor,
	pdfParser PDFParserService,
	normalizer *Normalizer,
	classifier Classifier,
	embedder Embedder,
	ranker Ranker,
	resumeExt string,
	log *zap.Logger,
) MatcherService {
	return &matcherService{
		extractor:  extractor,
		pdfParser:  pdfParser,
		normalizer: normalizer,
		classifier: classifier,
		embedder:   embedder,
		ranker:     ranker,
		resumeExt:  strings.ToLower(resumeExt),
		log:        log,
	}
}

// RankBatch implements MatcherService. Any failure aborts the whole batch.
func (m *matcherService) RankBatch(ctx context.Context, jobDescPath, resumeDir string) ([]models.RankedResult, error) {
	m.log.Info("📄 Preparing job description", zap.String("file", filepath.Base(jobDescPath)))

	jobText, err := m.extractor.Extract(jobDescPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job description: %w", err)
	}
	jobDescription := m.normalizer.NormalizeForEmbedding(jobText)

	resumeFiles, err := m.listResumes(resumeDir)
	if err != nil {
		return nil, err
	}

	records := make([]ResumeRecord, 0, len(resumeFiles))
	for _, filename := range resumeFiles {
		record, err := m.prepareResume(filepath.Join(resumeDir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to process resume %s: %w", filename, err)
		}
		records = append(records, *record)
	}

	results := make([]models.RankedResult, 0, len(records))
	if len(records) == 0 {
		m.log.Info("⚠️  No resumes to rank", zap.String("extension", m.resumeExt))
		return results, nil
	}

	m.log.Info("🤖 Embedding batch", zap.Int("resumes", len(records)))

	jobVector, err := m.embedder.EmbedOne(ctx, jobDescription)
	if err != nil {
		return nil, fmt.Errorf("failed to embed job description: %w", err)
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.NormalizedText
	}

	resumeVectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed resumes: %w", err)
	}

	if err := checkDimensions(jobVector, resumeVectors, len(records)); err != nil {
		return nil, err
	}

	scores, err := m.ranker.Score(ctx, jobVector, resumeVectors)
	if err != nil {
		return nil, fmt.Errorf("failed to score resumes: %w", err)
	}
	if len(scores) != len(records) {
		return nil, fmt.Errorf("ranker returned %d scores for %d resumes", len(scores), len(records))
	}

	for i, record := range records {
		results = append(results, models.RankedResult{
			Name:            record.Name,
			ResumeFilename:  record.Filename,
			Email:           record.Email,
			Category:        record.Category,
			SimilarityScore: ToPercentage(scores[i]),
		})
	}

	SortResults(results)

	m.log.Info("✅ Batch ranked", zap.Int("resumes", len(results)))
	return results, nil
}

// listResumes returns matching filenames sorted lexicographically so output
// does not depend on directory listing order.
func (m *matcherService) listResumes(resumeDir string) ([]string, error) {
	entries, err := os.ReadDir(resumeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != m.resumeExt {
			continue
		}
		files = append(files, entry.Name())
	}

	sort.Strings(files)
	return files, nil
}

func (m *matcherService) prepareResume(path string) (*ResumeRecord, error) {
	text, err := m.extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	rawText := text
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		// page-ordered text keeps names and emails on their original lines
		rawText, err = m.pdfParser.ExtractText(path)
		if err != nil {
			return nil, err
		}
	}

	category, err := m.classifier.ClassifyText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to classify: %w", err)
	}

	return &ResumeRecord{
		Filename:       filepath.Base(path),
		RawText:        rawText,
		NormalizedText: m.normalizer.NormalizeForEmbedding(text),
		Name:           ExtractName(rawText),
		Email:          ExtractEmail(rawText),
		Category:       category,
	}, nil
}

func checkDimensions(jobVector []float32, resumeVectors [][]float32, want int) error {
	if len(resumeVectors) != want {
		return fmt.Errorf("embedder returned %d vectors for %d resumes", len(resumeVectors), want)
	}
	for i, vec := range resumeVectors {
		if len(vec) != len(jobVector) {
			return fmt.Errorf("%w: job description has %d dimensions, resume %d has %d",
				ErrDimensionMismatch, len(jobVector), i, len(vec))
		}
	}
	return nil
}

// SortResults orders by score descending; equal scores fall back to
// filename so the report is reproducible.
func SortResults(results []models.RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return results[i].ResumeFilename < results[j].ResumeFilename
	})
}
