package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/resume-matcher/internal/models"
)

const (
	resumesDirName     = "resumes"
	jobDescriptionName = "job_description"
	resultsFileName    = "results.json"
)

// StorageService owns the per-request staging tree:
//
//	<root>/<request_id>/job_description<ext>
//	<root>/<request_id>/resumes/<filename>
//	<root>/<request_id>/results.json
type StorageService interface {
	EnsureUploadDir() error
	CreateBatchDir(requestID string) error
	SaveJobDescription(requestID string, file *multipart.FileHeader) (string, error)
	SaveResume(requestID string, file *multipart.FileHeader) (string, error)
	ResumeDir(requestID string) string
	ResumePath(requestID, filename string) (string, error)
	WriteResults(requestID string, results []models.RankedResult) error
	ReadResults(requestID string) ([]models.RankedResult, error)
	DeleteBatch(requestID string) error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) batchDir(requestID string) (string, error) {
	if !isPlainName(requestID) {
		return "", fmt.Errorf("%w: invalid request id %q", ErrFileNotFound, requestID)
	}
	return filepath.Join(s.uploadPath, requestID), nil
}

func (s *storageService) CreateBatchDir(requestID string) error {
	dir, err := s.batchDir(requestID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, resumesDirName), 0755); err != nil {
		return fmt.Errorf("failed to create batch directory: %w", err)
	}
	return nil
}

func (s *storageService) SaveJobDescription(requestID string, file *multipart.FileHeader) (string, error) {
	dir, err := s.batchDir(requestID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	return saveMultipartFile(file, filepath.Join(dir, jobDescriptionName+ext))
}

func (s *storageService) SaveResume(requestID string, file *multipart.FileHeader) (string, error) {
	filename := filepath.Base(file.Filename)
	if !isPlainName(filename) {
		return "", fmt.Errorf("invalid resume filename: %q", file.Filename)
	}

	return saveMultipartFile(file, filepath.Join(s.ResumeDir(requestID), filename))
}

func (s *storageService) ResumeDir(requestID string) string {
	return filepath.Join(s.uploadPath, requestID, resumesDirName)
}

// ResumePath resolves a download target and rejects anything that would
// escape the batch's resume directory.
func (s *storageService) ResumePath(requestID, filename string) (string, error) {
	if _, err := s.batchDir(requestID); err != nil {
		return "", err
	}
	if !isPlainName(filename) {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, filename)
	}

	path := filepath.Join(s.ResumeDir(requestID), filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	return path, nil
}

func (s *storageService) WriteResults(requestID string, results []models.RankedResult) error {
	dir, err := s.batchDir(requestID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, resultsFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func (s *storageService) ReadResults(requestID string) ([]models.RankedResult, error) {
	dir, err := s.batchDir(requestID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, resultsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no results for %s", ErrFileNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var results []models.RankedResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return results, nil
}

// DeleteBatch removes one batch directory and nothing else.
func (s *storageService) DeleteBatch(requestID string) error {
	dir, err := s.batchDir(requestID)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete batch directory: %w", err)
	}
	return nil
}

func saveMultipartFile(file *multipart.FileHeader, dstPath string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return dstPath, nil
}

func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
