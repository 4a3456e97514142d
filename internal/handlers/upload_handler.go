package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type UploadHandler struct {
	batchRepo      repositories.BatchRepository
	storageService services.StorageService
	matcher        services.MatcherService
	maxFileSize    int64
	batchTTL       time.Duration
	log            *zap.Logger
}

func NewUploadHandler(
	batchRepo repositories.BatchRepository,
	storageService services.StorageService,
	matcher services.MatcherService,
	maxFileSize int64,
	batchTTL time.Duration,
	log *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		batchRepo:      batchRepo,
		storageService: storageService,
		matcher:        matcher,
		maxFileSize:    maxFileSize,
		batchTTL:       batchTTL,
		log:            log,
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Failed to parse multipart form")
	}

	jobFiles := form.File["job_description"]
	if len(jobFiles) == 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Job description file is required")
	}
	jobFile := jobFiles[0]
	resumeFiles := form.File["resumes"]

	if jobFile.Size > h.maxFileSize {
		return errorResponse(c, fiber.StatusBadRequest,
			fmt.Sprintf("Job description file too large. Max size: %d bytes", h.maxFileSize))
	}
	for _, resume := range resumeFiles {
		if resume.Size > h.maxFileSize {
			return errorResponse(c, fiber.StatusBadRequest,
				fmt.Sprintf("Resume %s too large. Max size: %d bytes", filepath.Base(resume.Filename), h.maxFileSize))
		}
	}

	now := time.Now()
	batch := models.Batch{
		ID:                 uuid.New(),
		JobDescriptionFile: filepath.Base(jobFile.Filename),
		ResumeCount:        len(resumeFiles),
		Status:             models.BatchQueued,
		CreatedAt:          now,
		LastAccessedAt:     now,
		ExpiresAt:          now.Add(h.batchTTL),
	}
	requestID := batch.ID.String()

	if err := h.batchRepo.Create(&batch); err != nil {
		h.log.Error("❌ Failed to create batch record", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	log := h.log.With(zap.String("request_id", requestID))
	log.Info("📥 Batch received", zap.Int("resumes", len(resumeFiles)))

	if err := h.storageService.CreateBatchDir(requestID); err != nil {
		return h.fail(c, batch.ID, log, err)
	}

	jobPath, err := h.storageService.SaveJobDescription(requestID, jobFile)
	if err != nil {
		return h.fail(c, batch.ID, log, err)
	}

	for _, resume := range resumeFiles {
		if _, err := h.storageService.SaveResume(requestID, resume); err != nil {
			return h.fail(c, batch.ID, log, err)
		}
	}

	results, err := h.matcher.RankBatch(c.UserContext(), jobPath, h.storageService.ResumeDir(requestID))
	if err != nil {
		return h.fail(c, batch.ID, log, err)
	}

	if err := h.storageService.WriteResults(requestID, results); err != nil {
		return h.fail(c, batch.ID, log, err)
	}

	if err := h.batchRepo.UpdateStatus(batch.ID, models.BatchCompleted, ""); err != nil {
		log.Warn("⚠️  Failed to mark batch completed", zap.Error(err))
	}

	log.Info("✅ Batch completed", zap.Int("results", len(results)))

	return c.JSON(models.UploadResponse{
		Results:   results,
		RequestID: requestID,
	})
}

// fail marks the batch failed so the janitor may evict it, then reports the
// error to the client.
func (h *UploadHandler) fail(c *fiber.Ctx, id uuid.UUID, log *zap.Logger, err error) error {
	log.Error("❌ Batch failed", zap.Error(err))

	if updateErr := h.batchRepo.UpdateStatus(id, models.BatchFailed, err.Error()); updateErr != nil &&
		!errors.Is(updateErr, repositories.ErrBatchNotFound) {
		log.Warn("⚠️  Failed to mark batch failed", zap.Error(updateErr))
	}

	return errorResponse(c, fiber.StatusInternalServerError, err.Error())
}

func errorResponse(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(models.ErrorResponse{Detail: detail})
}
