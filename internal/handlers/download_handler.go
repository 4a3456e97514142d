package handlers

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DownloadHandler struct {
	batchRepo      repositories.BatchRepository
	storageService services.StorageService
	batchTTL       time.Duration
	log            *zap.Logger
}

func NewDownloadHandler(
	batchRepo repositories.BatchRepository,
	storageService services.StorageService,
	batchTTL time.Duration,
	log *zap.Logger,
) *DownloadHandler {
	return &DownloadHandler{
		batchRepo:      batchRepo,
		storageService: storageService,
		batchTTL:       batchTTL,
		log:            log,
	}
}

// HandleDownload serves a staged resume exactly as it was uploaded.
func (h *DownloadHandler) HandleDownload(c *fiber.Ctx) error {
	requestID := c.Params("request_id")
	filename := c.Params("filename")

	path, err := h.storageService.ResumePath(requestID, filename)
	if err != nil {
		return errorResponse(c, fiber.StatusNotFound, "File not found")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errorResponse(c, fiber.StatusNotFound, "File not found")
	}

	h.touch(requestID)
	c.Attachment(filename)
	return c.Send(data)
}

// HandleExport renders the stored ranking of a batch as an XLSX workbook.
func (h *DownloadHandler) HandleExport(c *fiber.Ctx) error {
	requestID := c.Params("request_id")

	results, err := h.storageService.ReadResults(requestID)
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "File not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	buf, err := services.BuildReport(results)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	h.touch(requestID)
	c.Attachment(fmt.Sprintf("ranking_%s.xlsx", requestID))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(buf.Bytes())
}

// touch pushes the batch's expiry out by one TTL from now.
func (h *DownloadHandler) touch(requestID string) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return
	}

	now := time.Now()
	if err := h.batchRepo.Touch(id, now, now.Add(h.batchTTL)); err != nil &&
		!errors.Is(err, repositories.ErrBatchNotFound) {
		h.log.Warn("⚠️  Failed to touch batch", zap.String("request_id", requestID), zap.Error(err))
	}
}
