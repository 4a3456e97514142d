package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"alfredoptarigan/resume-matcher/internal/models"
)

const ReportSheet = "Ranked Candidates"

var reportHeader = []interface{}{"Rank", "Name", "Resume Filename", "Email", "Category", "Similarity Score"}

// BuildReport renders ranked results as an XLSX workbook, one row per
// resume in ranking order.
func BuildReport(results []models.RankedResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return nil, fmt.Errorf("failed to name report sheet: %w", err)
	}

	if err := f.SetSheetRow(ReportSheet, "A1", &reportHeader); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	for i, result := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			i + 1,
			result.Name,
			result.ResumeFilename,
			result.Email,
			result.Category,
			result.SimilarityScore,
		}
		if err := f.SetSheetRow(ReportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write report row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(ReportSheet, "B", "E", 28); err != nil {
		return nil, fmt.Errorf("failed to size report columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf, nil
}
