package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/pkg/apperror"

	"github.com/xuri/excelize/v2"
)

const maxExportRows = 10000

var exportColumns = []string{
	"id", "application_id", "job_id", "candidate_id", "interviewer_id",
	"scheduled_at", "duration_minutes", "type", "status",
	"location", "meeting_link", "rating", "recommendation",
}

var exportHeaders = map[string]string{
	"id":               "INTERVIEW ID",
	"application_id":   "APPLICATION ID",
	"job_id":           "JOB ID",
	"candidate_id":     "CANDIDATE",
	"interviewer_id":   "INTERVIEWER",
	"scheduled_at":     "SCHEDULED AT (UTC)",
	"duration_minutes": "DURATION (MINUTES)",
	"type":             "TYPE",
	"status":           "STATUS",
	"location":         "LOCATION",
	"meeting_link":     "MEETING LINK",
	"rating":           "RATING",
	"recommendation":   "RECOMMENDATION",
}

// ExportInterviews renders the interviews matching filter as xlsx (default) or csv.
func (uc *interviewUsecase) ExportInterviews(ctx context.Context, filter domain.InterviewFilter, format string) ([]byte, string, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, "", apperror.Validation("status", "Invalid interview status")
	}
	filter.Page = 1
	filter.Limit = maxExportRows

	interviews, _, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, "", apperror.Internal(fmt.Errorf("failed to fetch interviews for export: %w", err))
	}

	switch format {
	case "csv":
		return exportInterviewsCSV(interviews)
	case "xlsx", "":
		return exportInterviewsExcel(interviews)
	default:
		return nil, "", apperror.Validation("format", fmt.Sprintf("Unsupported export format: %s", format))
	}
}

func exportInterviewsExcel(interviews []domain.Interview) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Interviews"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, "", apperror.Internal(err)
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, exportHeaders[col])
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	endCell, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
	f.SetCellStyle(sheetName, "A1", endCell, headerStyle)

	for rowIdx, iv := range interviews {
		for colIdx, col := range exportColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, interviewFieldValue(iv, col))
		}
	}

	for i := range exportColumns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", apperror.Internal(fmt.Errorf("failed to write Excel file: %w", err))
	}

	filename := fmt.Sprintf("interviews_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func exportInterviewsCSV(interviews []domain.Interview) ([]byte, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportColumns); err != nil {
		return nil, "", apperror.Internal(err)
	}
	for _, iv := range interviews {
		record := make([]string, len(exportColumns))
		for i, col := range exportColumns {
			record[i] = fmt.Sprintf("%v", interviewFieldValue(iv, col))
		}
		if err := w.Write(record); err != nil {
			return nil, "", apperror.Internal(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", apperror.Internal(err)
	}

	filename := fmt.Sprintf("interviews_%s.csv", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func interviewFieldValue(iv domain.Interview, field string) interface{} {
	switch field {
	case "id":
		return iv.ID
	case "application_id":
		return iv.ApplicationID
	case "job_id":
		return iv.JobID
	case "candidate_id":
		return iv.CandidateID
	case "interviewer_id":
		return iv.InterviewerID
	case "scheduled_at":
		return iv.ScheduledAt.UTC().Format("2006-01-02 15:04")
	case "duration_minutes":
		return iv.DurationMinutes
	case "type":
		return string(iv.Type)
	case "status":
		return string(iv.Status)
	case "location":
		if iv.Location != nil {
			return *iv.Location
		}
		return ""
	case "meeting_link":
		if iv.MeetingLink != nil {
			return *iv.MeetingLink
		}
		return ""
	case "rating":
		if iv.Feedback != nil {
			return iv.Feedback.Rating
		}
		return ""
	case "recommendation":
		if iv.Feedback != nil {
			return string(iv.Feedback.Recommendation)
		}
		return ""
	default:
		return ""
	}
}
