package records

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/recruiter/internal/scheduling"
)

const (
	interviewsSheet = "Interviews"
	summarySheet    = "Summary"
)

var interviewHeaders = []string{"Candidate", "Email", "Start (UTC)", "End (UTC)", "Event ID", "Calendar link", "Created"}

// Export writes records and the latest summary, if any, to an xlsx workbook.
// The returned path always carries the .xlsx extension.
func Export(path string, records []scheduling.ScheduleRecord, summary *scheduling.Summary) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", interviewsSheet); err != nil {
		return "", fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return "", fmt.Errorf("creating summary sheet: %w", err)
	}

	if err := writeInterviews(f, records); err != nil {
		return "", fmt.Errorf("writing interviews sheet: %w", err)
	}
	if err := writeSummary(f, len(records), summary); err != nil {
		return "", fmt.Errorf("writing summary sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook %s: %w", path, err)
	}

	return path, nil
}

func writeInterviews(f *excelize.File, records []scheduling.ScheduleRecord) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	for col, header := range interviewHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(interviewsSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(interviewsSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, record := range records {
		row := i + 2
		values := []any{
			record.CandidateName,
			record.Email,
			record.StartTime.UTC().Format(time.DateTime),
			record.EndTime.UTC().Format(time.DateTime),
			record.EventID,
			record.CalendarLink,
			record.CreatedAt.UTC().Format(time.RFC3339),
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(interviewsSheet, cell, &values); err != nil {
			return err
		}

		if record.CalendarLink != "" {
			link := fmt.Sprintf("F%d", row)
			if err := f.SetCellHyperLink(interviewsSheet, link, record.CalendarLink, "External"); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(interviewsSheet, "A", "B", 28); err != nil {
		return err
	}
	return f.SetColWidth(interviewsSheet, "C", "G", 22)
}

func writeSummary(f *excelize.File, total int, summary *scheduling.Summary) error {
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][]any{{"Recorded interviews", total}}
	if summary != nil {
		rows = append(rows,
			[]any{"Last run", summary.RunID},
			[]any{"Finished", summary.Timestamp.UTC().Format(time.RFC3339)},
			[]any{"Scheduled", summary.ScheduledCount},
			[]any{"Duplicates", summary.SkippedDuplicateCount},
			[]any{"Skipped (no contact or failed booking)", summary.SkippedNoContactCount},
			[]any{"Booking failures", summary.BookingFailedCount},
			[]any{"Unreadable records", summary.ErrorCount},
		)
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, labelStyle); err != nil {
			return err
		}
	}

	return f.SetColWidth(summarySheet, "A", "A", 40)
}
