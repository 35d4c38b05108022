package offer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/zaimgo/marketing-api/internal/model"
)

const importSheet = "Offers"

// Column order matches the template workbook handed to operators.
var importHeader = []string{
	"Name", "Logo URL", "Link",
	"Sum Min", "Sum Max", "Term Min", "Term Max",
	"Rate %/day", "Approval %", "Payout Hours",
	"Requirements", "Get Methods", "Repay Methods",
}

// ImportWorkbook bulk-upserts offers from an uploaded XLSX. Rows are
// keyed by name; a bad row is reported and skipped, never fatal for the
// rest of the file.
func (s *Service) ImportWorkbook(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := importSheet
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook has no data rows")
	}

	summary := &ImportSummary{}
	for i, row := range rows[1:] {
		rowNum := i + 2

		offer, err := parseRow(row)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if err := validateOffer(offer); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		created, err := s.repo.UpsertByName(ctx, offer)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	return summary, nil
}

// Template builds the empty upload workbook with the expected header
// and one example row.
func (s *Service) Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(importSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range importHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(importSheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	example := []interface{}{
		"Example Loans", "https://example.com/logo.png", "https://example.com/offer",
		1000, 30000, 7, 30,
		0.8, 95, 0.25,
		"Passport; Age 18+", "Card; Cash", "Card; Bank transfer",
	}
	for col, value := range example {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		if err := f.SetCellValue(importSheet, cell, value); err != nil {
			return nil, fmt.Errorf("failed to write example row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func parseRow(row []string) (*model.Offer, error) {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	if get(0) == "" {
		return nil, fmt.Errorf("name is empty")
	}

	offer := &model.Offer{
		Name:         get(0),
		LogoURL:      get(1),
		Link:         get(2),
		Requirements: get(10),
		GetMethods:   get(11),
		RepayMethods: get(12),
	}

	var err error
	if offer.SumMin, err = parseInt(get(3)); err != nil {
		return nil, fmt.Errorf("sum_min: %w", err)
	}
	if offer.SumMax, err = parseInt(get(4)); err != nil {
		return nil, fmt.Errorf("sum_max: %w", err)
	}
	if offer.TermMin, err = parseInt(get(5)); err != nil {
		return nil, fmt.Errorf("term_min: %w", err)
	}
	if offer.TermMax, err = parseInt(get(6)); err != nil {
		return nil, fmt.Errorf("term_max: %w", err)
	}
	if offer.Rate, err = parseFloat(get(7)); err != nil {
		return nil, fmt.Errorf("rate: %w", err)
	}
	if offer.ApprovalChance, err = parseInt(get(8)); err != nil {
		return nil, fmt.Errorf("approval_chance: %w", err)
	}
	if offer.PayoutSpeedHours, err = parseFloat(get(9)); err != nil {
		return nil, fmt.Errorf("payout_speed_hours: %w", err)
	}
	return offer, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	// Operators paste values with comma decimals.
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
