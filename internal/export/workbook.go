package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/candh/internal/domain"
)

const (
	historySheet    = "History"
	attributesSheet = "Attributes"
)

var (
	historyHeader    = []any{"Master ID", "Entity Type", "Entity ID", "Operation", "Modified By", "Modified At", "Attributes"}
	attributesHeader = []any{"Master ID", "Entity ID", "Property", "Type", "Operation", "Old Value", "New Value"}
)

// WriteWorkbook renders masters as an XLSX workbook with one sheet of
// masters and one sheet of their attributes.
func WriteWorkbook(w io.Writer, masters []domain.HistoryMaster) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("failed to name history sheet: %w", err)
	}
	if _, err := f.NewSheet(attributesSheet); err != nil {
		return fmt.Errorf("failed to create attributes sheet: %w", err)
	}

	if err := setRow(f, historySheet, 1, historyHeader); err != nil {
		return err
	}
	if err := setRow(f, attributesSheet, 1, attributesHeader); err != nil {
		return err
	}

	attrRow := 2
	for i, m := range masters {
		row := []any{
			m.ID.String(),
			m.EntityType,
			m.EntityID,
			string(m.Operation),
			m.ModifiedBy,
			m.ModifiedAt.UTC().Format(time.RFC3339),
			len(m.Attributes),
		}
		if err := setRow(f, historySheet, i+2, row); err != nil {
			return err
		}
		for _, attr := range m.Attributes {
			row := []any{
				m.ID.String(),
				m.EntityID,
				attr.PropertyName,
				attr.PropertyType,
				string(attr.Operation),
				formatValue(attr.OldValue),
				formatValue(attr.NewValue),
			}
			if err := setRow(f, attributesSheet, attrRow, row); err != nil {
				return err
			}
			attrRow++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func formatValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
