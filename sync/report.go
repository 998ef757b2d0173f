package sync

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// BatchResult is the outcome of one submitted batch. A batch is never
// partially counted: it succeeded as a whole or failed as a whole.
type BatchResult struct {
	BatchIndex  int
	Succeeded   bool
	RecordCount int
	Message     string
}

// RunReport aggregates the per-batch outcomes of a sync run. It is built
// incrementally and finalized when all batches are processed.
type RunReport struct {
	TotalRecords int
	SuccessCount int
	ErrorCount   int
	Batches      []BatchResult
}

// Append records a batch outcome, counting all of its records as succeeded
// or all as failed.
func (r *RunReport) Append(result BatchResult) {
	if result.Succeeded {
		r.SuccessCount += result.RecordCount
	} else {
		r.ErrorCount += result.RecordCount
	}
	r.Batches = append(r.Batches, result)
}

// Summary renders a one-line human readable outcome, suitable for logs and
// notification subjects.
func (r RunReport) Summary() string {
	return fmt.Sprintf("%d records: %d succeeded, %d failed across %d batches",
		r.TotalRecords, r.SuccessCount, r.ErrorCount, len(r.Batches))
}

// FormatCSV formats the report as CSV, one row per batch.
func (r RunReport) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{fmt.Sprintf("# %s", r.Summary())}); err != nil {
		return "", err
	}
	if err := writer.Write([]string{"Batch", "Records", "Outcome", "Message"}); err != nil {
		return "", err
	}
	for _, b := range r.Batches {
		outcome := "failed"
		if b.Succeeded {
			outcome = "succeeded"
		}
		record := []string{strconv.Itoa(b.BatchIndex), strconv.Itoa(b.RecordCount), outcome, b.Message}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FieldDocRow represents a single row in the field mapping documentation.
type FieldDocRow struct {
	FieldName   string
	Description string
	Required    bool
	SourcePath  string
	Notes       string
}

// MappingDocumentation describes how an operation schema is populated by a
// field mapping, for operator review before a run.
type MappingDocumentation struct {
	Operation string
	Rows      []FieldDocRow
}

// GenerateMappingDocumentation builds documentation rows for every field of
// the schema, in schema order, showing the mapped source column (if any) and
// notes for inline transforms.
func GenerateMappingDocumentation(schema OperationSchema, mapping FieldMapping) MappingDocumentation {
	doc := MappingDocumentation{
		Operation: schema.Name,
		Rows:      []FieldDocRow{},
	}
	for _, field := range schema.Fields {
		row := FieldDocRow{
			FieldName:   field.Name,
			Description: field.Description,
			Required:    field.Required,
		}
		if source, ok := mapping.SourceFor(field.Name); ok {
			sourcePath, transforms := parseSourcePath(source)
			row.SourcePath = sourcePath
			notes := make([]string, 0, len(transforms))
			for _, transform := range transforms {
				notes = append(notes, formatTransformNote(transform))
			}
			row.Notes = strings.Join(notes, " | ")
		} else {
			row.SourcePath = "(unmapped)"
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc
}

// parseSourcePath extracts the source column and inline transforms from a
// mapping source value.
// e.g. "TEL|@phone:82" -> ("TEL", ["@phone:82"])
func parseSourcePath(value string) (string, []string) {
	if len(value) >= 2 && value[0] == '`' && value[len(value)-1] == '`' {
		return fmt.Sprintf("(static %s)", value), nil
	}
	parts := strings.Split(value, "|")
	sourcePath := parts[0]
	var transforms []string
	for i := 1; i < len(parts); i++ {
		if strings.HasPrefix(parts[i], "@") {
			transforms = append(transforms, parts[i])
		}
	}
	return sourcePath, transforms
}

// formatTransformNote formats a transform into a human-readable note.
func formatTransformNote(transform string) string {
	switch {
	case strings.HasPrefix(transform, "@countryName"):
		return "Normalised to country name"
	case strings.HasPrefix(transform, "@phone:"):
		arg := strings.TrimPrefix(transform, "@phone:")
		return fmt.Sprintf("Normalised as phone number (default country code %s)", arg)
	case strings.HasPrefix(transform, "@bizno"):
		return "Normalised to digits only"
	case strings.HasPrefix(transform, "@contains:"):
		arg := strings.TrimPrefix(transform, "@contains:")
		return fmt.Sprintf("True if value contains %q", arg)
	case transform == "@now":
		return "Set to submission time"
	case transform == "@upper":
		return "Converted to uppercase"
	case transform == "@lower":
		return "Converted to lowercase"
	default:
		return fmt.Sprintf("Transform: %s", transform)
	}
}

// FormatCSV formats the field documentation as CSV.
func (d MappingDocumentation) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{fmt.Sprintf("# Operation: %s", d.Operation)}); err != nil {
		return "", err
	}
	headers := []string{"Field", "Required", "Description", "Source Column", "Notes"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, row := range d.Rows {
		requiredMark := ""
		if row.Required {
			requiredMark = "✓"
		}
		record := []string{row.FieldName, requiredMark, row.Description, row.SourcePath, row.Notes}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
