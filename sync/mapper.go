package sync

import (
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// FieldMapping maps source column names to target field names. Keys are
// unique source columns; at most one target per source column. A target
// field may be left unmapped. Backtick static sources live on the key side
// too, so two target fields cannot take the same static literal from one
// mapping; put the value in a shared source column when that comes up.
type FieldMapping map[string]string

// Targets returns the set of target field names the mapping populates.
func (m FieldMapping) Targets() map[string]bool {
	result := make(map[string]bool, len(m))
	for _, target := range m {
		result[target] = true
	}
	return result
}

// SourceFor returns the first source column mapped to target, in sorted
// source order for determinism.
func (m FieldMapping) SourceFor(target string) (string, bool) {
	sources := make([]string, 0, len(m))
	for s := range m {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		if m[s] == target {
			return s, true
		}
	}
	return "", false
}

// BuildMapping proposes a FieldMapping by matching source column names
// against the target schema's field names. Names are compared after snake
// case normalisation, so "Item Code", "itemCode" and "ITEM_CD"-style
// columns line up with their targets without manual configuration. Each
// target field is claimed by at most one source column (first match in
// sorted column order wins). Unmatched columns are left out of the mapping
// for the operator to assign.
func BuildMapping(sourceColumns []string, schema OperationSchema) FieldMapping {
	result := make(FieldMapping)
	claimed := make(map[string]bool)

	columns := make([]string, len(sourceColumns))
	copy(columns, sourceColumns)
	sort.Strings(columns)

	targets := schema.FieldNames()
	for _, column := range columns {
		normalised := strcase.ToSnake(strings.TrimSpace(column))
		for _, target := range targets {
			if claimed[target] {
				continue
			}
			if normalised == strcase.ToSnake(target) {
				result[column] = target
				claimed[target] = true
				break
			}
		}
	}
	return result
}

// ValidateMapping checks that every required field of the target schema is
// the target of at least one source column. It must run once before any
// batch submission begins, never partway through a run.
func ValidateMapping(mapping FieldMapping, schema OperationSchema) error {
	targets := mapping.Targets()
	var missing []string
	for _, field := range schema.Fields {
		if field.Required && !targets[field.Name] {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingRequiredFieldError{Fields: missing}
	}
	return nil
}

// ApplyMapping transforms a Record into a TargetRecord: only mapped fields
// are retained, renamed to the target field names. Unmapped source columns
// are dropped and absent optional targets are omitted. Mapping sources are
// gjson paths, so a source may carry |@modifier transforms; static values
// are escaped in backticks, as in `Y`.
func ApplyMapping(rec Record, mapping FieldMapping) TargetRecord {
	result := make(TargetRecord)
	source := SourceFromRecord(rec)
	for column, target := range mapping {
		// handle static values as well as dynamic paths
		if len(column) >= 2 && column[0] == '`' && column[len(column)-1] == '`' {
			result[target] = column[1 : len(column)-1]
			continue
		}
		if value, exists := source.ValueForPath(column); exists {
			result[target] = value
		}
	}
	return result
}

// ApplyMappingAll maps every input record, preserving order.
func ApplyMappingAll(records []Record, mapping FieldMapping) []TargetRecord {
	result := make([]TargetRecord, len(records))
	for i, rec := range records {
		result[i] = ApplyMapping(rec, mapping)
	}
	return result
}
