package sync

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Record is a single row of the input table, opaque key -> value data keyed
// by source column name.
type Record map[string]interface{}

// TargetRecord is a Record after field mapping: only mapped fields retained,
// renamed to the target schema's field names.
type TargetRecord map[string]interface{}

// Source wraps a parsed JSON document and exposes typed path lookups.
// Mapping sources are gjson paths, so they may carry |@modifier transforms.
type Source struct {
	data gjson.Result
}

// NewSource parses raw JSON into a Source.
func NewSource(raw string) Source {
	return Source{data: gjson.Parse(raw)}
}

// SourceFromRecord builds a Source from a Record. Keys are written in sorted
// order so the resulting document is deterministic. Path metacharacters in
// column names are escaped so a column named "a.b" stays a single key.
func SourceFromRecord(rec Record) Source {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	raw := "{}"
	for _, k := range keys {
		if s, err := sjson.Set(raw, escapePath(k), rec[k]); err == nil {
			raw = s
		}
	}
	return NewSource(raw)
}

func (s Source) StringForPath(path string) (string, bool) {
	result := s.data.Get(path)
	return result.String(), result.Exists() && (result.Value() != nil)
}

func (s Source) IntForPath(path string) (int64, bool) {
	result := s.data.Get(path)
	return result.Int(), result.Exists() && (result.Value() != nil)
}

// ValueForPath returns the raw value at path.
func (s Source) ValueForPath(path string) (interface{}, bool) {
	result := s.data.Get(path)
	return result.Value(), result.Exists() && (result.Value() != nil)
}

// escapePath escapes gjson/sjson path metacharacters in a literal key.
func escapePath(key string) string {
	replacer := strings.NewReplacer(".", `\.`, "|", `\|`, "#", `\#`, "@", `\@`, "*", `\*`, "?", `\?`)
	return replacer.Replace(key)
}
