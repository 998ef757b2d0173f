package sync

import (
	"strings"

	"github.com/tidwall/gjson"
)

// FindKeyShallowest searches a parsed JSON document for a field whose name
// matches key and returns the match at the shallowest nesting depth. Field
// names are compared case-insensitively, ignoring spaces and underscores, so
// "session id", "SESSION_ID" and "SessionId" all match. Ties at the same
// depth resolve to the first match in document order. The search descends
// into both objects and arrays, so the token is found wherever the vendor
// nests it.
func FindKeyShallowest(root gjson.Result, key string) (gjson.Result, bool) {
	want := normaliseKey(key)
	level := []gjson.Result{root}
	for len(level) > 0 {
		var next []gjson.Result
		for _, node := range level {
			var found gjson.Result
			var ok bool
			node.ForEach(func(k, v gjson.Result) bool {
				if !ok && node.IsObject() && normaliseKey(k.String()) == want {
					found = v
					ok = true
					return false
				}
				if v.IsObject() || v.IsArray() {
					next = append(next, v)
				}
				return true
			})
			if ok {
				return found, true
			}
		}
		level = next
	}
	return gjson.Result{}, false
}

// FindStringShallowest is FindKeyShallowest restricted to non-empty string
// results, which is the shape session tokens and vendor messages take.
func FindStringShallowest(root gjson.Result, key string) (string, bool) {
	result, ok := FindKeyShallowest(root, key)
	if !ok || result.Type == gjson.Null {
		return "", false
	}
	s := result.String()
	return s, s != ""
}

func normaliseKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, " ", "")
	return key
}
