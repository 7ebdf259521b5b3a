// Package filter validates metadata filters before they are sent to the
// search backend. A filter maps field names to a primitive, an array of
// primitives, or a nested operator mapping.
package filter

import (
	"fmt"
	"sort"
	"strings"
)

var allowedOperators = map[string]bool{
	"$eq": true, "$ne": true,
	"$gt": true, "$gte": true,
	"$lt": true, "$lte": true,
	"$in": true, "$nin": true,
}

// Validate checks a decoded filter recursively. It returns nil for a valid
// (or empty) filter, else an error naming the offending dotted path.
func Validate(f map[string]any) error {
	if len(f) == 0 {
		return nil
	}
	return validateMap(f, "")
}

func validateMap(m map[string]any, path string) error {
	for _, key := range sortedKeys(m) {
		value := m[key]
		p := joinPath(path, key)

		if value == nil {
			return fmt.Errorf("filter value at %q must not be null", p)
		}

		if strings.HasPrefix(key, "$") {
			if err := validateOperator(key, value, p); err != nil {
				return err
			}
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			if err := validateMap(v, p); err != nil {
				return err
			}
		case []any:
			if err := requirePrimitiveArray(v, p); err != nil {
				return err
			}
		default:
			if !isPrimitive(value) {
				return fmt.Errorf("filter value at %q has unsupported type %T", p, value)
			}
		}
	}
	return nil
}

func validateOperator(op string, value any, path string) error {
	if !allowedOperators[op] {
		return fmt.Errorf(
			"unsupported operator %q at %q (allowed: $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin)",
			op, path,
		)
	}
	if op == "$in" || op == "$nin" {
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("operator %q at %q must use array of primitive values", op, path)
		}
		for _, e := range arr {
			if !isPrimitive(e) {
				return fmt.Errorf("operator %q at %q must use array of primitive values", op, path)
			}
		}
		return nil
	}
	if !isPrimitive(value) {
		return fmt.Errorf("operator %q at %q requires a primitive operand", op, path)
	}
	return nil
}

func requirePrimitiveArray(arr []any, path string) error {
	for _, e := range arr {
		if !isPrimitive(e) {
			return fmt.Errorf("filter array at %q must hold primitive values only", path)
		}
	}
	return nil
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// sortedKeys keeps error messages deterministic across runs.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
