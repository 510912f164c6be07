package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/anfir/internal/ir"
)

// marshalRoots converts root names to canonical JSON TEXT for storage.
func marshalRoots(roots []string) (string, error) {
	arr := make(ir.IRArray, len(roots))
	for i, r := range roots {
		arr[i] = ir.IRString(r)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal roots: %w", err)
	}
	return string(data), nil
}

// unmarshalRoots parses a JSON array of root names.
func unmarshalRoots(data string) ([]string, error) {
	roots := []string{}
	if data == "" {
		return roots, nil
	}
	if err := json.Unmarshal([]byte(data), &roots); err != nil {
		return nil, fmt.Errorf("unmarshal roots: %w", err)
	}
	return roots, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
