package monitor

import (
	"errors"
	"fmt"
	"strings"

	"mcstatusbot/internal/mcserver"
)

// ErrMalformedConfig marks a maintenance marker that is set but is not a string.
var ErrMalformedConfig = errors.New("malformed maintenance-mode-detection setting")

// ResolveMarker interprets the raw maintenance-mode-detection value.
// Absent and falsy values (nil, false, 0, "", empty list or map) disable
// detection.
func ResolveMarker(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		if !x {
			return "", nil
		}
	case int:
		if x == 0 {
			return "", nil
		}
	case int64:
		if x == 0 {
			return "", nil
		}
	case float64:
		if x == 0 {
			return "", nil
		}
	case []any:
		if len(x) == 0 {
			return "", nil
		}
	case map[string]any:
		if len(x) == 0 {
			return "", nil
		}
	}
	return "", fmt.Errorf("%w: must be a string, got %T", ErrMalformedConfig, v)
}

// DetectMaintenance reports whether marker occurs, case-insensitively, in the
// flattened description. An empty marker disables detection.
func DetectMaintenance(desc mcserver.RichText, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(mcserver.Flatten(desc)), strings.ToLower(marker))
}
