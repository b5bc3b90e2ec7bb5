package accesscontrol

import "strings"

// MaskResult reports whether an update payload stayed inside its field
// mask. ViolatingPath names the first forbidden path the payload touched;
// it is for logging, clients only see a generic forbidden.
type MaskResult struct {
	OK            bool
	ViolatingPath string
}

// CheckMask verifies that the decoded update payload touches none of the
// forbidden dot-paths. A nil or empty forbidden list means no restrictions.
// A path whose intermediate segment is absent from the payload is untouched
// and passes. Touching a forbidden path rejects the whole update; nothing
// is stripped or healed.
func CheckMask(forbidden []string, payload map[string]any) MaskResult {
	for _, path := range forbidden {
		if path == "" {
			continue
		}
		if pathTouched(strings.Split(path, "."), payload) {
			return MaskResult{ViolatingPath: path}
		}
	}
	return MaskResult{OK: true}
}

// pathTouched walks the payload along the segments. The path counts as
// touched only when every segment resolves to an existing key, the final
// one included.
func pathTouched(segments []string, node map[string]any) bool {
	if len(segments) == 0 || node == nil {
		return false
	}
	value, ok := node[segments[0]]
	if !ok {
		return false
	}
	if len(segments) == 1 {
		return true
	}
	child, ok := value.(map[string]any)
	if !ok {
		return false
	}
	return pathTouched(segments[1:], child)
}
