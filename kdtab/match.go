package kdtab

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/sqlite-kdtree/vector"
	"modernc.org/sqlite/vtab"
)

func decodeMatchArg(v interface{}) ([]float32, error) {
	switch val := v.(type) {
	case []byte:
		return vector.DecodePoint(val)
	case string:
		return decodeMatchString(val)
	default:
		return nil, fmt.Errorf("kdtab: expected MATCH arg as BLOB or string, got %T", v)
	}
}

func decodeMatchString(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("kdtab: MATCH string is empty")
	}
	if strings.HasPrefix(s, "[") {
		var floats []float64
		if err := json.Unmarshal([]byte(s), &floats); err != nil {
			return nil, fmt.Errorf("kdtab: invalid MATCH JSON %q: %w", s, err)
		}
		p := make([]float32, len(floats))
		for i, f := range floats {
			p[i] = float32(f)
		}
		return p, nil
	}
	// A bare number is a one-dimensional point, not base64.
	if !strings.Contains(s, ",") {
		if f, err := strconv.ParseFloat(s, 32); err == nil {
			return []float32{float32(f)}, nil
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) > 0 {
		if p, err := vector.DecodePoint(b); err == nil {
			return p, nil
		}
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		p := make([]float32, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 32)
			if err != nil {
				return nil, fmt.Errorf("kdtab: invalid MATCH float %q: %w", part, err)
			}
			p = append(p, float32(f))
		}
		if len(p) > 0 {
			return p, nil
		}
	}
	return nil, fmt.Errorf("kdtab: MATCH string must be base64-encoded point or JSON/CSV float list")
}

func asInt(v vtab.Value) (int, error) {
	switch val := v.(type) {
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("kdtab: cannot parse k %q: %w", val, err)
		}
		return n, nil
	case []byte:
		return asInt(string(val))
	default:
		return 0, fmt.Errorf("kdtab: unsupported k type %T", v)
	}
}

func asString(v vtab.Value) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case nil:
		return "", fmt.Errorf("kdtab: dataset_id is nil")
	default:
		return "", fmt.Errorf("kdtab: unsupported dataset_id type %T", v)
	}
}
