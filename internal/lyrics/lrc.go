package lyrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParseSynced parses LRC text into lines ordered by start time.
// Lines without a valid time tag are dropped; a line carrying several time
// tags yields one entry per tag. The [offset:] tag shifts every timestamp.
func ParseSynced(raw string) []Line {
	if raw == "" {
		return nil
	}

	rows := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	result := make([]Line, 0, len(rows))
	var offsetMs int64

	for _, row := range rows {
		trimmed := strings.TrimSpace(row)
		if trimmed == "" {
			continue
		}

		stamps, text, meta := splitLrcLine(trimmed)
		if len(stamps) == 0 {
			if value, ok := meta["offset"]; ok {
				if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
					offsetMs = parsed
				}
			}
			continue
		}

		for _, stamp := range stamps {
			result = append(result, Line{StartMs: stamp, Text: text})
		}
	}

	if len(result) == 0 {
		return nil
	}

	// positive offset means lyrics show up sooner
	if offsetMs != 0 {
		for i := range result {
			shifted := result[i].StartMs - offsetMs
			if shifted < 0 {
				shifted = 0
			}
			result[i].StartMs = shifted
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartMs < result[j].StartMs
	})

	return result
}

// splitLrcLine consumes the leading bracketed tags of a line. Time tags go to
// stamps, anything else of the form key:value lands in meta.
func splitLrcLine(line string) ([]int64, string, map[string]string) {
	var stamps []int64
	var meta map[string]string

	rest := line
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end <= 1 {
			break
		}

		tag := rest[1:end]
		if ms, err := parseLrcTime(tag); err == nil {
			stamps = append(stamps, ms)
		} else if key, value, ok := strings.Cut(tag, ":"); ok {
			if meta == nil {
				meta = make(map[string]string)
			}
			meta[strings.ToLower(strings.TrimSpace(key))] = value
		} else {
			break
		}

		rest = rest[end+1:]
	}

	return stamps, strings.TrimSpace(rest), meta
}

func parseLrcTime(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty time value")
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	values := make([]float64, len(parts))
	for i, part := range parts {
		value, err := parseFloatSafe(part)
		if err != nil {
			return 0, err
		}
		if value < 0 {
			return 0, errors.New("negative time not allowed")
		}
		values[i] = value
	}

	var total float64
	if len(values) == 3 {
		total = values[0]*3600 + values[1]*60 + values[2]
	} else {
		total = values[0]*60 + values[1]
	}

	return int64(math.Round(total * 1000)), nil
}

func parseFloatSafe(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.New("empty number")
	}
	// reject things like "ar" or "1e3" early, lrc only carries digits and a dot
	for _, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			return 0, fmt.Errorf("failed to parse float %q", s)
		}
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", s, err)
	}
	return value, nil
}
