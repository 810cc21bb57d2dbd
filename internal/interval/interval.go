// Package interval parses the schema-sampling interval grammar used by
// daemon control operations (spec §6.4): "<number><unit>", converted to
// microseconds, plus the companion collection-offset normalization.
package interval

import (
	"fmt"
	"strconv"
	"strings"
)

// unit is ordered longest-suffix-first so that "us" is tried before
// "s", avoiding the ambiguity the original maestro_util.py suffered
// from (there, "s" was checked before "us" could be ruled out,
// breaking microsecond inputs).
var units = []struct {
	suffix string
	factor float64
}{
	{"us", 1},
	{"ms", 1_000},
	{"s", 1_000_000},
	{"m", 60_000_000},
	{"h", 3_600_000_000},
	{"d", 86_400_000_000},
}

// Parse converts an interval string such as "1.5s", "500us" or "3M"
// (case-insensitive) to microseconds (§6.4). Exactly one unit suffix
// is accepted. A bare number with no unit suffix passes through
// unchanged as an already-microsecond value, matching
// maestro_util.py's cvt_intrvl_str_to_us ("if type(interval_s) == int:
// return interval_s"). Anything else is a FormatError.
func Parse(s string) (int64, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, u := range units {
		if strings.HasSuffix(lower, u.suffix) {
			numPart := strings.TrimSuffix(lower, u.suffix)
			if numPart == "" {
				return 0, &FormatError{Input: s}
			}
			mult, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, &FormatError{Input: s}
			}
			return int64(mult * u.factor), nil
		}
	}
	if us, err := strconv.ParseInt(lower, 10, 64); err == nil {
		return us, nil
	}
	return 0, &FormatError{Input: s}
}

// FormatError reports an interval string that doesn't match the
// grammar.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%q is not a valid interval string; expected <number><unit> "+
		"with unit one of us, ms, s, m, h, d", e.Input)
}

// NormalizeOffset clamps offsetUS to half of intervalUS when it would
// otherwise exceed that bound, matching maestro_util.check_offset. A
// zero or negative offset normalizes to zero.
func NormalizeOffset(intervalUS, offsetUS int64) int64 {
	if offsetUS <= 0 {
		return 0
	}
	if float64(offsetUS)/float64(intervalUS) > 0.5 {
		return intervalUS / 2
	}
	return offsetUS
}
