// Package hostrange expands LDMS host-range specifications such as
// "node[01-04,09]" into explicit hostnames (spec §6.5), the Go
// equivalent of the Python hostlist package's expand_hostlist used by
// maestro_util.expand_names.
package hostrange

import (
	"fmt"
	"strconv"
	"strings"
)

// Expand parses a comma-separated list of host specs, each either a
// plain hostname or a "prefix[ranges]suffix" bracketed range
// expression, and returns every hostname in list order. Ranges within
// one bracket expression may mix single numbers and "a-b" spans,
// comma-separated ("node[01-04,09]"). Zero-padding in the low bound is
// preserved in every generated number.
func Expand(spec string) ([]string, error) {
	var out []string
	for _, item := range splitTopLevel(spec) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		names, err := expandOne(item)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

// ExpandAll expands every spec in names and concatenates the results,
// matching maestro_util.expand_names's behavior when given a sequence
// of specs rather than a single string.
func ExpandAll(names []string) ([]string, error) {
	var out []string
	for _, n := range names {
		expanded, err := Expand(n)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// splitTopLevel splits on commas that are not inside a bracket pair,
// since the range list itself uses commas ("node[01-04,09]").
func splitTopLevel(spec string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range spec {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, spec[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, spec[start:])
	return parts
}

func expandOne(item string) ([]string, error) {
	open := strings.IndexByte(item, '[')
	if open == -1 {
		return []string{item}, nil
	}
	closeIdx := strings.LastIndexByte(item, ']')
	if closeIdx == -1 || closeIdx < open {
		return nil, fmt.Errorf("hostrange: unbalanced brackets in %q", item)
	}
	prefix := item[:open]
	suffix := item[closeIdx+1:]
	body := item[open+1 : closeIdx]

	var numbers []string
	for _, term := range strings.Split(body, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		lo, hi, width, err := parseRangeTerm(term)
		if err != nil {
			return nil, fmt.Errorf("hostrange: %q: %w", item, err)
		}
		for n := lo; n <= hi; n++ {
			numbers = append(numbers, fmt.Sprintf("%0*d", width, n))
		}
	}
	out := make([]string, len(numbers))
	for i, n := range numbers {
		out[i] = prefix + n + suffix
	}
	return out, nil
}

// parseRangeTerm parses either "NN" or "NN-MM", returning the bounds
// and the zero-pad width taken from the lower bound's literal digit
// count.
func parseRangeTerm(term string) (lo, hi int64, width int, err error) {
	if dash := strings.IndexByte(term, '-'); dash >= 0 {
		loStr, hiStr := term[:dash], term[dash+1:]
		lo, err = strconv.ParseInt(loStr, 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid range start %q", loStr)
		}
		hi, err = strconv.ParseInt(hiStr, 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid range end %q", hiStr)
		}
		if hi < lo {
			return 0, 0, 0, fmt.Errorf("range end %d before start %d", hi, lo)
		}
		return lo, hi, len(loStr), nil
	}
	lo, err = strconv.ParseInt(term, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid range value %q", term)
	}
	return lo, lo, len(term), nil
}
