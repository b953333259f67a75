package symbols

import (
	"fmt"
	"strings"
)

// Valid reports whether s looks like a US ticker: 1-6 letters, digits, '.' or '-',
// starting with a letter
func Valid(s string) bool {
	if len(s) == 0 || len(s) > 6 {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case i > 0 && (c >= '0' && c <= '9' || c == '.' || c == '-'):
		default:
			return false
		}
	}
	return true
}

// Parse splits a comma separated list, upper-cases and de-duplicates it.
// Blank entries are skipped; an invalid ticker is an error.
func Parse(list string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range strings.Split(list, ",") {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		if !Valid(sym) {
			return nil, fmt.Errorf("invalid ticker %q", sym)
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out, nil
}

// Resolve picks the tickers for a scan: an explicit list wins over a universe
func Resolve(list string, universe string) ([]string, error) {
	if strings.TrimSpace(list) != "" {
		return Parse(list)
	}
	if universe == "" {
		return nil, fmt.Errorf("no tickers: pass --symbols or --universe")
	}
	syms := GetUniverse(Universe(universe))
	if syms == nil {
		return nil, fmt.Errorf("unknown universe: %s", universe)
	}
	return append([]string(nil), syms...), nil
}
