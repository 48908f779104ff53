package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts accepted from spreadsheets: day-first with slash or dash, or ISO.
var dateLayouts = []string{"02/01/2006", "02-01-2006", "2006-01-02"}

// ParseDate converts a localized date cell into ISO yyyy-mm-dd.
func ParseDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var digitRuns = regexp.MustCompile(`\d+`)

// NormalizeSeason reduces a season cell to a 4-digit year string. Anything
// without at least four digits normalizes to the empty string.
func NormalizeSeason(raw string) string {
	s := strings.NewReplacer(".", "", ",", "").Replace(strings.TrimSpace(raw))
	digits := strings.Join(digitRuns.FindAllString(s, -1), "")
	if len(digits) < 4 {
		return ""
	}
	return digits[:4]
}

// parseCount parses a numeric cell. A blank cell counts as zero; anything
// unparseable is reported so the caller can skip the row.
func parseCount(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets frequently hand over "3.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		n = int(f)
	}
	return n, true
}
