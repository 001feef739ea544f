package rule

import "strings"

var unitConversions = map[string]func(float64) float64{
	"milliseconds": func(v float64) float64 { return v },
	"seconds":      func(v float64) float64 { return v * 1000 },
	"minutes":      func(v float64) float64 { return v * 60 * 1000 },
	"hours":        func(v float64) float64 { return v * 60 * 60 * 1000 },
	"percent":      func(v float64) float64 { return v / 100 },
}

// ConvertUnit converts v from unit into the pipeline's working unit
// (milliseconds for time, a decimal fraction for percentages).
// Unknown units return v unchanged and ok=false.
func ConvertUnit(unit string, v float64) (converted float64, ok bool) {
	fn, ok := unitConversions[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return v, false
	}
	return fn(v), true
}
