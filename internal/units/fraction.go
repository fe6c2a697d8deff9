package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/level-check-mcp/internal/failure"
)

// mmPerInch is exact by definition.
const mmPerInch = 25.4

// InchesToMM converts inches to millimetres.
func InchesToMM(v float64) float64 { return v * mmPerInch }

// MMToInches converts millimetres to inches.
func MMToInches(v float64) float64 { return v / mmPerInch }

type commonFraction struct {
	value float64
	text  string
}

// commonFractions is searched in order; the first entry within half a
// resolution step of the fractional part wins.
var commonFractions = []commonFraction{
	{1.0 / 2, "1/2"},
	{1.0 / 4, "1/4"},
	{3.0 / 4, "3/4"},
	{1.0 / 8, "1/8"},
	{3.0 / 8, "3/8"},
	{5.0 / 8, "5/8"},
	{7.0 / 8, "7/8"},
	{1.0 / 16, "1/16"},
	{3.0 / 16, "3/16"},
	{5.0 / 16, "5/16"},
	{7.0 / 16, "7/16"},
	{9.0 / 16, "9/16"},
	{11.0 / 16, "11/16"},
	{13.0 / 16, "13/16"},
	{15.0 / 16, "15/16"},
}

const fractionEpsilon = 1e-9

// ParseFractionalInches reads a decimal ("2.5"), a fraction ("3/4") or a mixed
// number ("1 3/8"). A single leading sign applies to the whole value, so
// "-1 3/8" is -1.375. Trailing inch markers ("in", "inch", "inches", `"`) are
// ignored.
func ParseFractionalInches(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = trimSuffixFold(s, "inches", "inch", "in", `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &failure.ParseError{Input: text, Reason: "empty value"}
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = strings.TrimSpace(s[1:])
	case '+':
		s = strings.TrimSpace(s[1:])
	}

	fields := strings.Fields(s)
	for _, f := range fields {
		if strings.HasPrefix(f, "-") || strings.HasPrefix(f, "+") {
			return 0, &failure.ParseError{Input: text, Reason: "sign must lead the value"}
		}
	}

	var v float64
	switch len(fields) {
	case 1:
		frac, isFrac, err := parseFraction(fields[0])
		if err != nil {
			return 0, &failure.ParseError{Input: text, Reason: err.Error()}
		}
		if isFrac {
			v = frac
		} else {
			d, err := parseDecimal(fields[0])
			if err != nil {
				return 0, &failure.ParseError{Input: text, Reason: err.Error()}
			}
			v = d
		}
	case 2:
		whole, err := parseDecimal(fields[0])
		if err != nil {
			return 0, &failure.ParseError{Input: text, Reason: "whole part: " + err.Error()}
		}
		frac, isFrac, err := parseFraction(fields[1])
		if err != nil {
			return 0, &failure.ParseError{Input: text, Reason: err.Error()}
		}
		if !isFrac {
			return 0, &failure.ParseError{Input: text, Reason: "second token must be a fraction"}
		}
		v = whole + frac
	default:
		return 0, &failure.ParseError{Input: text, Reason: "expected a decimal, fraction or mixed number"}
	}

	return sign * v, nil
}

// parseFraction parses "num/den". isFrac is false when tok has no slash.
func parseFraction(tok string) (v float64, isFrac bool, err error) {
	num, den, found := strings.Cut(tok, "/")
	if !found {
		return 0, false, nil
	}
	n, err := parseDecimal(num)
	if err != nil {
		return 0, true, fmt.Errorf("numerator: %w", err)
	}
	d, err := parseDecimal(den)
	if err != nil {
		return 0, true, fmt.Errorf("denominator: %w", err)
	}
	if d == 0 {
		return 0, true, fmt.Errorf("zero denominator")
	}
	return n / d, true, nil
}

func parseDecimal(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", tok)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", tok)
	}
	return v, nil
}

// FormatFractionalInches renders value rounded to the nearest multiple of
// resolution as a whole number plus a common fraction: "0", "2", "3/4",
// "1 3/8". A non-positive resolution renders three decimals instead. NaN and
// infinities render as "NaN", "+Inf" and "-Inf", which do not parse back.
func FormatFractionalInches(value float64, resolution Resolution) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	r := float64(resolution)
	if r <= 0 {
		return strconv.FormatFloat(value, 'f', 3, 64)
	}

	steps := math.Round(math.Abs(value) / r)
	if steps == 0 {
		return "0"
	}
	if math.IsInf(steps, 0) {
		// Too large to have a fractional part at any resolution.
		return strconv.FormatFloat(value, 'f', 0, 64)
	}
	sign := ""
	if value < 0 {
		sign = "-"
	}

	q := steps * r
	whole := math.Floor(q + fractionEpsilon)
	frac := q - whole
	if frac < fractionEpsilon {
		frac = 0
	}
	if 1-frac < fractionEpsilon {
		whole++
		frac = 0
	}

	wholeText := strconv.FormatFloat(whole, 'f', 0, 64)
	if frac == 0 {
		return sign + wholeText
	}

	fracText := fractionText(frac, r)
	if whole == 0 {
		return sign + fracText
	}
	return sign + wholeText + " " + fracText
}

// fractionText picks the first common fraction within half a step of frac,
// falling back to steps over the raw resolution denominator.
func fractionText(frac, r float64) string {
	for _, c := range commonFractions {
		if math.Abs(frac-c.value) <= r/2+fractionEpsilon {
			return c.text
		}
	}
	den := math.Round(1 / r)
	n := math.Round(frac / r)
	return strconv.FormatFloat(n, 'f', 0, 64) + "/" + strconv.FormatFloat(den, 'f', 0, 64)
}

// FormatMeasurement renders value for display in the given unit system.
// Imperial values use fractional notation at resolution (three decimals when
// resolution is zero); metric values use one decimal.
func FormatMeasurement(value float64, system System, resolution Resolution) string {
	if system == Metric {
		return strconv.FormatFloat(value, 'f', 1, 64) + " mm"
	}
	if resolution <= 0 {
		return strconv.FormatFloat(value, 'f', 3, 64) + " in"
	}
	return FormatFractionalInches(value, resolution) + " in"
}

// Convert converts a linear value between unit systems.
func Convert(value float64, from, to System) float64 {
	switch {
	case from == to:
		return value
	case from == Imperial && to == Metric:
		return InchesToMM(value)
	case from == Metric && to == Imperial:
		return MMToInches(value)
	default:
		return value
	}
}

// ConvertAndFormat converts value from one unit system to the other and formats
// it in the target system. resolution only applies when the target is imperial.
func ConvertAndFormat(value float64, from, to System, resolution Resolution) string {
	return FormatMeasurement(Convert(value, from, to), to, resolution)
}

// ParseMeasurement parses user-entered text in the given unit system. Imperial
// text accepts fractional forms; metric text is a decimal count of
// millimetres with an optional "mm" suffix.
func ParseMeasurement(text string, system System) (float64, error) {
	if system != Metric {
		return ParseFractionalInches(text)
	}
	s := strings.TrimSpace(trimSuffixFold(strings.TrimSpace(text), "millimetres", "millimeters", "mm"))
	if s == "" {
		return 0, &failure.ParseError{Input: text, Reason: "empty value"}
	}
	v, err := parseDecimal(s)
	if err != nil {
		return 0, &failure.ParseError{Input: text, Reason: err.Error()}
	}
	return v, nil
}

// trimSuffixFold removes the first matching suffix, ignoring case. Suffixes
// are ASCII.
func trimSuffixFold(s string, suffixes ...string) string {
	for _, suf := range suffixes {
		if len(s) >= len(suf) && strings.EqualFold(s[len(s)-len(suf):], suf) {
			return s[:len(s)-len(suf)]
		}
	}
	return s
}
