// Package siformat renders numbers in a fixed six-character width using SI
// unit suffixes (P, T, G, M, k, m, µ, n, p, f) and formats relative
// differences as multiples or percentages.
package siformat

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type unitRange struct {
	pos, neg float64
	factor   float64
	suffix   string
}

// ranges are checked in order; the first whose bound the value reaches
// selects the suffix. The thresholds sit just under each power so that a
// value never rounds up to four integer digits.
var ranges = []unitRange{
	{999.95e12, -999.5e12, 1e-15, "P"},
	{999.95e9, -999.5e9, 1e-12, "T"},
	{999.95e6, -999.5e6, 1e-9, "G"},
	{999.95e3, -999.5e3, 1e-6, "M"},
	{99999.5, -9999.5, 1e-3, "k"},
	{999.95e-3, -999.5e-3, 1, ""},
	{999.95e-6, -999.5e-6, 1e3, "m"},
	{999.95e-9, -999.5e-9, 1e6, "µ"},
	{999.95e-12, -999.5e-12, 1e9, "n"},
	{999.95e-15, -999.5e-15, 1e12, "p"},
	{999.95e-18, -999.5e-18, 1e15, "f"},
}

var printer = message.NewPrinter(language.English)

// Format renders v in six characters with up to three fractional digits,
// e.g. "1.234M", "12,345", " 2.500m". Values outside the peta to femto range
// may use more than six characters.
func Format(v float64) string {
	return format(v, 3)
}

// FormatInteger renders v like Format but without fractional digits when no
// suffix applies.
func FormatInteger(v float64) string {
	return format(v, 0)
}

// FormatInt renders an integer count.
func FormatInt(v int64) string {
	return format(float64(v), 0)
}

func format(value float64, maxFDigits int) string {
	suffix := ""
	v := value
	for _, r := range ranges {
		if v >= r.pos || v <= r.neg {
			suffix = r.suffix
			v *= r.factor
			break
		}
	}

	fdigits := 3
	if v >= 0 {
		if suffix == "" {
			switch {
			case v >= 999.995:
				fdigits = 0
			case v >= 99.9995:
				fdigits = 2
			}
		} else {
			switch {
			case v >= 999.95:
				fdigits = 0
			case v >= 99.995:
				fdigits = 1
			case v >= 9.995:
				fdigits = 2
			}
		}
	} else {
		if suffix == "" {
			switch {
			case v <= -999.95:
				fdigits = 0
			case v <= -99.995:
				fdigits = 1
			case v <= -9.9995:
				fdigits = 2
			}
		} else {
			switch {
			case v <= -99.95:
				fdigits = 0
			case v <= -9.995:
				fdigits = 1
			default:
				fdigits = 2
			}
		}
	}
	if suffix == "" {
		fdigits = min(fdigits, maxFDigits)
	}

	digits := decimal(v, fdigits)
	width := 6
	if suffix != "" {
		width = 5
	}
	return pad(digits, width) + suffix
}

// FormatDifference renders a relative difference in six characters. Values
// above 1.0 are shown as a multiple of the original (1.1 gives "2.100x");
// everything else as a signed percentage (0.25 gives "+25.0%"). NaN gives
// "   N/A".
func FormatDifference(v float64) string {
	if math.IsNaN(v) {
		return "   N/A"
	}

	r := v
	symbol := "%"
	fdigits := 3
	if r > 1.0 {
		r += 1.0
		symbol = "x"
		switch {
		case r >= 999.95:
			fdigits = 0
		case r >= 99.995:
			fdigits = 1
		case r >= 9.995:
			fdigits = 2
		}
	} else {
		r *= 100
		switch {
		case r >= 99.995:
			fdigits = 0
		case r >= 9.995:
			fdigits = 1
		case r <= -99.95:
			fdigits = 0
		case r <= -9.995:
			fdigits = 1
		default:
			fdigits = 2
		}
	}

	digits := decimal(r, fdigits)
	if r > 0 && symbol == "%" {
		digits = "+" + digits
	}
	return pad(digits, 5) + symbol
}

func decimal(v float64, fdigits int) string {
	return printer.Sprint(number.Decimal(v, number.Scale(fdigits)))
}

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}
