package pipeline

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// FormatEUR renders an amount the way the report templates expect: exactly
// two decimals, "." thousands grouping, "," decimal separator. The pt-PT
// CLDR locale groups with a non-breaking space, which the reference
// templates do not use, so the fixed format is produced directly.
func FormatEUR(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteByte(',')
	b.WriteString(frac)

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatValue formats any payload field as an amount. Missing or
// non-numeric values format as zero.
func FormatValue(v gjson.Result) string {
	return FormatEUR(v.Float())
}
