package textnorm

import (
	"regexp"
	"strconv"
	"strings"
)

// Words used when reading numbers.
const (
	PointWord = "chấm"
	UnitWord  = "ka"
)

var digitWords = [10]string{"không", "một", "hai", "ba", "bốn", "năm", "sáu", "bảy", "tám", "chín"}

var (
	decimalRe  = regexp.MustCompile(`(\d+)\.(\d+)`)
	thousandRe = regexp.MustCompile(`(?i)(\d+)\s*k\b`)
	integerRe  = regexp.MustCompile(`\d+`)
)

// NormalizeNumerals spells out every digit run. Decimals are handled first,
// then "k"-suffixed amounts, then the remaining integers.
func NormalizeNumerals(text string) string {
	text = decimalRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := decimalRe.FindStringSubmatch(m)
		return readDigits(parts[1]) + " " + PointWord + " " + readDigits(parts[2])
	})
	text = thousandRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := thousandRe.FindStringSubmatch(m)
		return readNumber(parts[1]) + " " + UnitWord
	})
	return integerRe.ReplaceAllStringFunc(text, readNumber)
}

// readNumber reads up to two digits as a cardinal and longer runs digit by
// digit.
func readNumber(digits string) string {
	if len(digits) > 2 {
		return readDigits(digits)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return readDigits(digits)
	}
	return readCardinal(n)
}

// readCardinal reads 0–99. Tens of 1 is "mười", otherwise "<digit> mươi";
// a trailing 1 after tens ≥ 2 is "mốt" and a trailing 5 is "lăm".
func readCardinal(n int) string {
	if n < 10 {
		return digitWords[n]
	}
	tens, ones := n/10, n%10

	var b strings.Builder
	if tens == 1 {
		b.WriteString("mười")
	} else {
		b.WriteString(digitWords[tens])
		b.WriteString(" mươi")
	}

	switch {
	case ones == 0:
	case ones == 1 && tens > 1:
		b.WriteString(" mốt")
	case ones == 5:
		b.WriteString(" lăm")
	default:
		b.WriteString(" ")
		b.WriteString(digitWords[ones])
	}
	return b.String()
}

func readDigits(digits string) string {
	words := make([]string, 0, len(digits))
	for _, r := range digits {
		words = append(words, digitWords[r-'0'])
	}
	return strings.Join(words, " ")
}
