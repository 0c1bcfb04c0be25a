package currency

import (
	"fmt"
	"math"
	"strings"
)

type numberFormat struct {
	symbol   string
	decimals int
	sep      string
	decSep   string
}

var formats = map[string]numberFormat{
	"JPY": {symbol: "¥", decimals: 0, sep: ",", decSep: "."},
	"USD": {symbol: "$", decimals: 2, sep: ",", decSep: "."},
	"EUR": {symbol: "€", decimals: 2, sep: ",", decSep: "."},
	"GBP": {symbol: "£", decimals: 2, sep: ",", decSep: "."},
	"IDR": {symbol: "IDR ", decimals: 0, sep: ".", decSep: ","},
}

// Estimated units of each currency per JPY. Only used for synthesized
// estimates, never for provider prices.
var perJPY = map[string]float64{
	"JPY": 1,
	"USD": 0.0067,
	"EUR": 0.0062,
	"GBP": 0.0053,
	"IDR": 105,
}

func Decimals(code string) int {
	if s, ok := formats[strings.ToUpper(code)]; ok {
		return s.decimals
	}
	return 2
}

// Round rounds amount to the minor unit of code.
func Round(amount float64, code string) float64 {
	p := math.Pow10(Decimals(code))
	return math.Round(amount*p) / p
}

// ConvertEstimate converts between currencies using static rates. The
// second return value is false when either currency is unknown.
func ConvertEstimate(amount float64, from, to string) (float64, bool) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, true
	}
	f, ok := perJPY[from]
	if !ok {
		return 0, false
	}
	t, ok := perJPY[to]
	if !ok {
		return 0, false
	}
	return Round(amount/f*t, to), true
}

func Format(amount float64, code string) string {
	code = strings.ToUpper(code)
	s, ok := formats[code]
	if !ok {
		s = numberFormat{symbol: code + " ", decimals: 2, sep: ",", decSep: "."}
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.*f", s.decimals, Round(amount, code))
	intStr, frac := str, ""
	if i := strings.IndexByte(str, '.'); i >= 0 {
		intStr, frac = str[:i], str[i+1:]
	}

	result := s.symbol + addThousandsSeparator(intStr, s.sep)
	if frac != "" {
		result += s.decSep + frac
	}
	if negative {
		result = "-" + result
	}
	return result
}

func FormatIDR(amount float64) string {
	return Format(amount, "IDR")
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
