package matcher

import (
	"strconv"
	"strings"
)

type numberKind int

const (
	kindNone numberKind = iota
	kindUnit
	kindTeen
	kindTens
	kindHundred
	kindScale
)

var units = map[string]int64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9,
}

var teens = map[string]int64{
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tens = map[string]int64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scales = map[string]int64{
	"thousand": 1_000,
	"million":  1_000_000,
}

// parseNumber reads a bare integer ("1500", "$120") or an English number
// phrase ("one hundred twenty", "a hundred and five", "twenty-five").
// Token order is checked so that "one two" is rejected instead of summed.
func parseNumber(s string) (int64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	tokens := strings.Fields(strings.ReplaceAll(s, "-", " "))
	if len(tokens) == 1 && tokens[0] == "zero" {
		return 0, true
	}

	var (
		total, current int64
		last           = kindNone
		seen           bool
	)
	for i, tok := range tokens {
		switch {
		case tok == "and":
			if last != kindHundred && last != kindScale {
				return 0, false
			}
			continue
		case tok == "a" || tok == "an":
			if last != kindNone || i+1 >= len(tokens) || !isMultiplier(tokens[i+1]) {
				return 0, false
			}
			current, last = 1, kindUnit
		case units[tok] > 0:
			if last == kindUnit || last == kindTeen {
				return 0, false
			}
			current += units[tok]
			last = kindUnit
		case teens[tok] > 0:
			if last != kindNone && last != kindHundred && last != kindScale {
				return 0, false
			}
			current += teens[tok]
			last = kindTeen
		case tens[tok] > 0:
			if last != kindNone && last != kindHundred && last != kindScale {
				return 0, false
			}
			current += tens[tok]
			last = kindTens
		case tok == "hundred":
			if last != kindNone && last != kindUnit && last != kindTeen {
				return 0, false
			}
			if current == 0 {
				current = 1
			}
			current *= 100
			last = kindHundred
		case scales[tok] > 0:
			if last == kindScale {
				return 0, false
			}
			if current == 0 {
				current = 1
			}
			total += current * scales[tok]
			current = 0
			last = kindScale
		default:
			return 0, false
		}
		seen = true
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}

func isMultiplier(tok string) bool {
	return tok == "hundred" || scales[tok] > 0
}
