package typing

import (
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Graphemes splits s into user-perceived characters after NFC
// normalisation, so a combining accent or an emoji sequence is revealed as
// one unit.
func Graphemes(s string) []string {
	s = norm.NFC.String(s)
	chars := make([]string, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		chars = append(chars, g.Str())
	}
	return chars
}

// Reverse returns the characters of s in reverse order.
func Reverse(s string) string {
	chars := Graphemes(s)
	reverseInPlace(chars)
	return join(chars)
}

func reverseInPlace(chars []string) {
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}
}

func join(chars []string) string {
	n := 0
	for _, c := range chars {
		n += len(c)
	}
	buf := make([]byte, 0, n)
	for _, c := range chars {
		buf = append(buf, c...)
	}
	return string(buf)
}
