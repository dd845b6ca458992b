package logger

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"&", "and", "@", "at", "'", "",
)

// Fold lower-cases s and strips diacritics so that "Société" and "societe"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

// ContainsFold reports whether term is part of any of the fields after
// folding both sides.
func ContainsFold(term string, fields ...string) bool {
	needle := Fold(strings.TrimSpace(term))
	if needle == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(Fold(field), needle) {
			return true
		}
	}
	return false
}

//no chinese or cyrilic supported
func StringToSlug(instr string) string {
	instr = slugReplacer.Replace(strings.ToLower(instr))
	instr = Fold(instr)
	var b strings.Builder
	b.Grow(len(instr))
	dash := false
	for _, r := range instr {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
