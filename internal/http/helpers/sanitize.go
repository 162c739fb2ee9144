package helpers

import (
	"strings"
	"unicode"
)

// CleanText recorta espacios y quita caracteres de control. El largo lo
// valida el tag max del DTO, acá no se trunca.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return s
}

// CleanTextPtr aplica CleanText preservando nil.
func CleanTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := CleanText(*s)
	return &v
}
