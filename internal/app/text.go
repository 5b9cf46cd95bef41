package app

import (
	"strings"
	"time"
	"unicode/utf8"
)

// truncate keeps at most max characters (runes) of s.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

func utcNow() time.Time { return time.Now().UTC() }
