package playlist

import "strings"

// Escape makes s safe as a group-title value or an #EXTINF display name: double quotes
// are removed, commas become spaces, whitespace runs (including CR/LF) collapse to one
// space and the ends are trimmed. Escape(Escape(s)) == Escape(s).
func Escape(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}
