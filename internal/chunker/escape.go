package chunker

import "strings"

// markdownSpecials are the characters Telegram MarkdownV2 treats as
// structural and requires escaping in message text.
const markdownSpecials = `_*[]()~` + "`" + `>#+-=|{}.!\`

// EscapeMarkdown backslash-escapes every MarkdownV2-significant character.
// The escape is applied per part; a part boundary never falls between a
// backslash and its character because escaping happens after splitting.
func EscapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(markdownSpecials, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
