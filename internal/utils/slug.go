package utils

import (
    "strings"
    "unicode"
)

// maxSlugLen keeps channel names well inside the column width once the
// time and random suffixes are appended.
const maxSlugLen = 50

// Slugify lowercases s, keeps ASCII letters and digits, and joins every
// other run of characters with a single hyphen.  Leading and trailing
// hyphens are trimmed.  The result may be empty.
func Slugify(s string) string {
    var b strings.Builder
    pendingDash := false
    for _, r := range strings.ToLower(s) {
        if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
            if pendingDash && b.Len() > 0 {
                b.WriteByte('-')
            }
            pendingDash = false
            b.WriteRune(r)
            if b.Len() >= maxSlugLen {
                break
            }
            continue
        }
        pendingDash = true
    }
    return strings.TrimRight(b.String(), "-")
}
