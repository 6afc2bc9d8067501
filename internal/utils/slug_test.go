package utils

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
    cases := map[string]string{
        "Physics 101":           "physics-101",
        "  Hello,   World!  ":   "hello-world",
        "already-slugged":       "already-slugged",
        "Ünïcode Çlass":         "n-code-lass",
        "!!!":                   "",
        "":                      "",
        "Mixed_CASE__under":     "mixed-case-under",
    }
    for in, want := range cases {
        assert.Equal(t, want, Slugify(in), "input %q", in)
    }
}

func TestSlugifyTruncates(t *testing.T) {
    got := Slugify(strings.Repeat("a", 80))
    assert.Len(t, got, maxSlugLen)
}
