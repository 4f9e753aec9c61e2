package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "reserved", input: `a/b:c*d?.pdf`, expected: "a_b_c_d_.pdf"},
		{name: "all reserved", input: `<>:"/\|?*`, expected: "_________"},
		{name: "whitespace", input: "  Torts \n\t I  ", expected: "Torts I"},
		{name: "truncate", input: strings.Repeat("x", 250), expected: strings.Repeat("x", 200)},
		{name: "truncate then trim", input: "abcd efgh", max: 5, expected: "abcd"},
		{name: "runes", input: "éééé", max: 2, expected: "éé"},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, SanitizeFilename(test.input, test.max))
		})
	}
}

func TestSanitizeFilenameExt(t *testing.T) {
	long := SanitizeFilenameExt(strings.Repeat("x", 250), ".pdf", 0)
	require.Equal(t, DefaultFilenameLength, utf8.RuneCountInString(long))
	require.True(t, strings.HasSuffix(long, ".pdf"))
	require.Equal(t, long, SanitizeFilename(long, 0))

	require.Equal(t, "Torts _ I.pdf", SanitizeFilenameExt(" Torts / I ", ".pdf", 0))
	require.Equal(t, "ab.docx", SanitizeFilenameExt("abcdef", ".docx", 7))
}

func TestHasExtension(t *testing.T) {
	docs := []string{".pdf", ".doc", ".docx"}
	require.True(t, HasExtension("Outline.PDF", docs...))
	require.True(t, HasExtension(" syllabus.docx ", docs...))
	require.False(t, HasExtension("Download here", docs...))
	require.False(t, HasExtension("notes.txt", docs...))
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "a b c", CollapseWhitespace("\n a \t b\n\nc "))
	require.Equal(t, "", CollapseWhitespace(" \n "))
}
