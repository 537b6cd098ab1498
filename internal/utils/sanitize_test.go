package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForSink_EscapesMarkup(t *testing.T) {
	out := SanitizeForSink("<p>A & B</p>")
	assert.Equal(t, "&lt;p&gt;A &amp; B&lt;/p&gt;", out)
}

func TestSanitizeForSink_StripsControlCharacters(t *testing.T) {
	out := SanitizeForSink("bell\x07 tab\t newline\n cr\r null\x00")
	assert.Equal(t, "bell tab\t newline\n cr\r null", out)
}

func TestSanitizeForSink_PassesPlainText(t *testing.T) {
	in := "Quarterly report attached. Totals match."
	assert.Equal(t, in, SanitizeForSink(in))
}

func TestTruncateMessage_AtLimitUntouched(t *testing.T) {
	msg := strings.Repeat("a", 100)
	assert.Equal(t, msg, TruncateMessage(msg, 100, "...cut"))
}

func TestTruncateMessage_OneOverLimit(t *testing.T) {
	marker := "...cut"
	msg := strings.Repeat("a", 101)

	out := TruncateMessage(msg, 100, marker)

	assert.Len(t, out, 100)
	assert.True(t, strings.HasSuffix(out, marker))
	assert.Equal(t, strings.Repeat("a", 100-len(marker)), strings.TrimSuffix(out, marker))
}

func TestTruncateMessage_MarkerLongerThanLimit(t *testing.T) {
	out := TruncateMessage("abcdefgh", 4, "......")
	assert.Equal(t, "......", out)
}
