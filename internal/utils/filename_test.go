package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFilename_UnsafeCharacters(t *testing.T) {
	out := NormalizeFilename("!!!.jpg")
	assert.NotEmpty(t, out)
	assert.Equal(t, "___.jpg", out)
}

func TestNormalizeFilename_Empty(t *testing.T) {
	assert.Equal(t, FallbackAttachmentName, NormalizeFilename(""))
}

func TestNormalizeFilename_OnlyPadding(t *testing.T) {
	assert.Equal(t, FallbackAttachmentName, NormalizeFilename("  .. _ "))
}

func TestNormalizeFilename_PreservesRegularNames(t *testing.T) {
	assert.Equal(t, "invoice 2024-03.pdf", NormalizeFilename("invoice 2024-03.pdf"))
}

func TestNormalizeFilename_ReplacesPathSeparators(t *testing.T) {
	out := NormalizeFilename("../secret/report.pdf")
	assert.Equal(t, ".._secret_report.pdf", out)
}

func TestNormalizeFilename_TruncatesLongNamesKeepingExtension(t *testing.T) {
	long := strings.Repeat("x", 400) + ".zip"

	out := NormalizeFilename(long)

	assert.LessOrEqual(t, len(out), 200)
	assert.True(t, strings.HasSuffix(out, ".zip"))
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, ".pdf", ExtensionOf("Report.PDF"))
	assert.Equal(t, "", ExtensionOf("README"))
}
