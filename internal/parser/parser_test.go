package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtractFileText(t *testing.T) {
	path := writeFile(t, "notes.txt", "quarterly revenue grew by 4 percent")

	pages, err := ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.Equal(t, 1, pages[0].Number)
	assert.Contains(t, pages[0].Text, "quarterly revenue")
	assert.Equal(t, confNative, pages[0].Confidence)
	assert.Equal(t, "text", pages[0].Method)
}

func TestExtractFileMarkdown(t *testing.T) {
	path := writeFile(t, "readme.md", "# Heading\n\nsome *body* text")

	pages, err := ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Text, "Heading")
	assert.Contains(t, pages[0].Text, "body")
}

func TestExtractFileEmptyText(t *testing.T) {
	path := writeFile(t, "blank.txt", "   \n\t\n")

	pages, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestExtractFileUnsupported(t *testing.T) {
	_, err := ExtractFile("/tmp/archive.tar.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestExtractTextFromXML(t *testing.T) {
	xml := `<p:sp><a:t>First run</a:t><a:t>second run</a:t></p:sp><a:t>dangling`
	got := extractTextFromXML(xml)
	assert.Equal(t, "First run second run ", got)
}

func TestPrintableRuns(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"clean text untouched", "hello world", "hello world"},
		{"control bytes collapse to one space", "abc\x00\x01\x02def", "abc def"},
		{"leading and trailing junk trimmed", "\x00\x00report body\x00", "report body"},
		{"all junk yields empty", "\x00\x01\x02", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, printableRuns(tc.in))
		})
	}
}

func TestChainFailsWithoutRecovery(t *testing.T) {
	c := NewChain(nil, "")
	_, err := c.Extract(context.Background(), writeFile(t, "data.bin", "\x00\x01"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestChainPassesThroughNativeSuccess(t *testing.T) {
	c := NewChain(nil, "")
	pages, err := c.Extract(context.Background(), writeFile(t, "memo.txt", "plain memo"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Text, "plain memo")
}
