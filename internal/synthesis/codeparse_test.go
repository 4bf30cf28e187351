package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCodeOutput(t *testing.T) {
	t.Run("fenced_block", func(t *testing.T) {
		got := ParseCodeOutput("intro\n```json\n{\"files\":[{\"path\":\"a.go\",\"content\":\"x\"}]}\n```\noutro")
		require.NotNil(t, got)
		require.Len(t, got.Files, 1)
		assert.Equal(t, "a.go", got.Files[0].Path)
	})

	t.Run("bare_braces", func(t *testing.T) {
		got := ParseCodeOutput(`{"commands":["make test"]}`)
		require.NotNil(t, got)
		assert.Equal(t, []string{"make test"}, got.Commands)
	})

	t.Run("missing_fields_tolerated", func(t *testing.T) {
		got := ParseCodeOutput("```json\n{\"output\":\"build ok\"}\n```")
		require.NotNil(t, got)
		assert.Empty(t, got.Files)
		assert.Empty(t, got.Commands)
		assert.Equal(t, "build ok", got.Output)
	})

	t.Run("malformed_json_degrades", func(t *testing.T) {
		assert.Nil(t, ParseCodeOutput("```json\n{not json\n```"))
	})

	t.Run("no_structured_content", func(t *testing.T) {
		assert.Nil(t, ParseCodeOutput("plain prose answer"))
		assert.Nil(t, ParseCodeOutput("```json\n{}\n```"))
	})
}
