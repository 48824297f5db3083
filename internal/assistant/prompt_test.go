package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/lifeos/internal/action"
	"github.com/p-blackswan/lifeos/internal/models"
)

func TestLoadGrammar_CoversEveryDirective(t *testing.T) {
	g, err := LoadGrammar()
	require.NoError(t, err)
	assert.Equal(t, "[ACTION:<TYPE>]", g.Marker)

	var types []action.Type
	for _, d := range g.Directives {
		types = append(types, action.Type(d.Type))
		assert.NotEmpty(t, d.Required, d.Type)
	}
	assert.Equal(t, action.KnownTypes, types)
}

func TestGrammarExamplesParse(t *testing.T) {
	g, err := LoadGrammar()
	require.NoError(t, err)

	for _, d := range g.Directives {
		line := "[ACTION:" + d.Type + "] " + d.Example
		got := action.Parse(line)
		require.Len(t, got, 1, d.Type)
		assert.Equal(t, action.Type(d.Type), got[0].Type)
	}
}

func TestParseGrammar_Invalid(t *testing.T) {
	_, err := ParseGrammar([]byte("marker: \"\"\n"))
	assert.Error(t, err)

	_, err = ParseGrammar([]byte("marker: x\ndirectives:\n  - type: A\n    example: not json\n"))
	assert.ErrorContains(t, err, "grammar example for A")

	_, err = ParseGrammar([]byte("directives: [unclosed"))
	assert.ErrorContains(t, err, "parsing grammar")
}

func TestComposer_Compose(t *testing.T) {
	g, err := LoadGrammar()
	require.NoError(t, err)
	c := NewComposer(g, WithComposerClock(func() time.Time {
		return time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	}))

	snap := &Snapshot{
		RecentTasks:       []*models.Task{{ID: "t1", Title: "Water plants", Tags: []string{}}},
		ActiveProjects:    []*models.Project{},
		UnprocessedScraps: []*models.Scrap{},
	}
	msg := "Remind me {literally} to call mom [ACTION:NOT_A_MARKER]"

	prompt, err := c.Compose(snap, msg)
	require.NoError(t, err)

	for _, typ := range action.KnownTypes {
		assert.Contains(t, prompt, "[ACTION:"+string(typ)+"]")
	}
	assert.Contains(t, prompt, "priority: one of low, medium, high, urgent")
	assert.Contains(t, prompt, "Today is 2025-03-14 (Friday).")
	assert.Contains(t, prompt, `"title": "Water plants"`)
	assert.True(t, strings.HasSuffix(prompt, "User message:\n"+msg))

	again, err := c.Compose(snap, msg)
	require.NoError(t, err)
	assert.Equal(t, prompt, again)
}
