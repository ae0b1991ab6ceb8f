package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmail/quill/internal/registry"
)

func sampleDefs() []registry.Definition {
	return []registry.Definition{
		{
			Name:        "search_mail",
			Description: "Search messages in a mailbox",
			Parameters: map[string]registry.Param{
				"query":   {Type: "string", Description: "search text"},
				"limit":   {Type: "integer", Description: "max results"},
				"mailbox": {Type: "string", Enum: []string{"INBOX", "Sent"}},
			},
			Required: []string{"query"},
		},
		{
			Name:        "current_time",
			Description: "Get the current date and time",
		},
	}
}

func TestComposeDeterministic(t *testing.T) {
	defs := sampleDefs()
	first := Compose("You are a mail assistant.", defs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compose("You are a mail assistant.", sampleDefs()))
	}
}

func TestComposeOrderIndependent(t *testing.T) {
	defs := sampleDefs()
	reversed := []registry.Definition{defs[1], defs[0]}
	assert.Equal(t, Compose("base", defs), Compose("base", reversed),
		"definition order must not change the composed prompt")
}

func TestComposeContents(t *testing.T) {
	out := Compose("You are a mail assistant.", sampleDefs())

	assert.True(t, strings.HasPrefix(out, "You are a mail assistant.\n"))
	assert.Contains(t, out, "### search_mail")
	assert.Contains(t, out, "### current_time")
	assert.Contains(t, out, `"required": ["query"]`)
	assert.Contains(t, out, `"enum": ["INBOX","Sent"]`)

	// Worked examples for both call forms.
	assert.Contains(t, out, "functions.search_mail({")
	assert.Contains(t, out, `{"function_call": {"name": "search_mail"`)
	assert.Contains(t, out, "generation continues")

	// current_time sorts before search_mail.
	require.Less(t, strings.Index(out, "### current_time"), strings.Index(out, "### search_mail"))
}

func TestComposeNoFunctions(t *testing.T) {
	out := Compose("base prompt", nil)
	assert.Equal(t, "base prompt\n", out)
	assert.NotContains(t, out, "Available Functions")
}
