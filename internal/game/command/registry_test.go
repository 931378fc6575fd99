package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	require.NotNil(t, r)
	assert.Len(t, r.Commands(), len(BuiltinCommands()))
	assert.Equal(t, "roll", r.Commands()[0].Name)
}

func TestResolve(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		input   string
		handler string
	}{
		{"roll", HandlerRoll},
		{"r", HandlerRoll},
		{"stats", HandlerStats},
		{"st", HandlerStats},
		{"dice", HandlerDice},
		{"catalog", HandlerDice},
		{"an", HandlerAnalyze},
		{"hist", HandlerHistory},
		{"lua", HandlerScript},
		{"?", HandlerHelp},
		{"exit", HandlerQuit},
	}
	for _, tt := range tests {
		cmd, ok := r.Resolve(tt.input)
		require.True(t, ok, "command %q not found", tt.input)
		assert.Equal(t, tt.handler, cmd.Handler, "input %q", tt.input)
	}

	_, ok := r.Resolve("fly")
	assert.False(t, ok)
}

func TestNewRegistry_Collisions(t *testing.T) {
	_, err := NewRegistry([]Command{{Name: "roll"}, {Name: "roll"}})
	assert.Error(t, err)

	_, err = NewRegistry([]Command{{Name: "roll", Aliases: []string{"r"}}, {Name: "reroll", Aliases: []string{"r"}}})
	assert.Error(t, err)

	_, err = NewRegistry([]Command{{Name: "roll", Aliases: []string{"r"}}, {Name: "r"}})
	assert.Error(t, err)

	_, err = NewRegistry([]Command{{Name: "roll"}, {Name: "x", Aliases: []string{"roll"}}})
	assert.Error(t, err)

	_, err = NewRegistry([]Command{{Name: ""}})
	assert.Error(t, err)
}

func TestCommandsByCategory(t *testing.T) {
	cats := DefaultRegistry().CommandsByCategory()
	assert.Len(t, cats[CategorySystem], 2)
	assert.Len(t, cats[CategoryScript], 1)
}

func TestHelp(t *testing.T) {
	r := DefaultRegistry()
	help := r.Help(nil)
	assert.True(t, strings.HasPrefix(help, "Commands:\n"))
	for _, cmd := range r.Commands() {
		assert.Contains(t, help, cmd.Help)
	}
	assert.Contains(t, help, "roll [NdF]")

	noScript := r.Help(func(c *Command) bool { return c.Handler != HandlerScript })
	assert.NotContains(t, noScript, "Call a Lua function")
	assert.Contains(t, noScript, "Roll a die")
}
