package scripting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"
)

func TestNewSandboxedState_StripsDangerousGlobals(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require", "os", "io"} {
		assert.Equal(t, lua.LTNil, L.GetGlobal(name).Type(), "global %q should be nil", name)
	}
	for _, name := range []string{"string", "table", "math", "pairs"} {
		assert.NotEqual(t, lua.LTNil, L.GetGlobal(name).Type(), "global %q should be present", name)
	}
}

func TestLimitInstructions_StopsInfiniteLoop(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()

	release := limitInstructions(context.Background(), L, 1000)
	err := L.DoString(`while true do end`)
	release()
	require.Error(t, err)
}

func TestLimitInstructions_FreshBudgetPerCall(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()

	for i := 0; i < 5; i++ {
		release := limitInstructions(context.Background(), L, 10_000)
		err := L.DoString(`local s = 0 for i = 1, 100 do s = s + i end`)
		release()
		require.NoError(t, err, "call %d", i)
	}
}

func TestLimitInstructions_ZeroUsesDefault(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()

	release := limitInstructions(context.Background(), L, 0)
	defer release()
	require.NoError(t, L.DoString(`local s = 0 for i = 1, 1000 do s = s + i end`))
}

func TestLimitInstructions_ParentCancelled(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := limitInstructions(ctx, L, 1_000_000)
	defer release()
	assert.Error(t, L.DoString(`while true do end`))
}

func TestProperty_CountingContextCancelsAtLimit(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 500).Draw(rt, "limit")
		ctx, cancel := newCountingContext(context.Background(), limit)
		defer cancel()

		for i := 1; i < limit; i++ {
			select {
			case <-ctx.Done():
				rt.Fatalf("cancelled early at call %d of %d", i, limit)
			default:
			}
		}
		<-ctx.Done()
		assert.Error(rt, ctx.Err())
	})
}
