package scripting_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/polydie/internal/game/dice"
	"github.com/cory-johannsen/polydie/internal/scripting"
)

func newManager(t *testing.T, logger *zap.Logger) *scripting.Manager {
	t.Helper()
	roller := dice.NewLoggedRoller(dice.NewSeededSource(42), logger)
	m := scripting.NewManager(roller, logger)
	t.Cleanup(m.Close)
	return m
}

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestNewManager_PanicsOnNil(t *testing.T) {
	logger := zaptest.NewLogger(t)
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	assert.Panics(t, func() { scripting.NewManager(nil, logger) })
	assert.Panics(t, func() { scripting.NewManager(roller, nil) })
}

func TestManager_LoadAndCall(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "attack.lua", `
function attack(bonus)
  local r = dice.roll(20, 1)
  return r[1] + bonus
end
`)
	m := newManager(t, zaptest.NewLogger(t))
	require.NoError(t, m.Load(context.Background(), "combat", dir, 0))
	assert.Equal(t, []string{"combat"}, m.Sets())

	ret, err := m.Call(context.Background(), "combat", "attack", lua.LNumber(5))
	require.NoError(t, err)
	v := int(ret.(lua.LNumber))
	assert.GreaterOrEqual(t, v, 6)
	assert.LessOrEqual(t, v, 25)
}

func TestManager_LoadsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "01_base.lua", `base = 10`)
	writeScript(t, dir, "02_use.lua", `function value() return base * 2 end`)
	writeScript(t, dir, "notes.txt", `this is not lua`)

	m := newManager(t, zaptest.NewLogger(t))
	require.NoError(t, m.Load(context.Background(), "ordered", dir, 0))

	ret, err := m.Call(context.Background(), "ordered", "value")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(20), ret)
}

func TestManager_LoadErrors(t *testing.T) {
	m := newManager(t, zaptest.NewLogger(t))
	assert.Error(t, m.Load(context.Background(), "", t.TempDir(), 0))
	assert.Error(t, m.Load(context.Background(), "missing", filepath.Join(t.TempDir(), "nope"), 0))

	dir := t.TempDir()
	writeScript(t, dir, "bad.lua", `function (`)
	assert.Error(t, m.Load(context.Background(), "bad", dir, 0))
	assert.Empty(t, m.Sets())
}

func TestManager_LoadRejectsRunawayTopLevel(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "spin.lua", `while true do end`)
	m := newManager(t, zaptest.NewLogger(t))
	assert.Error(t, m.Load(context.Background(), "spin", dir, 1000))
}

func TestManager_CallUnknown(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `x = 1`)
	m := newManager(t, zaptest.NewLogger(t))
	require.NoError(t, m.Load(context.Background(), "a", dir, 0))

	_, err := m.Call(context.Background(), "nope", "f")
	assert.True(t, errors.Is(err, scripting.ErrUnknownScript))

	_, err = m.Call(context.Background(), "a", "f")
	assert.True(t, errors.Is(err, scripting.ErrUnknownFunction))

	_, err = m.Call(context.Background(), "a", "x")
	assert.True(t, errors.Is(err, scripting.ErrUnknownFunction))
}

func TestManager_CallRuntimeErrorLogged(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "boom.lua", `function boom() return dice.roll(2.5) end`)

	core, logs := observer.New(zap.WarnLevel)
	m := newManager(t, zap.New(core))
	require.NoError(t, m.Load(context.Background(), "boom", dir, 0))

	_, err := m.Call(context.Background(), "boom", "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "face_count must be an integer")
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_CallInstructionLimitIsPerCall(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "work.lua", `
function work()
  local s = 0
  for i = 1, 50 do s = s + i end
  return s
end
function spin() while true do end end
`)
	m := newManager(t, zaptest.NewLogger(t))
	require.NoError(t, m.Load(context.Background(), "work", dir, 2000))

	for i := 0; i < 20; i++ {
		ret, err := m.Call(context.Background(), "work", "work")
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, lua.LNumber(1275), ret)
	}

	_, err := m.Call(context.Background(), "work", "spin")
	assert.Error(t, err)

	ret, err := m.Call(context.Background(), "work", "work")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1275), ret)
}

func TestManager_ReloadReplacesSet(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	writeScript(t, dir1, "v.lua", `function v() return 1 end`)
	writeScript(t, dir2, "v.lua", `function v() return 2 end`)

	m := newManager(t, zaptest.NewLogger(t))
	require.NoError(t, m.Load(context.Background(), "v", dir1, 0))
	require.NoError(t, m.Load(context.Background(), "v", dir2, 0))

	ret, err := m.Call(context.Background(), "v", "v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(2), ret)
}

func TestManager_LoadRoot(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"beta", "alpha"} {
		dir := filepath.Join(root, name)
		require.NoError(t, os.Mkdir(dir, 0o755))
		writeScript(t, dir, "main.lua", `function name() return "`+name+`" end`)
	}
	writeScript(t, root, "stray.lua", `x = 1`)

	m := newManager(t, zaptest.NewLogger(t))
	names, err := m.LoadRoot(context.Background(), root, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	ret, err := m.Call(context.Background(), "beta", "name")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("beta"), ret)
}

func TestManager_ConcurrentCalls(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "r.lua", `function r() return #dice.roll(6, 3) end`)
	m := newManager(t, zap.NewNop())
	require.NoError(t, m.Load(context.Background(), "r", dir, 0))

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ret, err := m.Call(context.Background(), "r", "r")
			if err == nil && ret != lua.LNumber(3) {
				err = errors.New("unexpected result " + ret.String())
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestManager_CloseClearsSets(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `function f() return 1 end`)
	m := newManager(t, zaptest.NewLogger(t))
	require.NoError(t, m.Load(context.Background(), "a", dir, 0))
	m.Close()
	assert.Empty(t, m.Sets())
	_, err := m.Call(context.Background(), "a", "f")
	assert.True(t, errors.Is(err, scripting.ErrUnknownScript))
}

func TestFormat(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	arr := L.NewTable()
	arr.Append(lua.LNumber(1))
	arr.Append(lua.LNumber(4))
	arr.Append(lua.LNumber(6))
	assert.Equal(t, "[1 4 6]", scripting.Format(arr))

	obj := L.NewTable()
	obj.RawSetString("mean", lua.LNumber(3.5))
	obj.RawSetString("faces", lua.LNumber(6))
	assert.Equal(t, "{faces=6 mean=3.5}", scripting.Format(obj))

	assert.Equal(t, "{}", scripting.Format(L.NewTable()))
	assert.Equal(t, "hi", scripting.Format(lua.LString("hi")))
	assert.Equal(t, "nil", scripting.Format(lua.LNil))
}
