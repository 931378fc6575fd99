package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/polydie/internal/game/dice"
)

// ErrUnknownScript is returned by Call when no script set is loaded under the name.
var ErrUnknownScript = errors.New("scripting: unknown script set")

// ErrUnknownFunction is returned by Call when the function is not defined.
var ErrUnknownFunction = errors.New("scripting: unknown function")

// set is one loaded script set and the lock serializing access to its state.
type set struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
}

// Manager owns one sandboxed LState per script set.
//
// Manager is safe for concurrent use. Each LState is single-threaded; calls to
// the same set are serialized while different sets run concurrently.
type Manager struct {
	mu     sync.RWMutex
	sets   map[string]*set
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no script sets loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting: NewManager requires a non-nil roller")
	}
	if logger == nil {
		panic("scripting: NewManager requires a non-nil logger")
	}
	return &Manager{
		sets:   make(map[string]*set),
		roller: roller,
		logger: logger,
	}
}

// Load creates a sandboxed VM for name, registers the dice and log modules,
// then executes every *.lua file in scriptDir in lexicographic order.
// Loading a name twice replaces the previous VM.
//
// Precondition: name must be non-empty; scriptDir must be a readable directory.
// Postcondition: The set is registered; returns error on Lua load failure.
func (m *Manager) Load(ctx context.Context, name, scriptDir string, instLimit int) error {
	if name == "" {
		return errors.New("scripting: script set name must not be empty")
	}

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, name, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	m.RegisterModules(L)
	for _, path := range luaFiles {
		release := limitInstructions(ctx, L, instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, name, err)
		}
	}

	m.mu.Lock()
	old := m.sets[name]
	m.sets[name] = &set{L: L, instLimit: instLimit}
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}

	m.logger.Info("script set loaded",
		zap.String("set", name),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// LoadRoot loads every subdirectory of root as a script set named after the
// subdirectory.
//
// Precondition: root must be a readable directory.
// Postcondition: Returns the loaded set names in lexicographic order.
func (m *Manager) LoadRoot(ctx context.Context, root string, instLimit int) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading script root %q: %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.Load(ctx, e.Name(), filepath.Join(root, e.Name()), instLimit); err != nil {
			return nil, err
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Call invokes the global Lua function fn in the named set with a fresh
// instruction budget and returns its first result.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value, ErrUnknownScript,
// ErrUnknownFunction, or the Lua runtime error.
func (m *Manager) Call(ctx context.Context, name, fn string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	s, ok := m.sets[name]
	m.mu.RUnlock()
	if !ok {
		return lua.LNil, fmt.Errorf("%w: %q", ErrUnknownScript, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.L.GetGlobal(fn)
	if f.Type() != lua.LTFunction {
		return lua.LNil, fmt.Errorf("%w: %q in %q", ErrUnknownFunction, fn, name)
	}

	release := limitInstructions(ctx, s.L, s.instLimit)
	defer release()

	if err := s.L.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("set", name),
			zap.String("function", fn),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s.%s: %w", name, fn, err)
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

// Sets returns the loaded script set names in lexicographic order.
func (m *Manager) Sets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sets))
	for name := range m.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every loaded VM.
//
// Postcondition: No script sets remain loaded.
func (m *Manager) Close() {
	m.mu.Lock()
	sets := m.sets
	m.sets = make(map[string]*set)
	m.mu.Unlock()

	for _, s := range sets {
		s.mu.Lock()
		s.L.Close()
		s.mu.Unlock()
	}
}

// Format renders a Lua value for line-oriented output: arrays as "[a b c]",
// other tables as "{k=v ...}" with sorted keys, and scalars via String().
func Format(v lua.LValue) string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return v.String()
	}
	if n := tbl.Len(); n > 0 {
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, Format(tbl.RawGetInt(i)))
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	var parts []string
	tbl.ForEach(func(k, val lua.LValue) {
		parts = append(parts, k.String()+"="+Format(val))
	})
	sort.Strings(parts)
	return "{" + strings.Join(parts, " ") + "}"
}
