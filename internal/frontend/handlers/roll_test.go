package handlers_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/polydie/internal/config"
	"github.com/cory-johannsen/polydie/internal/frontend/handlers"
	"github.com/cory-johannsen/polydie/internal/frontend/telnet"
	"github.com/cory-johannsen/polydie/internal/game/catalog"
	"github.com/cory-johannsen/polydie/internal/game/dice"
	"github.com/cory-johannsen/polydie/internal/scripting"
	"github.com/cory-johannsen/polydie/internal/storage/postgres"
	"github.com/cory-johannsen/polydie/internal/testutil"
)

var rollLine = regexp.MustCompile(`^(\d+)d(\d+) → \[([\d ]*)\] = (\d+)$`)

type fakeHistory struct {
	records []postgres.RollRecord
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]postgres.RollRecord, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func newHandler(t *testing.T, opts ...handlers.Option) *handlers.RollHandler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg, err := catalog.NewRegistry(catalog.DefaultEntries())
	require.NoError(t, err)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(99), logger)
	return handlers.NewRollHandler(roller, reg, logger, opts...)
}

func dispatch(t *testing.T, h *handlers.RollHandler, line string) (string, error) {
	t.Helper()
	fields := strings.Fields(line)
	return h.Dispatch(context.Background(), fields[0], fields[1:])
}

func TestDispatch_Roll(t *testing.T) {
	h := newHandler(t)

	out, err := dispatch(t, h, "roll 3d6")
	require.NoError(t, err)
	m := rollLine.FindStringSubmatch(out)
	require.NotNil(t, m, "unexpected output %q", out)
	assert.Equal(t, "3", m[1])
	assert.Equal(t, "6", m[2])
	assert.Len(t, strings.Fields(m[3]), 3)

	out, err = dispatch(t, h, "roll 2d0")
	require.NoError(t, err)
	assert.Equal(t, "2d0 → [0 0] = 0", out)

	out, err = dispatch(t, h, "roll 0d6")
	require.NoError(t, err)
	assert.Equal(t, "0d6 → [] = 0", out)
}

func TestDispatch_RollDefault(t *testing.T) {
	h := newHandler(t, handlers.WithDefaultRoll(2, 20))
	out, err := dispatch(t, h, "roll")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "2d20 → ["), out)
}

func TestDispatch_RollErrors(t *testing.T) {
	h := newHandler(t)

	_, err := dispatch(t, h, "roll bogus")
	assert.True(t, errors.Is(err, dice.ErrValue))

	_, err = dispatch(t, h, "roll d4.5")
	assert.True(t, errors.Is(err, dice.ErrType))

	_, err = dispatch(t, h, "roll 5000d6")
	assert.Error(t, err)

	_, err = dispatch(t, h, "roll 1d6 2d6")
	assert.Error(t, err)

	_, err = dispatch(t, h, "roll d1e3")
	assert.True(t, errors.Is(err, dice.ErrValue))
}

func TestDispatch_FaceLimit(t *testing.T) {
	h := newHandler(t)
	for _, line := range []string{
		"stats 4611686018427387904",
		"stats 9223372036854775807",
		"roll d4611686018427387904",
		"analyze 10d2000000",
	} {
		t.Run(line, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = dispatch(t, h, line) })
			require.Error(t, err)
			assert.Contains(t, err.Error(), "at most")
		})
	}

	out, err := dispatch(t, h, "stats 1000000")
	require.NoError(t, err)
	assert.Contains(t, out, "faces=1000000")
}

func TestDispatch_Stats(t *testing.T) {
	h := newHandler(t)

	out, err := dispatch(t, h, "stats 4")
	require.NoError(t, err)
	assert.Equal(t, "d4: faces=4 min=1 max=4 mean=2.50 p=0.2500", out)

	out, err = dispatch(t, h, "stats D20")
	require.NoError(t, err)
	assert.Equal(t, "20-sided die: faces=20 min=1 max=20 mean=10.50 p=0.0500", out)

	out, err = dispatch(t, h, "stats 0")
	require.NoError(t, err)
	assert.Equal(t, "d0: faces=0 min=0 max=0 mean=0.00 p=1.0000", out)

	_, err = dispatch(t, h, "stats -1")
	assert.True(t, errors.Is(err, dice.ErrValue))

	_, err = dispatch(t, h, "stats 4.0")
	assert.True(t, errors.Is(err, dice.ErrType))

	_, err = dispatch(t, h, "stats wat")
	assert.Error(t, err)

	_, err = dispatch(t, h, "stats 1e3")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, dice.ErrType))
}

func TestDispatch_StatsUppercaseCatalogID(t *testing.T) {
	logger := zaptest.NewLogger(t)
	reg, err := catalog.NewRegistry([]*catalog.Entry{{ID: "D20", Name: "icosahedron", Faces: 20}})
	require.NoError(t, err)
	h := handlers.NewRollHandler(dice.NewLoggedRoller(dice.NewSeededSource(1), logger), reg, logger)

	out, err := dispatch(t, h, "stats d20")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "icosahedron: faces=20"), out)
}

func TestDispatch_Dice(t *testing.T) {
	out, err := dispatch(t, newHandler(t), "dice")
	require.NoError(t, err)
	lines := strings.Split(out, "\r\n")
	assert.Len(t, lines, len(catalog.DefaultEntries()))
	assert.True(t, strings.HasPrefix(lines[0], "d0 "), lines[0])
}

func TestDispatch_Analyze(t *testing.T) {
	out, err := dispatch(t, newHandler(t), "analyze 6000d6")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "6000d6: n=6000 "), out)
	assert.Contains(t, out, "df=5")

	_, err = dispatch(t, newHandler(t), "analyze 0d6")
	assert.Error(t, err)
}

func TestDispatch_HistoryDisabled(t *testing.T) {
	_, err := dispatch(t, newHandler(t), "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roll history is disabled")
}

func TestDispatch_History(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := &fakeHistory{records: []postgres.RollRecord{
		{Notation: "2d6", Faces: 6, Values: []int{3, 4}, Total: 7, CreatedAt: at},
		{Notation: "d20", Faces: 20, Values: []int{17}, Total: 17, CreatedAt: at},
	}}
	h := newHandler(t, handlers.WithHistory(store))

	out, err := dispatch(t, h, "history")
	require.NoError(t, err)
	assert.Equal(t, 10, store.limit)
	assert.Equal(t, "2026-01-02 03:04:05  2d6 → [3 4] = 7\r\n2026-01-02 03:04:05  d20 → [17] = 17", out)

	_, err = dispatch(t, h, "history 1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.limit)

	for _, bad := range []string{"history 0", "history x", "history 1000"} {
		_, err = dispatch(t, h, bad)
		assert.Error(t, err, bad)
	}

	store.err = errors.New("connection refused")
	_, err = dispatch(t, h, "history")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestDispatch_Script(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tools")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.lua"), []byte(`
function add(a, b) return a + b end
function greet(name) return "hi " .. name end
`), 0o644))

	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(1), logger), logger)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.Load(context.Background(), "tools", dir, 0))

	h := newHandler(t, handlers.WithScripts(mgr))

	out, err := dispatch(t, h, "script tools add 2 3")
	require.NoError(t, err)
	assert.Equal(t, "=> 5", out)

	out, err = dispatch(t, h, "script tools greet bob")
	require.NoError(t, err)
	assert.Equal(t, "=> hi bob", out)

	_, err = dispatch(t, h, "script tools")
	assert.Error(t, err)

	_, err = dispatch(t, h, "script nope add")
	assert.True(t, errors.Is(err, scripting.ErrUnknownScript))
}

func TestDispatch_ScriptDisabled(t *testing.T) {
	_, err := dispatch(t, newHandler(t), "script a b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripting is disabled")
}

func TestDispatch_Aliases(t *testing.T) {
	h := newHandler(t)
	out, err := dispatch(t, h, "R 1d4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1d4 → ["), out)

	_, err = dispatch(t, h, "st 8")
	assert.NoError(t, err)
}

func TestDispatch_HelpHidesDisabledFeatures(t *testing.T) {
	out, err := dispatch(t, newHandler(t), "help")
	require.NoError(t, err)
	assert.Contains(t, out, "roll [NdF]")
	assert.NotContains(t, out, "history")
	assert.NotContains(t, out, "Call a Lua function")

	out, err = dispatch(t, newHandler(t, handlers.WithHistory(&fakeHistory{})), "?")
	require.NoError(t, err)
	assert.Contains(t, out, "history [n]")
}

func TestDispatch_UnknownCommand(t *testing.T) {
	_, err := dispatch(t, newHandler(t), "fly")
	assert.Error(t, err)
}

func startServer(t *testing.T, h *handlers.RollHandler) string {
	t.Helper()
	cfg := config.TelnetConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	acc := telnet.NewAcceptor(cfg, h, zap.NewNop())
	go func() { _ = acc.ListenAndServe() }()
	require.Eventually(t, func() bool { return acc.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(acc.Stop)
	return acc.Addr()
}

func TestRollHandler_Session(t *testing.T) {
	addr := startServer(t, newHandler(t))
	client := testutil.NewTelnetClient(t, addr)

	assert.Contains(t, client.Prompt(), "polydie roll server")

	out := client.Command("roll 2d6")
	m := rollLine.FindStringSubmatch(out)
	require.NotNil(t, m, "unexpected output %q", out)
	assert.Equal(t, "2", m[1])

	assert.Equal(t, "error: dice: ParseNotation: face_count must be an integer in \"d4.5\"", client.Command("roll d4.5"))
	assert.Contains(t, client.Command("stats 12"), "d12: faces=12")
	assert.Equal(t, "error: unknown command \"fly\", type 'help'", client.Command("fly"))
	assert.Contains(t, client.Command("help"), "roll [NdF]")
	assert.Equal(t, "", client.Command("   "))

	client.Send("quit")
	client.ReadUntil("bye", 2*time.Second)
}

func TestRollHandler_Color(t *testing.T) {
	addr := startServer(t, newHandler(t, handlers.WithColor(true)))
	client := testutil.NewTelnetClient(t, addr)
	client.Prompt()

	out := client.Command("roll 50d2")
	assert.Contains(t, out, telnet.Reset)
	m := rollLine.FindStringSubmatch(telnet.StripANSI(out))
	require.NotNil(t, m, "unexpected output %q", out)
	assert.Equal(t, "50", m[1])
}
