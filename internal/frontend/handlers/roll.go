// Package handlers provides the Telnet session handler for the roll server.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/polydie/internal/analysis"
	"github.com/cory-johannsen/polydie/internal/frontend/telnet"
	"github.com/cory-johannsen/polydie/internal/game/catalog"
	"github.com/cory-johannsen/polydie/internal/game/command"
	"github.com/cory-johannsen/polydie/internal/game/dice"
	"github.com/cory-johannsen/polydie/internal/storage/postgres"
)

// Limits on client-supplied sizes.
const (
	maxRollCount    = 1000
	maxAnalyzeCount = 100_000
	maxFaces        = 1_000_000
	defaultHistory  = 10
	maxHistory      = 100
)

const welcomeBanner = "polydie roll server. Type 'help' for commands."

// HistoryStore lists recorded rolls.
type HistoryStore interface {
	Recent(ctx context.Context, limit int) ([]postgres.RollRecord, error)
}

// ScriptRunner calls a function in a loaded Lua script set.
type ScriptRunner interface {
	Call(ctx context.Context, name, fn string, args ...lua.LValue) (lua.LValue, error)
}

// errUsage marks a malformed command; the message is shown as is.
var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

// RollHandler implements telnet.SessionHandler with a line-oriented dice
// command loop.
type RollHandler struct {
	roller   *dice.Roller
	catalog  *catalog.Registry
	commands *command.Registry
	logger   *zap.Logger

	scripts  ScriptRunner
	history  HistoryStore
	color    bool
	defaultN dice.Notation
}

// Option configures optional RollHandler features.
type Option func(*RollHandler)

// WithScripts enables the script command.
func WithScripts(s ScriptRunner) Option {
	return func(h *RollHandler) { h.scripts = s }
}

// WithHistory enables the history command.
func WithHistory(s HistoryStore) Option {
	return func(h *RollHandler) { h.history = s }
}

// WithColor toggles ANSI highlighting of minimum and maximum faces.
func WithColor(enabled bool) Option {
	return func(h *RollHandler) { h.color = enabled }
}

// WithDefaultRoll sets what a bare "roll" rolls.
//
// Precondition: count >= 0 and faces >= 0.
func WithDefaultRoll(count, faces int) Option {
	return func(h *RollHandler) { h.defaultN = dice.Notation{Count: count, Faces: faces} }
}

// NewRollHandler creates a RollHandler.
//
// Precondition: roller, registry and logger must be non-nil.
// Postcondition: Returns a handler with scripting and history disabled unless
// enabled through opts.
func NewRollHandler(roller *dice.Roller, registry *catalog.Registry, logger *zap.Logger, opts ...Option) *RollHandler {
	h := &RollHandler{
		roller:   roller,
		catalog:  registry,
		commands: command.DefaultRegistry(),
		logger:   logger,
		defaultN: dice.Notation{Count: 1, Faces: 6},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: Returns nil on quit, ctx.Err() on shutdown, or the I/O error
// that ended the session.
func (h *RollHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	logger := h.logger.With(zap.String("session", conn.ID().String()))

	if err := conn.WriteLine(welcomeBanner); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine("server shutting down")
			return ctx.Err()
		default:
		}

		if err := conn.WritePrompt("> "); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		parsed := command.Parse(line)
		if parsed.Command == "" {
			continue
		}
		if cmd, ok := h.commands.Resolve(parsed.Command); ok && cmd.Handler == command.HandlerQuit {
			_ = conn.WriteLine("bye")
			logger.Info("client quit", zap.Duration("session_duration", time.Since(start)))
			return nil
		}

		out, err := h.Dispatch(ctx, parsed.Command, parsed.Args)
		if err != nil {
			logger.Debug("command failed", zap.String("command", parsed.Command), zap.Error(err))
			out = "error: " + errorMessage(err)
		}
		if err := conn.WriteLine(out); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
}

// Dispatch resolves name through the command registry, runs the command, and
// returns its rendered output.
//
// Postcondition: Returns the output text, or an error to show to the client.
func (h *RollHandler) Dispatch(ctx context.Context, name string, args []string) (string, error) {
	cmd, ok := h.commands.Resolve(strings.ToLower(name))
	if !ok {
		return "", usage("unknown command %q, type 'help'", name)
	}
	switch cmd.Handler {
	case command.HandlerRoll:
		return h.roll(args)
	case command.HandlerStats:
		return h.stats(args)
	case command.HandlerDice:
		return RenderCatalog(h.catalog.All()), nil
	case command.HandlerAnalyze:
		return h.analyze(args)
	case command.HandlerHistory:
		return h.recent(ctx, args)
	case command.HandlerScript:
		return h.script(ctx, args)
	case command.HandlerHelp:
		return strings.ReplaceAll(h.commands.Help(h.available), "\n", "\r\n"), nil
	default:
		return "", usage("%s is not available here", cmd.Name)
	}
}

// available hides commands whose backing feature is disabled.
func (h *RollHandler) available(cmd *command.Command) bool {
	switch cmd.Handler {
	case command.HandlerHistory:
		return h.history != nil
	case command.HandlerScript:
		return h.scripts != nil
	}
	return true
}

func (h *RollHandler) roll(args []string) (string, error) {
	n := h.defaultN
	if len(args) > 1 {
		return "", usage("roll [NdF]")
	}
	if len(args) == 1 {
		parsed, err := dice.ParseNotation(args[0])
		if err != nil {
			return "", err
		}
		n = parsed
	}
	if err := checkLimits(n, maxRollCount); err != nil {
		return "", err
	}
	result, err := h.roller.RollNotation(n)
	if err != nil {
		return "", err
	}
	return RenderRoll(result, h.color), nil
}

// checkLimits bounds client-supplied notation before it is rolled.
func checkLimits(n dice.Notation, maxCount int) error {
	if n.Count > maxCount {
		return usage("at most %d rolls at once", maxCount)
	}
	if n.Faces > maxFaces {
		return usage("at most %d faces", maxFaces)
	}
	return nil
}

func (h *RollHandler) stats(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage("stats <faces|id>")
	}
	name, d, err := h.lookupDie(args[0])
	if err != nil {
		return "", err
	}
	return RenderStats(name, d), nil
}

// lookupDie resolves a catalog ID or a literal face count.
func (h *RollHandler) lookupDie(arg string) (string, dice.Die, error) {
	if entry, d, err := h.catalog.Get(arg); err == nil {
		return entry.Name, d, nil
	}
	faces, err := dice.ParseFaceCount(arg)
	switch {
	case errors.Is(err, dice.ErrType):
		return "", dice.Die{}, err
	case err != nil:
		return "", dice.Die{}, usage("%q is neither a face count nor a catalog die", arg)
	case faces > maxFaces:
		return "", dice.Die{}, usage("at most %d faces", maxFaces)
	}
	d, err := dice.NewDie(faces)
	if err != nil {
		return "", dice.Die{}, err
	}
	return d.String(), d, nil
}

func (h *RollHandler) analyze(args []string) (string, error) {
	if len(args) != 1 {
		return "", usage("analyze <NdF>")
	}
	n, err := dice.ParseNotation(args[0])
	if err != nil {
		return "", err
	}
	if err := checkLimits(n, maxAnalyzeCount); err != nil {
		return "", err
	}
	d, err := n.Die()
	if err != nil {
		return "", err
	}
	values, err := d.Roll(n.Count, h.roller.Source())
	if err != nil {
		return "", err
	}
	summary, err := analysis.Summarize(d, values)
	if err != nil {
		return "", err
	}
	return RenderSummary(n, summary), nil
}

func (h *RollHandler) recent(ctx context.Context, args []string) (string, error) {
	if h.history == nil {
		return "", usage("roll history is disabled")
	}
	limit := defaultHistory
	if len(args) > 1 {
		return "", usage("history [n]")
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 || n > maxHistory {
			return "", usage("history count must be 1-%d", maxHistory)
		}
		limit = n
	}
	records, err := h.history.Recent(ctx, limit)
	if err != nil {
		h.logger.Error("loading roll history", zap.Error(err))
		return "", errors.New("roll history is unavailable")
	}
	return RenderHistory(records), nil
}

func (h *RollHandler) script(ctx context.Context, args []string) (string, error) {
	if h.scripts == nil {
		return "", usage("scripting is disabled")
	}
	if len(args) < 2 {
		return "", usage("script <set> <fn> [args...]")
	}
	luaArgs := make([]lua.LValue, 0, len(args)-2)
	for _, a := range args[2:] {
		if f, err := strconv.ParseFloat(a, 64); err == nil {
			luaArgs = append(luaArgs, lua.LNumber(f))
			continue
		}
		luaArgs = append(luaArgs, lua.LString(a))
	}
	ret, err := h.scripts.Call(ctx, args[0], args[1], luaArgs...)
	if err != nil {
		return "", err
	}
	return RenderScriptResult(ret), nil
}

// errorMessage strips the usage marker from client-facing errors.
func errorMessage(err error) string {
	if errors.Is(err, errUsage) {
		return strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	}
	return err.Error()
}
