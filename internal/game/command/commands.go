// Package command defines the roll server's command set, its alias registry,
// and the line parser that feeds it.
package command

// Categories group commands in help output.
const (
	CategoryDice   = "dice"
	CategoryScript = "script"
	CategorySystem = "system"
)

// Handler identifiers select the session handler for a command.
const (
	HandlerRoll    = "roll"
	HandlerStats   = "stats"
	HandlerDice    = "dice"
	HandlerAnalyze = "analyze"
	HandlerHistory = "history"
	HandlerScript  = "script"
	HandlerHelp    = "help"
	HandlerQuit    = "quit"
)

// Command defines a client-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown in help, e.g. "[NdF]".
	Usage string
	// Help is the one-line description shown in help.
	Help string
	// Category groups the command in help output.
	Category string
	// Handler selects the session handler.
	Handler string
}

// BuiltinCommands returns the roll server's commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "roll", Aliases: []string{"r"}, Usage: "[NdF]", Help: "Roll a die, e.g. roll 3d6 or roll d20", Category: CategoryDice, Handler: HandlerRoll},
		{Name: "stats", Aliases: []string{"st"}, Usage: "<faces|id>", Help: "Show a die's bounds, mean and face probability", Category: CategoryDice, Handler: HandlerStats},
		{Name: "dice", Aliases: []string{"catalog"}, Help: "List the dice catalog", Category: CategoryDice, Handler: HandlerDice},
		{Name: "analyze", Aliases: []string{"an"}, Usage: "<NdF>", Help: "Roll and test the sample against a fair die", Category: CategoryDice, Handler: HandlerAnalyze},
		{Name: "history", Aliases: []string{"hist"}, Usage: "[n]", Help: "Show the most recent recorded rolls", Category: CategoryDice, Handler: HandlerHistory},
		{Name: "script", Aliases: []string{"lua"}, Usage: "<set> <fn> [args...]", Help: "Call a Lua function", Category: CategoryScript, Handler: HandlerScript},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit"}, Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
	}
}
