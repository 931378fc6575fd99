package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/polydie/internal/game/dice"
)

// Per-call limits on script-supplied sizes.
const (
	MaxRollCount = 1000
	MaxFaces     = 1_000_000
)

// RegisterModules registers the dice and log Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: dice and log globals are defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	diceTbl := L.NewTable()
	L.SetField(diceTbl, "roll", L.NewFunction(m.luaRoll))
	L.SetField(diceTbl, "stats", L.NewFunction(m.luaStats))
	L.SetField(diceTbl, "notation", L.NewFunction(m.luaNotation))
	L.SetGlobal("dice", diceTbl)

	logTbl := L.NewTable()
	L.SetField(logTbl, "debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	L.SetField(logTbl, "info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(logTbl, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetGlobal("log", logTbl)
}

// checkDie builds a die from argument n. Lua has one number type, so whole
// numbers are integers and everything else is rejected.
func checkDie(L *lua.LState, n int) dice.Die {
	num, ok := L.Get(n).(lua.LNumber)
	if !ok || float64(num) != math.Trunc(float64(num)) || math.IsInf(float64(num), 0) {
		L.RaiseError("dice: NewDie: face_count must be an integer")
		return dice.Die{}
	}
	if num > MaxFaces {
		L.RaiseError("dice: at most %d faces", MaxFaces)
		return dice.Die{}
	}
	d, err := dice.NewDie(int(num))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return dice.Die{}
	}
	return d
}

// checkCount reads the optional roll count at argument n, defaulting to 1.
func checkCount(L *lua.LState, n int) int {
	num := L.OptNumber(n, 1)
	if float64(num) != math.Trunc(float64(num)) {
		L.RaiseError("dice: num_rolls must be an integer")
		return 0
	}
	if num > MaxRollCount {
		L.RaiseError("dice: at most %d rolls at once", MaxRollCount)
		return 0
	}
	if num < 0 {
		// Roll reports the negative-count error.
		return -1
	}
	return int(num)
}

func intArray(L *lua.LState, values []int) *lua.LTable {
	tbl := L.CreateTable(len(values), 0)
	for _, v := range values {
		tbl.Append(lua.LNumber(v))
	}
	return tbl
}

// luaRoll implements dice.roll(faces[, n]) → array of n face values.
func (m *Manager) luaRoll(L *lua.LState) int {
	d := checkDie(L, 1)
	count := checkCount(L, 2)
	result, err := m.roller.Roll(d, count)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(intArray(L, result.Values))
	return 1
}

// luaStats implements dice.stats(faces) → {faces, min, max, mean, probability}.
func (m *Manager) luaStats(L *lua.LState) int {
	d := checkDie(L, 1)
	tbl := L.NewTable()
	L.SetField(tbl, "faces", lua.LNumber(d.FaceCount()))
	L.SetField(tbl, "min", lua.LNumber(d.MinValue()))
	L.SetField(tbl, "max", lua.LNumber(d.MaxValue()))
	L.SetField(tbl, "mean", lua.LNumber(d.MeanValue()))
	L.SetField(tbl, "probability", lua.LNumber(d.Probability()))
	L.Push(tbl)
	return 1
}

// luaNotation implements dice.notation(expr) → {notation, values, total}.
func (m *Manager) luaNotation(L *lua.LState) int {
	n, err := dice.ParseNotation(L.CheckString(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if n.Count > MaxRollCount {
		L.RaiseError("dice: at most %d rolls at once", MaxRollCount)
		return 0
	}
	if n.Faces > MaxFaces {
		L.RaiseError("dice: at most %d faces", MaxFaces)
		return 0
	}
	result, err := m.roller.RollNotation(n)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	tbl := L.NewTable()
	L.SetField(tbl, "notation", lua.LString(result.Notation))
	L.SetField(tbl, "values", intArray(L, result.Values))
	L.SetField(tbl, "total", lua.LNumber(result.Total()))
	L.Push(tbl)
	return 1
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}
