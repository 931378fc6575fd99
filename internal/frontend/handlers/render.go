package handlers

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/polydie/internal/analysis"
	"github.com/cory-johannsen/polydie/internal/frontend/telnet"
	"github.com/cory-johannsen/polydie/internal/game/catalog"
	"github.com/cory-johannsen/polydie/internal/game/dice"
	"github.com/cory-johannsen/polydie/internal/scripting"
	"github.com/cory-johannsen/polydie/internal/storage/postgres"
)

// RenderRoll formats a roll as "3d6 → [1 4 6] = 11". With color set, faces
// equal to the die's maximum are green and those equal to 1 are red.
func RenderRoll(result dice.RollResult, color bool) string {
	if !color || result.Faces < 2 {
		return result.String()
	}
	parts := make([]string, len(result.Values))
	for i, v := range result.Values {
		s := strconv.Itoa(v)
		switch v {
		case result.Faces:
			s = telnet.Colorize(telnet.Green, s)
		case 1:
			s = telnet.Colorize(telnet.Red, s)
		}
		parts[i] = s
	}
	return fmt.Sprintf("%s → [%s] = %s", result.Notation, strings.Join(parts, " "),
		telnet.Colorize(telnet.Bold, strconv.Itoa(result.Total())))
}

// RenderStats formats a die's statistics on one line.
func RenderStats(name string, d dice.Die) string {
	return fmt.Sprintf("%s: faces=%d min=%d max=%d mean=%.2f p=%.4f",
		name, d.FaceCount(), d.MinValue(), d.MaxValue(), d.MeanValue(), d.Probability())
}

// RenderCatalog lists entries one per line.
func RenderCatalog(entries []*catalog.Entry) string {
	if len(entries) == 0 {
		return "catalog is empty"
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%-6s %-24s %v faces", e.ID, e.Name, e.Faces))
	}
	return strings.Join(lines, "\r\n")
}

// RenderSummary formats an analysis of n.
func RenderSummary(n dice.Notation, s analysis.Summary) string {
	verdict := "fair"
	if !s.Uniform(0.01) {
		verdict = "suspect"
	}
	return fmt.Sprintf("%s: n=%d mean=%.3f expected=%.3f sd=%.3f median=%.1f chi2=%.3f df=%d p=%.4f %s",
		n, s.Count, s.Mean, s.ExpectedMean, s.StdDev, s.Median, s.ChiSquare, s.DegreesOfFreedom, s.PValue, verdict)
}

// RenderHistory lists recorded rolls oldest last.
func RenderHistory(records []postgres.RollRecord) string {
	if len(records) == 0 {
		return "no rolls recorded"
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		res := dice.RollResult{Notation: r.Notation, Faces: r.Faces, Values: r.Values}
		lines = append(lines, r.CreatedAt.UTC().Format("2006-01-02 15:04:05")+"  "+res.String())
	}
	return strings.Join(lines, "\r\n")
}

// RenderScriptResult formats a Lua return value.
func RenderScriptResult(v lua.LValue) string {
	return "=> " + scripting.Format(v)
}
