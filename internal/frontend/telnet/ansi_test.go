package telnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[32m20\033[0m", Colorize(Green, "20"))
}

func TestStripANSI(t *testing.T) {
	input := "[\033[31m1\033[0m 4 \033[1m\033[32m6\033[0m]"
	assert.Equal(t, "[1 4 6]", StripANSI(input))
	assert.Equal(t, "plain", StripANSI("plain"))
	assert.Equal(t, "", StripANSI(""))
}

func TestStripANSI_UnterminatedEscapeKept(t *testing.T) {
	assert.Equal(t, "a\033[31", StripANSI("a\033[31"))
}

func TestPropertyStripANSIInvertsColorize(t *testing.T) {
	colors := []string{Red, Green, Yellow, Cyan, Bold}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 \[\]=]{0,50}`).Draw(t, "text")
		color := rapid.SampledFrom(colors).Draw(t, "color")
		assert.Equal(t, text, StripANSI(Colorize(color, text)))
	})
}

func TestPropertyStripANSINeverGrows(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		assert.LessOrEqual(t, len(StripANSI(text)), len(text))
	})
}
