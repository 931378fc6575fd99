package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// fractional matches decimal literals such as "4.5" or ".5". Exponents,
// "inf" and "nan" are malformed rather than fractional.
var fractional = regexp.MustCompile(`^[+-]?\d*\.\d+$`)

// ParseFaceCount parses a textual face count.
//
// Postcondition: Returns the integer, an ErrType error for a decimal
// fraction, or an ErrValue error for anything else. The sign is not checked.
func ParseFaceCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err == nil {
		return n, nil
	}
	if fractional.MatchString(s) {
		return 0, typeError("ParseFaceCount", fmt.Sprintf("face_count must be an integer, got %q", s))
	}
	return 0, valueError("ParseFaceCount", fmt.Sprintf("invalid face count %q", s))
}

// Notation is a parsed "NdF" expression: one die of F faces rolled N times.
//
// Invariant: Count >= 0 and Faces >= 0 after a successful ParseNotation.
type Notation struct {
	Raw   string // original input string
	Count int    // number of rolls
	Faces int    // faces on the die
}

// ParseNotation parses a dice notation string into a Notation.
// Supported forms: "d20", "3d6", "0d4", "2d0". Input is case-insensitive and
// surrounding whitespace is ignored.
//
// Postcondition: Returns a Notation, or an error matching ErrValue for
// malformed input and ErrType for a fractional face count.
func ParseNotation(expr string) (Notation, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Notation{}, valueError("ParseNotation", "empty expression")
	}
	s := strings.ToLower(raw)

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Notation{}, valueError("ParseNotation", fmt.Sprintf("missing 'd' in expression %q", raw))
	}

	// Count defaults to 1 when omitted.
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		c, err := strconv.Atoi(countStr)
		if err != nil {
			return Notation{}, valueError("ParseNotation", fmt.Sprintf("invalid roll count in %q", raw))
		}
		if c < 0 {
			return Notation{}, valueError("ParseNotation", fmt.Sprintf("invalid roll count in %q: must be >= 0", raw))
		}
		count = c
	}

	facesStr := s[dIdx+1:]
	faces, err := ParseFaceCount(facesStr)
	if err != nil {
		if KindOf(err) == KindType {
			return Notation{}, typeError("ParseNotation", fmt.Sprintf("face_count must be an integer in %q", raw))
		}
		return Notation{}, valueError("ParseNotation", fmt.Sprintf("invalid face count in %q", raw))
	}
	if faces < 0 {
		return Notation{}, valueError("ParseNotation", fmt.Sprintf("invalid face count in %q: must be >= 0", raw))
	}

	return Notation{Raw: raw, Count: count, Faces: faces}, nil
}

// MustParseNotation parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice notation.
func MustParseNotation(expr string) Notation {
	n, err := ParseNotation(expr)
	if err != nil {
		panic("dice: MustParseNotation failed for expression " + expr + ": " + err.Error())
	}
	return n
}

// Die returns the die the notation rolls.
func (n Notation) Die() (Die, error) {
	return NewDie(n.Faces)
}

// Min returns the lowest total the notation can roll.
//
// Precondition: Faces >= 0.
func (n Notation) Min() int {
	d, err := n.Die()
	if err != nil {
		return 0
	}
	return d.Min(n.Count)
}

// Max returns the highest total the notation can roll.
//
// Precondition: Faces >= 0.
func (n Notation) Max() int {
	d, err := n.Die()
	if err != nil {
		return 0
	}
	return d.Max(n.Count)
}

// Mean returns the expected total of the notation.
//
// Precondition: Faces >= 0.
func (n Notation) Mean() float64 {
	d, err := n.Die()
	if err != nil {
		return 0
	}
	return d.Mean(n.Count)
}

// String returns the canonical "NdF" form.
func (n Notation) String() string {
	return fmt.Sprintf("%dd%d", n.Count, n.Faces)
}
