package dice

import (
	"fmt"
	"math"
)

// probabilityTolerance bounds |probability*effective_face_count - 1|.
const probabilityTolerance = 1e-9

// Die is one die type with faces 1..FaceCount, or a single face valued 0
// when FaceCount is 0. Faces are never materialized; any face count that
// fits in an int is valid.
//
// Invariant: a Die is immutable after construction and safe for concurrent use.
// Invariant: Probability() * EffectiveFaceCount() ≈ 1.0.
type Die struct {
	faceCount   int
	min         int
	max         int
	mean        float64
	probability float64
}

// NewDie creates a die with faceCount faces.
//
// Precondition: faceCount >= 0.
// Postcondition: Returns a fully initialized Die or a KindValue error.
func NewDie(faceCount int) (Die, error) {
	if faceCount < 0 {
		return Die{}, valueError("NewDie", "face_count must be >= 0")
	}

	d := Die{faceCount: faceCount}
	if faceCount > 0 {
		d.min = 1
		d.max = faceCount
	}
	d.mean = (float64(d.min) + float64(d.max)) / 2
	d.probability = 1.0 / float64(d.EffectiveFaceCount())

	if sum := d.probability * float64(d.EffectiveFaceCount()); math.Abs(sum-1.0) > probabilityTolerance {
		panic(fmt.Sprintf("dice: probability invariant violated: %d faces sum to %v", faceCount, sum))
	}
	return d, nil
}

// NewDieFromValue creates a die from a dynamically typed face count, as
// decoded from YAML, Lua, or other untyped input.
//
// Any Go integer kind is accepted. nil and every non-integer type, including
// floats with a whole value, produce a KindType error.
//
// Postcondition: Returns a fully initialized Die, a KindType error, or a KindValue error.
func NewDieFromValue(v any) (Die, error) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int8:
		n = int(x)
	case int16:
		n = int(x)
	case int32:
		n = int(x)
	case int64:
		if x > math.MaxInt || x < math.MinInt {
			return Die{}, valueError("NewDie", "face_count out of range")
		}
		n = int(x)
	case uint:
		if x > math.MaxInt {
			return Die{}, valueError("NewDie", "face_count out of range")
		}
		n = int(x)
	case uint8:
		n = int(x)
	case uint16:
		n = int(x)
	case uint32:
		if uint64(x) > math.MaxInt {
			return Die{}, valueError("NewDie", "face_count out of range")
		}
		n = int(x)
	case uint64:
		if x > math.MaxInt {
			return Die{}, valueError("NewDie", "face_count out of range")
		}
		n = int(x)
	default:
		return Die{}, typeError("NewDie", "face_count must be an integer")
	}
	return NewDie(n)
}

// MustNewDie is like NewDie but panics on error. Useful for package-level fixtures.
//
// Precondition: faceCount >= 0.
func MustNewDie(faceCount int) Die {
	d, err := NewDie(faceCount)
	if err != nil {
		panic(err)
	}
	return d
}

// FaceCount returns the number of declared faces.
func (d Die) FaceCount() int { return d.faceCount }

// EffectiveFaceCount returns the number of rollable faces: FaceCount, or 1
// for the degenerate die.
func (d Die) EffectiveFaceCount() int {
	if d.faceCount == 0 {
		return 1
	}
	return d.faceCount
}

// Faces returns the declared faces 1..FaceCount. It is empty for the
// degenerate die. The slice is built on each call and has FaceCount elements,
// so callers holding untrusted dice must bound FaceCount first.
func (d Die) Faces() []int {
	out := make([]int, d.faceCount)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Values returns the rollable faces: Faces() normally, [0] for the
// degenerate die.
func (d Die) Values() []int {
	if d.faceCount == 0 {
		return []int{0}
	}
	return d.Faces()
}

// Contains reports whether v is a rollable face of d.
func (d Die) Contains(v int) bool {
	return v >= d.min && v <= d.max
}

// MinValue returns the lowest face value.
func (d Die) MinValue() int { return d.min }

// MaxValue returns the highest face value.
func (d Die) MaxValue() int { return d.max }

// MeanValue returns the midpoint of MinValue and MaxValue.
func (d Die) MeanValue() float64 { return d.mean }

// Probability returns the chance of any single face.
func (d Die) Probability() float64 { return d.probability }

// Min returns the lowest possible sum of numRolls rolls.
func (d Die) Min(numRolls int) int { return numRolls * d.min }

// Max returns the highest possible sum of numRolls rolls.
func (d Die) Max(numRolls int) int { return numRolls * d.max }

// Mean returns the expected sum of numRolls rolls.
func (d Die) Mean(numRolls int) float64 { return float64(numRolls) * d.mean }

// Roll draws numRolls faces uniformly at random, with replacement, using src.
//
// Precondition: src must be non-nil; d must come from NewDie.
// Postcondition: len(result) == numRolls and every element is in Values(),
// or a KindValue error when numRolls < 0. numRolls == 0 yields an empty slice.
func (d Die) Roll(numRolls int, src Source) ([]int, error) {
	if numRolls < 0 {
		return nil, valueError("Roll", "num_rolls must be >= 0")
	}
	if d.probability == 0 {
		return nil, valueError("Roll", "die has no faces; construct it with NewDie")
	}
	out := make([]int, numRolls)
	if d.faceCount == 0 {
		return out, nil
	}
	for i := range out {
		out[i] = d.min + src.Intn(d.faceCount)
	}
	return out, nil
}

// RollOnce rolls the die a single time. The result is always a one-element slice.
//
// Precondition: src must be non-nil.
func (d Die) RollOnce(src Source) ([]int, error) {
	return d.Roll(1, src)
}

// String returns the die in "dN" notation.
func (d Die) String() string {
	return fmt.Sprintf("d%d", d.faceCount)
}
