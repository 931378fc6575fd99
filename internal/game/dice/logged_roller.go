package dice

import "go.uber.org/zap"

// Recorder receives every successful roll made through a Roller.
type Recorder func(RollResult)

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with notation, faces, values, and total.
type Roller struct {
	src      Source
	logger   *zap.Logger
	recorder Recorder
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// WithRecorder returns a copy of r that also passes every RollResult to rec.
func (r *Roller) WithRecorder(rec Recorder) *Roller {
	cp := *r
	cp.recorder = rec
	return &cp
}

// Source returns the randomness provider backing r.
func (r *Roller) Source() Source {
	return r.src
}

// Roll rolls d numRolls times and logs the result at debug level.
//
// Postcondition: result logged; returns RollResult or a KindValue error.
func (r *Roller) Roll(d Die, numRolls int) (RollResult, error) {
	return r.roll(Notation{Count: numRolls, Faces: d.FaceCount()}.String(), d, numRolls)
}

// RollOnce rolls d a single time.
func (r *Roller) RollOnce(d Die) (RollResult, error) {
	return r.Roll(d, 1)
}

// RollNotation rolls the die named by n, n.Count times.
//
// Precondition: n must come from ParseNotation.
func (r *Roller) RollNotation(n Notation) (RollResult, error) {
	d, err := n.Die()
	if err != nil {
		return RollResult{}, err
	}
	notation := n.Raw
	if notation == "" {
		notation = n.String()
	}
	return r.roll(notation, d, n.Count)
}

// RollExpr parses expr and rolls it, logging the result.
//
// Precondition: expr must be a valid dice notation string.
// Postcondition: Returns a RollResult or a parse/roll error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	n, err := ParseNotation(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.RollNotation(n)
}

func (r *Roller) roll(notation string, d Die, numRolls int) (RollResult, error) {
	values, err := d.Roll(numRolls, r.src)
	if err != nil {
		return RollResult{}, err
	}
	result := RollResult{
		Notation: notation,
		Faces:    d.FaceCount(),
		Values:   values,
	}
	r.logger.Debug("dice roll",
		zap.String("notation", result.Notation),
		zap.Int("faces", result.Faces),
		zap.Ints("values", result.Values),
		zap.Int("total", result.Total()),
	)
	if r.recorder != nil {
		r.recorder(result)
	}
	return result, nil
}
