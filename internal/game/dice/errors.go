package dice

import "errors"

// Kind classifies a dice error.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors not produced by this package.
	KindUnknown Kind = iota
	// KindType marks input of the wrong type, e.g. a float face count.
	KindType
	// KindValue marks input of the right type but outside the accepted range.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrType  = &Error{Kind: KindType, Msg: "type error"}
	ErrValue = &Error{Kind: KindValue, Msg: "value error"}
)

// Error is the error type returned by Die construction, rolling, and notation parsing.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "NewDie"
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "dice: " + e.Msg
	}
	return "dice: " + e.Op + ": " + e.Msg
}

// Is reports whether target is a dice error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first dice error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func typeError(op, msg string) error {
	return &Error{Kind: KindType, Op: op, Msg: msg}
}

func valueError(op, msg string) error {
	return &Error{Kind: KindValue, Op: op, Msg: msg}
}
