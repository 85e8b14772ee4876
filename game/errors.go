package game

import "fmt"

// ErrorKind classifies why an engine rejected a call.
type ErrorKind int

const (
	// KindArgs marks bad game-setup parameters.
	KindArgs ErrorKind = iota
	// KindPlayer marks a player acting out of turn.
	KindPlayer
	// KindAction marks a move the rules do not allow.
	KindAction
	// KindState marks a violated state invariant, such as acting on a finished game.
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindArgs:
		return "args"
	case KindPlayer:
		return "player"
	case KindAction:
		return "action"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its name.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "args":
		*k = KindArgs
	case "player":
		*k = KindPlayer
	case "action":
		*k = KindAction
	case "state":
		*k = KindState
	default:
		return fmt.Errorf("unknown error kind %q", text)
	}
	return nil
}

// Error is the only error type engines return.
type Error struct {
	Kind ErrorKind `json:"kind"`
	Msg  string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String() + " error"
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, game.ErrAction) works for any action error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is matching by kind.
var (
	ErrArgs   = &Error{Kind: KindArgs}
	ErrPlayer = &Error{Kind: KindPlayer}
	ErrAction = &Error{Kind: KindAction}
	ErrState  = &Error{Kind: KindState}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
