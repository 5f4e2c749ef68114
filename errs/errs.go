// Package errs defines the small error-kind taxonomy shared by every
// pipeline stage (codec, graphics, pipeline, cmd), kept in its own
// package with no other dependencies so none of those packages need to
// import each other just to classify an error. The taxonomy is
// informational — for logging and CLI exit-code mapping — not a type
// hierarchy callers switch on.
package errs

// Kind classifies which stage a failure originated in.
type Kind int

const (
	KindIO Kind = iota
	KindDemux
	KindEncode
	KindShader
	KindGraphics
	KindPipeline
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDemux:
		return "demux/decode"
	case KindEncode:
		return "encode"
	case KindShader:
		return "shader"
	case KindGraphics:
		return "graphics"
	case KindPipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Error wraps a failure with the kind and stage it occurred in,
// matching spec.md's "one log line naming the stage and the error
// string translated by the codec backend."
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + " (" + e.Stage + "): " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a tagged Error.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}
