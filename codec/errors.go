package codec

import "github.com/onart/glsl-video-filter/errs"

// Kind/Error are aliased from errs so existing call sites in this
// package (newError(KindIO, ...), etc.) read naturally while the
// taxonomy itself stays in a dependency-free shared package — graphics
// and pipeline tag their own errors the same way without importing
// codec just for an error-kind enum.
type Kind = errs.Kind

const (
	KindIO       = errs.KindIO
	KindDemux    = errs.KindDemux
	KindEncode   = errs.KindEncode
	KindShader   = errs.KindShader
	KindGraphics = errs.KindGraphics
	KindPipeline = errs.KindPipeline
)

// Error is the codec package's alias of the shared tagged error type.
type Error = errs.Error

func newError(kind Kind, stage string, err error) *Error {
	return errs.New(kind, stage, err)
}
