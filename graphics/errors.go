package graphics

import "github.com/onart/glsl-video-filter/errs"

func newShaderError(stage string, err error) *errs.Error {
	return errs.New(errs.KindShader, stage, err)
}

func newGraphicsError(stage string, err error) *errs.Error {
	return errs.New(errs.KindGraphics, stage, err)
}
