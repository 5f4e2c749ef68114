package pipeline

import "github.com/onart/glsl-video-filter/errs"

func newPipelineError(stage string, err error) *errs.Error {
	return errs.New(errs.KindPipeline, stage, err)
}
