package graphics

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	translatorOnce sync.Once
	translator     *gst.ShaderTranslator
	translatorErr  error
)

func getTranslator() (*gst.ShaderTranslator, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, translatorErr
}

// TranslateFragmentShader validates and retargets a user-supplied
// fragment shader through ANGLE's translator (via goshadertranslator),
// matching renderer.go's GetRenderPass: desktop core-profile contexts
// want GLSL 330, the Linux headless GLES3 path wants ESSL. A
// translation failure (the user's shader fails to compile against the
// WebGL2 spec ANGLE validates against) is reported as a Kind=Shader
// error the CLI can map to its own exit code.
func TranslateFragmentShader(source string, gles bool) (string, error) {
	t, err := getTranslator()
	if err != nil {
		return "", fmt.Errorf("graphics: shader translator unavailable: %w", err)
	}
	outputFormat := gst.OutputFormatGLSL330
	if gles {
		outputFormat = gst.OutputFormatESSL
	}
	result, err := t.TranslateShader(source, "fragment", gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return "", newShaderError("translate fragment shader", err)
	}
	return result.Code, nil
}
