package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/onart/glsl-video-filter/codec"
	"github.com/onart/glsl-video-filter/errs"
	"github.com/onart/glsl-video-filter/graphics"
	"github.com/onart/glsl-video-filter/options"
	"github.com/onart/glsl-video-filter/pipeline"
	"github.com/onart/glsl-video-filter/section"
)

// Exit codes, spec.md §6: 0 success/help, 1 missing file, 2 shader
// compile fail, 3 demux/stream-info fail, 4 output-context fail, 5
// stream texture fail, 6 decoder fail.
const (
	exitOK            = 0
	exitMissingFile   = 1
	exitShaderCompile = 2
	exitDemux         = 3
	exitOutputContext = 4
	exitGraphics      = 5
	exitDecode        = 6
)

func init() {
	// The GL context is thread-affine in go-gl, exactly as cmd/main.go's
	// init locks the rendering goroutine to its OS thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	sectionsFlag := flag.String("sections", "", "comma-separated start-end microsecond pairs restricting which frames are processed")
	threaded := flag.Bool("threaded", false, "use the per-stage threaded pipeline instead of the single-goroutine inline driver")
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		fmt.Println("usage: vidfilter input_video filter_fragment_shader output_video [new_width] [new_height]")
		flag.PrintDefaults()
		return exitOK
	}

	inputPath, shaderPath, outputPath := args[0], args[1], args[2]
	reqWidth, reqHeight := 0, 0
	if len(args) > 3 {
		fmt.Sscanf(args[3], "%d", &reqWidth)
	}
	if len(args) > 4 {
		fmt.Sscanf(args[4], "%d", &reqHeight)
	}

	if exe, err := os.Executable(); err == nil {
		os.Chdir(filepath.Dir(exe))
	}
	setConsoleCodePage()

	shaderSource, err := os.ReadFile(shaderPath)
	if err != nil {
		log.Printf("shader (read): %v", err)
		return exitMissingFile
	}

	sections, err := options.ParseSections(*sectionsFlag)
	if err != nil {
		log.Printf("options (sections): %v", err)
		return exitMissingFile
	}

	dec, err := codec.NewDecoder(inputPath)
	if err != nil {
		log.Printf("decode (open): %v", err)
		var tagged *errs.Error
		if errors.As(err, &tagged) && tagged.Kind == errs.KindIO {
			return exitMissingFile
		}
		return exitDemux
	}
	defer dec.Close()

	width, height := options.ResolveDimensions(dec.Width(), dec.Height(), reqWidth, reqHeight)

	normalizedSections, err := section.Normalize(sections, dec.DurationUS())
	if err != nil {
		log.Printf("options (sections): %v", err)
		return exitDemux
	}

	ctx, err := graphics.NewContext(width, height)
	if err != nil {
		log.Printf("graphics (context): %v", err)
		return exitGraphics
	}
	defer ctx.Shutdown()
	ctx.MakeCurrent()

	filter, err := pipeline.NewFrameFilter(string(shaderSource), ctx.IsGLES(), width, height, 2)
	if err != nil {
		var tagged *errs.Error
		if errors.As(err, &tagged) && tagged.Kind == errs.KindGraphics {
			log.Printf("graphics (filter setup): %v", err)
			return exitGraphics
		}
		log.Printf("shader (compile): %v", err)
		return exitShaderCompile
	}
	defer filter.Close()

	enc, err := codec.NewEncoder(outputPath, dec.SourceParams(), width, height, dec.VideoStreamIndex(), dec.Streams())
	if err != nil {
		log.Printf("encode (open output): %v", err)
		return exitOutputContext
	}
	defer enc.Close()

	if *threaded {
		if err := pipeline.RunThreaded(dec, enc, filter, normalizedSections, width, height, 4); err != nil {
			log.Printf("pipeline (threaded): %v", err)
			return exitDecode
		}
		return exitOK
	}

	conv, err := pipeline.NewConverter(dec.PixelFormat(), dec.Width(), dec.Height(), width, height)
	if err != nil {
		log.Printf("decode (converter): %v", err)
		return exitDecode
	}
	defer conv.Close()

	if err := pipeline.RunInline(dec, enc, conv, filter, normalizedSections); err != nil {
		log.Printf("pipeline (inline): %v", err)
		return exitDecode
	}
	return exitOK
}
