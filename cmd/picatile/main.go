// Command picatile converts images into pre-tiled texture files.
//
// Each input is decoded, resampled to power-of-two dimensions that fit
// the GPU texture limits, converted to the 8x8 Morton layout and written
// to the output directory as <name>.pict.
//
// Usage:
//
//	picatile [flags] image...
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/pica"
	"github.com/gogpu/pica/tilefile"
)

// config holds the command line settings.
type config struct {
	outDir  string
	maxEdge int
	noFit   bool
	verify  bool
	preview bool
}

func main() {
	var (
		cfg     config
		jobs    = flag.Int("j", runtime.NumCPU(), "number of files converted concurrently")
		logFile = flag.String("log", "", "also write logs to this file, rotated")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.StringVar(&cfg.outDir, "out", ".", "output directory")
	flag.IntVar(&cfg.maxEdge, "max", pica.MaxTextureWidth, "maximum texture edge in texels")
	flag.BoolVar(&cfg.noFit, "nofit", false, "pad to whole tiles instead of resampling to powers of two")
	flag.BoolVar(&cfg.verify, "verify", false, "upload each texture to a headless context and compare the readback")
	flag.BoolVar(&cfg.preview, "preview", false, "write a PNG decoded from the tiled data next to each output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: picatile [flags] image...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger, closeLog := newLogger(*logFile, *verbose)
	defer closeLog()
	pica.SetLogger(logger)

	if err := run(context.Background(), logger, cfg, flag.Args(), *jobs); err != nil {
		logger.Error("conversion failed", "err", err)
		closeLog()
		os.Exit(1)
	}
}

// newLogger logs to stderr and, if path is set, to a rotated file.
func newLogger(path string, verbose bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(os.Stderr, rot)
		closeFn = func() { _ = rot.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn
}

// run converts every input, at most jobs at a time. The first error
// cancels the remaining conversions.
func run(ctx context.Context, logger *slog.Logger, cfg config, inputs []string, jobs int) error {
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for _, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := convert(cfg, in)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			logger.Info("converted", "in", in, "out", out)
			return nil
		})
	}
	return g.Wait()
}

// convert turns one image file into a tile file and returns its path.
func convert(cfg config, path string) (string, error) {
	img, err := decodeImage(path)
	if err != nil {
		return "", err
	}

	var bmp *pica.Bitmap
	if cfg.noFit {
		bmp = pica.BitmapFromImage(img).PadToTiles()
	} else {
		bmp = pica.BitmapFromImage(fitImage(img, cfg.maxEdge))
	}

	tex, err := tilefile.FromBitmap(bmp)
	if err != nil {
		return "", err
	}
	tex.Source = filepath.Base(path)

	if cfg.verify {
		if err := verify(bmp, tex); err != nil {
			return "", err
		}
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(cfg.outDir, base+".pict")
	if err := writeTileFile(out, tex); err != nil {
		return "", err
	}

	if cfg.preview {
		decoded, err := tex.Bitmap()
		if err != nil {
			return "", err
		}
		if err := imaging.Save(decoded.ToImage(), filepath.Join(cfg.outDir, base+".preview.png")); err != nil {
			return "", fmt.Errorf("write preview: %w", err)
		}
	}
	return out, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func writeTileFile(path string, tex *tilefile.Texture) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return tilefile.Encode(f, tex)
}

// verify uploads bmp through a headless context and checks that both the
// context readback and the tile file texels decode to bmp.
func verify(bmp *pica.Bitmap, tex *tilefile.Texture) error {
	ctx, err := pica.NewContext(
		pica.WithHeadless(),
		pica.WithHeapSize(bmp.Width()*bmp.Height()*4+64<<10),
	)
	if err != nil {
		return err
	}
	defer ctx.Close()

	id, err := ctx.CreateTexture(bmp, 0)
	if err != nil {
		return err
	}
	back, err := ctx.ReadTexture(id)
	if err != nil {
		return err
	}
	fromFile, err := tex.Bitmap()
	if err != nil {
		return err
	}

	for y := range bmp.Height() {
		for x := range bmp.Width() {
			want := bmp.At(x, y)
			if got := back.At(x, y); got != want {
				return fmt.Errorf("verify: context texel (%d,%d) = %#08x, want %#08x", x, y, got, want)
			}
			if got := fromFile.At(x, y); got != want {
				return fmt.Errorf("verify: file texel (%d,%d) = %#08x, want %#08x", x, y, got, want)
			}
		}
	}
	return nil
}
