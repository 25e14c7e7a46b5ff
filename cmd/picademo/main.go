// Command picademo runs a headless frame loop that creates, binds and
// deletes textures and buffers, and reports how the deferred deletion
// keeps the linear heap in check.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/gogpu/pica"
)

type soakConfig struct {
	frames    int
	churn     int // textures created and deleted per frame
	live      int // textures kept alive at once
	statEvery int
	seed      uint64
}

func main() {
	var (
		cfg      soakConfig
		window   = flag.Uint("window", 4, "safety window in frames")
		heap     = flag.Int("heap", 4<<20, "linear heap size in bytes")
		headless = flag.Bool("headless", false, "skip the noop HAL device")
		verbose  = flag.Bool("v", false, "log every resource event")
	)
	flag.IntVar(&cfg.frames, "frames", 600, "frames to run")
	flag.IntVar(&cfg.churn, "churn", 4, "textures replaced per frame")
	flag.IntVar(&cfg.live, "live", 32, "textures alive at once")
	flag.IntVar(&cfg.statEvery, "stats", 60, "log stats every N frames")
	flag.Uint64Var(&cfg.seed, "seed", 1, "random seed")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	pica.SetLogger(logger)

	opts := []pica.Option{
		pica.WithSafetyWindow(uint32(*window)), //nolint:gosec // G115: flag value, small
		pica.WithHeapSize(*heap),
	}
	if *headless {
		opts = append(opts, pica.WithHeadless())
	}
	ctx, err := pica.NewContext(opts...)
	if err != nil {
		logger.Error("open context", "err", err)
		os.Exit(1)
	}
	defer ctx.Close()

	stats, err := soak(ctx, cfg, logger)
	if err != nil {
		logger.Error("soak failed", "err", err, "stats", stats.String())
		ctx.Close()
		os.Exit(1)
	}
	fmt.Println(stats)
}

// soak runs cfg.frames frames against ctx. Each frame replaces cfg.churn
// textures, binds every live texture and refills a dynamic vertex buffer.
func soak(ctx *pica.Context, cfg soakConfig, logger *slog.Logger) (pica.Stats, error) {
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))

	quads, err := ctx.CreateIndexBuffer(6*64, func(idx []uint16) {
		for i := 0; i+6 <= len(idx); i += 6 {
			v := uint16(i / 6 * 4) //nolint:gosec // G115: bounded by 64 quads
			copy(idx[i:], []uint16{v, v + 1, v + 2, v + 2, v + 3, v})
		}
	})
	if err != nil {
		return ctx.Stats(), err
	}
	verts, err := ctx.CreateDynamicVertexBuffer(pica.VertexTextured, 4*64)
	if err != nil {
		return ctx.Stats(), err
	}
	defer ctx.DeleteBuffer(&verts)

	live := make([]pica.ResourceID, 0, cfg.live)
	defer func() {
		for i := range live {
			ctx.DeleteTexture(&live[i])
		}
	}()

	for f := range cfg.frames {
		ctx.BeginFrame()

		for range cfg.churn {
			if len(live) == cfg.live {
				ctx.DeleteTexture(&live[0])
				live = live[1:]
			}
			id, err := ctx.CreateTexture(randomBitmap(rng), pica.TextureFlags(rng.IntN(2)))
			if err != nil {
				ctx.EndFrame()
				return ctx.Stats(), fmt.Errorf("frame %d: %w", f, err)
			}
			live = append(live, id)
		}

		data := ctx.LockBuffer(verts)
		for i := range data {
			data[i] = byte(rng.Uint32())
		}
		ctx.UnlockBuffer(verts)
		ctx.BindIndexBuffer(quads)
		for _, id := range live {
			ctx.BindTexture(id)
		}
		// Null binds fall back to the default texture.
		ctx.BindTexture(pica.NullResource)

		ctx.EndFrame()

		if cfg.statEvery > 0 && (f+1)%cfg.statEvery == 0 {
			logger.Info("soak", "stats", ctx.Stats().String())
		}
	}
	return ctx.Stats(), nil
}

// randomBitmap returns a tile-aligned bitmap of random size and color.
func randomBitmap(rng *rand.Rand) *pica.Bitmap {
	w := pica.TileSize << rng.IntN(5)
	h := pica.TileSize << rng.IntN(5)
	bmp := pica.NewBitmap(w, h)
	bmp.Fill(rng.Uint32() | 0xFF)
	return bmp
}
