package desktop

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"audiosphere/internal/audio"
	"audiosphere/internal/config"
	"audiosphere/internal/gpu"
	"audiosphere/internal/metrics"
	"audiosphere/internal/particles"
	"audiosphere/internal/scene"
)

// Run opens the window and drives the render loop until the window closes
// or ctx is cancelled. Startup failures release everything acquired so far.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window, err := initWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer glfw.Terminate()
	defer window.Destroy()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	log.Info("opengl ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	backend, err := gpu.NewBackend(cfg.Particles.Seed)
	if err != nil {
		return err
	}
	defer backend.Release()

	renderer, err := gpu.NewRenderer(window.GetFramebufferSize)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	cell := &audio.Cell{}
	analyzer := audio.NewAnalyzer(newSource(cfg.Audio), cell, log, analyzerOptions(cfg.Audio)...)
	defer analyzer.Stop()

	pixelRatio := func() float64 {
		winW, _ := window.GetSize()
		fbW, _ := window.GetFramebufferSize()
		return scene.PixelRatio(fbW, winW, cfg.Window.MaxPixelRatio)
	}

	composer := scene.NewComposer(log)
	opts := sceneOptions(cfg)
	opts.Width, opts.Height = window.GetSize()
	opts.PixelRatio = pixelRatio()
	err = composer.Init(opts, scene.Deps{
		Backend:  backend,
		Sampler:  particles.NewUniformBall(cfg.Particles.Radius, uint64(cfg.Particles.Seed)),
		Renderer: renderer,
		Clock:    newGLFWClock(),
		Audio:    cell,
	})
	if err != nil {
		return err
	}
	defer composer.Close()
	controls := scene.NewOrbitControls(composer.Camera())
	composer.SetControls(controls)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	b := &bridge{
		loop:        composer,
		controls:    controls,
		log:         log.Named("desktop"),
		pixelRatio:  pixelRatio,
		startAudio:  analyzer.Start,
		closeWindow: func() { window.SetShouldClose(true) },
	}
	bus := NewEventBus()
	b.attach(bus)
	bindCallbacks(window, bus)

	g.Go(func() error { return analyzer.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			if err := metrics.Serve(gctx, cfg.MetricsAddr, log); err != nil {
				log.Warn("metrics endpoint stopped", zap.Error(err))
			}
			return nil
		})
	}
	if cfg.Audio.Autostart {
		bus.Emit(Event{Type: EventClick})
	} else if cfg.Audio.Source != config.SourceNone {
		log.Info("click the window to start audio")
	}

	for !window.ShouldClose() {
		glfw.PollEvents()
		if gctx.Err() != nil {
			break
		}
		bus.Emit(Event{Type: EventTick})
		window.SwapBuffers()
	}

	cancel()
	return g.Wait()
}

// bindCallbacks forwards glfw input to the bus. glfw invokes them from
// PollEvents, on the render thread.
func bindCallbacks(window *glfw.Window, bus *EventBus) {
	ptr := newPointer()

	window.SetSizeCallback(func(_ *glfw.Window, w, h int) {
		bus.Emit(Event{Type: EventResize, Width: w, Height: h})
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, _, _ int) {
		ww, wh := w.GetSize()
		bus.Emit(Event{Type: EventResize, Width: ww, Height: wh})
	})
	window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		var b Button
		switch button {
		case glfw.MouseButtonLeft:
			b = ButtonRotate
		case glfw.MouseButtonRight:
			b = ButtonPan
		default:
			return
		}
		switch action {
		case glfw.Press:
			ptr.press(b)
		case glfw.Release:
			if ptr.release(b) {
				bus.Emit(Event{Type: EventClick, Button: b})
			}
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		_, h := w.GetSize()
		if e, ok := ptr.move(x, y, h); ok {
			bus.Emit(e)
		}
	})
	window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		bus.Emit(Event{Type: EventScroll, Y: yoff})
	})
	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			bus.Emit(Event{Type: EventClose})
		}
	})
}
