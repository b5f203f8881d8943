/*
Demo application for the Ember texture layer: brings up a window and a
Vulkan context, runs a create/upload/prepare/draw cycle and then idles
until interrupted.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/emberglow/ember/engine"
	"github.com/emberglow/ember/engine/config"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

func main() {
	cfg, err := config.Load("ember.toml")
	if err != nil {
		panic(err)
	}

	e, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	if err := demo(e); err != nil {
		core.LogError("demo cycle failed: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		e.RequestShutdown()
	}()

	if err := e.Run(); err != nil {
		panic(err)
	}

	if err := e.Shutdown(); err != nil {
		panic(err)
	}
}

// demo exercises the full texture lifecycle once: allocate, upload, prepare
// for sampling, draw into a second texture, clean up.
func demo(e *engine.Engine) error {
	ts := e.TextureSystem()
	samplerCfg := metadata.DefaultSamplerConfig()

	handle := ts.GenerateTextureID()
	if err := ts.CreateTexture(handle, 256, 256, metadata.TextureFormatR8G8B8A8Unorm, samplerCfg); err != nil {
		return err
	}
	defer ts.DeleteTexture(handle)

	if err := ts.WriteTexturePixels(handle, gradientPixels(256, 256)); err != nil {
		return err
	}
	if err := ts.PrepareTexture(handle); err != nil {
		return err
	}

	target, err := ts.AcquireWriteableTexture(256, 256, metadata.TextureFormatR8G8B8A8Unorm, samplerCfg)
	if err != nil {
		return err
	}
	defer ts.DeleteTexture(target.ID)

	// Copy the prepared gradient into the writeable target, then make the
	// target samplable too.
	if err := ts.DrawToExistingTexture(target.ID, ts.GetTexture(handle), nil, nil); err != nil {
		return err
	}
	if err := ts.PrepareTexture(target.ID); err != nil {
		return err
	}

	live, transitions, hits, misses := core.MetricsResources()
	core.LogInfo("demo complete: %d live textures, %d transitions, sampler cache %d/%d hits",
		live, transitions, hits, hits+misses)
	return nil
}

func gradientPixels(width, height uint32) []uint8 {
	pixels := make([]uint8, width*height*4)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			i := (y*width + x) * 4
			pixels[i+0] = uint8(x * 255 / width)
			pixels[i+1] = uint8(y * 255 / height)
			pixels[i+2] = 128
			pixels[i+3] = 255
		}
	}
	return pixels
}
