package engine

import (
	"fmt"

	"github.com/emberglow/ember/engine/assets"
	"github.com/emberglow/ember/engine/config"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/platform"
	"github.com/emberglow/ember/engine/renderer/vulkan"
	"github.com/emberglow/ember/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine wires the platform, the Vulkan backend and the texture system
// together and owns the run loop. All texture mutation happens on the loop's
// goroutine; the asset watcher only feeds it through the reload channel.
type Engine struct {
	currentStage Stage
	config       *config.Config
	isRunning    bool

	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *systems.RendererSystem
	textures     *systems.TextureSystem

	clock    *core.Clock
	lastTime float64

	quit chan struct{}
}

func New(cfg *config.Config) (*Engine, error) {
	core.LogSetLevel(cfg.Application.LogLevel)

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	rs, err := systems.NewRendererSystem(vulkan.New(p))
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	ts, err := systems.NewTextureSystem(&systems.TextureSystemConfig{
		MaxTextureCount:      cfg.Textures.MaxTextureCount,
		DefaultSamplerConfig: cfg.DefaultSamplerConfig(),
	}, am, rs)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		clock:        core.NewClock(),
		platform:     p,
		assetManager: am,
		renderer:     rs,
		textures:     ts,
		isRunning:    true,
		quit:         make(chan struct{}),
	}, nil
}

func (e *Engine) Initialize() error {
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if err := e.platform.Startup(e.config.Application.Name,
		e.config.Application.Width,
		e.config.Application.Height); err != nil {
		return err
	}

	if err := e.renderer.Initialize(e.config); err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}

	if err := e.textures.Initialize(); err != nil {
		return fmt.Errorf("texture system initialization failed: %w", err)
	}

	if err := e.assetManager.Initialize(e.config.Assets.WatchDir); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// TextureSystem exposes the texture manager to the host application.
func (e *Engine) TextureSystem() *systems.TextureSystem {
	return e.textures
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	reloads := e.assetManager.ReloadEvents()

	for e.isRunning {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning = false
			break
		}

		select {
		case <-e.quit:
			e.isRunning = false
			continue
		case ev, ok := <-reloads:
			if ok {
				if err := e.textures.ReloadFromPath(ev.Path); err != nil {
					core.LogError("hot reload of %s failed: %s", ev.Path, err)
				}
			}
		default:
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		core.MetricsUpdate((currentTime - e.lastTime) / 1e9)
		e.lastTime = currentTime
	}

	return nil
}

// RequestShutdown asks the run loop to stop. Safe to call from any goroutine.
func (e *Engine) RequestShutdown() {
	select {
	case <-e.quit:
	default:
		close(e.quit)
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	// Nothing may be destroyed while commands are in flight.
	if err := e.renderer.WaitIdle(); err != nil {
		core.LogWarn(err.Error())
	}
	if err := e.textures.Shutdown(); err != nil {
		return err
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}
