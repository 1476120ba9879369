package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prismengine/prism/internal/component"
	"github.com/prismengine/prism/internal/config"
	"github.com/prismengine/prism/internal/core/ecs"
	coresys "github.com/prismengine/prism/internal/core/system"
	"github.com/prismengine/prism/internal/scene"
	"github.com/prismengine/prism/internal/system"
	"github.com/prismengine/prism/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/prism.toml"
	if p := os.Getenv("PRISM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.Defaults()
	}

	// 2. Init logger
	log, level, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Create world and register component types before any scene IO,
	// so persisted type IDs are stable.
	w := world.New(log)
	if err := component.RegisterBuiltins(w.Types()); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	// 4. System factories, then the configured system set by name
	w.Factory().Register("movement", func() coresys.System {
		return system.NewMovementSystem(w.Registry())
	})
	w.Factory().Register("transform", func() coresys.System {
		return system.NewTransformSystem(w.Registry())
	})
	w.Factory().Register("autosave", func() coresys.System {
		return system.NewAutosaveSystem(w, cfg.Persistence.AutosaveInterval, log)
	})
	for _, name := range cfg.Systems.Enabled {
		if err := w.RegisterSystemByName(name); err != nil {
			return fmt.Errorf("register system %q: %w", name, err)
		}
	}

	// 5. Load the scene, or bootstrap a fresh one with a camera
	if _, err := w.LoadScene(cfg.Persistence.ScenePath); err != nil {
		log.Info("no existing scene, starting fresh",
			zap.String("path", cfg.Persistence.ScenePath), zap.Error(err))
		sc := scene.New("main", w.Registry(), log)
		cam := sc.CreateEntity("Main Camera")
		c := component.NewCamera()
		c.Primary = true
		if ecs.Add(w.Registry(), cam, c) == nil {
			return fmt.Errorf("bootstrap camera entity")
		}
		ecs.Add(w.Registry(), cam, component.NewTransform())
		sc.SetMainCamera(cam)
		w.SetScene(sc, cfg.Persistence.ScenePath)
	}

	w.EnableBackgroundSaving(cfg.Persistence.Background)
	if err := w.Init(); err != nil {
		return fmt.Errorf("init world: %w", err)
	}

	// 6. Watch the config file for live log-level changes
	watcher, err := config.Watch(cfgPath, log, func(next *config.Config) {
		var lv zapcore.Level
		if err := lv.UnmarshalText([]byte(next.Logging.Level)); err == nil {
			level.SetLevel(lv)
		}
	})
	if err != nil {
		log.Warn("config watch unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	// 7. Main loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	log.Info("engine running",
		zap.Duration("tick", cfg.Engine.TickRate),
		zap.String("scene", w.Scene().Name()),
		zap.Bool("background_saving", cfg.Persistence.Background))

	for {
		select {
		case <-ticker.C:
			w.Update(cfg.Engine.TickRate)
			w.Render()
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if err := w.SaveScene(""); err != nil {
				log.Error("final save failed", zap.Error(err))
			}
			// Shutdown drains any queued background saves before returning.
			w.Shutdown()
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	atomic := zap.NewAtomicLevelAt(level)
	zapCfg.Level = atomic

	log, err := zapCfg.Build()
	return log, atomic, err
}
