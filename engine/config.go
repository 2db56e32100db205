package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/olivercrane/vasari/engine/core"
)

// Config is the engine's TOML-backed configuration. A missing file is not
// an error; every field has a usable default. Only the log level is applied
// live on file change, everything else is read once at startup.
type Config struct {
	LogLevel string `toml:"log_level"`

	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	VSync        bool `toml:"vsync"`
	TripleBuffer bool `toml:"triple_buffer"`
	Debug        bool `toml:"debug"`
}

type AssetsConfig struct {
	Dir string `toml:"dir"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Window: WindowConfig{
			Title:  "Vasari",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			VSync:        true,
			TripleBuffer: true,
			Debug:        false,
		},
		Assets: AssetsConfig{
			Dir: "assets",
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing file
// returns the defaults untouched; a malformed file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogInfo("No config file at %s, using defaults.", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigWatcher re-reads the config file on change and applies the log
// level. Other fields require a restart.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func WatchConfig(path string) (*ConfigWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, fmt.Errorf("watching config %s: %w", path, err)
	}

	cw := &ConfigWatcher{
		watcher: fsWatch,
		done:    make(chan struct{}),
	}
	go cw.run(path)
	return cw, nil
}

func (cw *ConfigWatcher) run(path string) {
	for {
		select {
		case e := <-cw.watcher.Events:
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				core.LogWarn("config reload skipped: %s", err)
				continue
			}
			core.SetLogLevel(cfg.LogLevel)
			core.LogInfo("Config reloaded, log level is now %q.", cfg.LogLevel)

		case e := <-cw.watcher.Errors:
			core.LogError(e.Error())

		case <-cw.done:
			cw.watcher.Close()
			return
		}
	}
}

func (cw *ConfigWatcher) Close() {
	close(cw.done)
}
