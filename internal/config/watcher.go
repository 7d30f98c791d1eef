package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ConfigWatcher watches the launcherd configuration file and hands every valid
// new configuration to the registered callbacks. Invalid edits are reported
// through the error callback and otherwise ignored.
type ConfigWatcher struct {
	v       *viper.Viper
	cfgFile string

	mu         sync.RWMutex
	callbacks  []func(*LauncherdConfig)
	onError    func(error)
	lastConfig *LauncherdConfig
	stopped    bool
}

// NewConfigWatcher creates a watcher for cfgFile, or for the config file found
// in the search paths when cfgFile is empty.
func NewConfigWatcher(cfgFile string) (*ConfigWatcher, error) {
	v := newViper(AppLauncherd)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg, err := unmarshalLauncherd(v)
	if err != nil {
		return nil, err
	}

	return &ConfigWatcher{
		v:          v,
		cfgFile:    v.ConfigFileUsed(),
		lastConfig: cfg,
	}, nil
}

// File returns the watched file.
func (cw *ConfigWatcher) File() string {
	return cw.cfgFile
}

// OnChange registers a callback to be called when configuration changes.
func (cw *ConfigWatcher) OnChange(callback func(*LauncherdConfig)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// OnError registers the callback receiving reload errors.
func (cw *ConfigWatcher) OnError(callback func(error)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.onError = callback
}

// Start begins watching for configuration changes.
func (cw *ConfigWatcher) Start() {
	cw.v.OnConfigChange(func(fsnotify.Event) {
		cw.handleChange()
	})
	cw.v.WatchConfig()
}

// Stop stops delivering changes. The underlying file watch ends with the
// process.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.stopped = true
}

func (cw *ConfigWatcher) handleChange() {
	cw.mu.RLock()
	if cw.stopped {
		cw.mu.RUnlock()
		return
	}
	callbacks := make([]func(*LauncherdConfig), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	onError := cw.onError
	cw.mu.RUnlock()

	cfg, err := unmarshalLauncherd(cw.v)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}

	cw.mu.Lock()
	cw.lastConfig = cfg
	cw.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

// CurrentConfig returns the last successfully loaded configuration.
func (cw *ConfigWatcher) CurrentConfig() *LauncherdConfig {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.lastConfig
}

// Reload forces a configuration reload.
func (cw *ConfigWatcher) Reload() error {
	if err := cw.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	cw.handleChange()
	return nil
}
