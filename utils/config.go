package utils

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultScanInterval = 300
	DefaultSyncInterval = 1800
)

// Config is the single durable record of the daemon: the remembered
// target device plus the two loop intervals, persisted as config.json.
type Config struct {
	LastDevice   *DeviceRef `json:"last_device"`
	ScanInterval uint       `json:"scan_interval"`
	SyncInterval uint       `json:"sync_interval"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		LastDevice:   nil,
		ScanInterval: DefaultScanInterval,
		SyncInterval: DefaultSyncInterval,
	}
}

// ConfigStore owns the process-wide Config. Both loops read and write
// it concurrently, so every access goes through the store's mutex and
// every mutation is persisted immediately.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// LoadConfigStore reads the config file at path. A missing or corrupt
// file is a recovery path, not an error: defaults are written back and
// the daemon starts with them.
func LoadConfigStore(path string) *ConfigStore {
	s := &ConfigStore{path: path, cfg: DefaultConfig()}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("CONFIG: could not read %s, writing defaults: %v", path, err)
		s.save()
		return s
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("CONFIG: could not parse %s, writing defaults: %v", path, err)
		s.save()
		return s
	}

	// Older files may omit the intervals; fall back per field.
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}

	s.cfg = cfg
	log.Printf("CONFIG: loaded %s (scan every %ds, sync every %ds)", path, cfg.ScanInterval, cfg.SyncInterval)
	return s
}

// save writes the current config to disk. Persistence is best-effort:
// a write failure is logged and the daemon continues with the
// in-memory copy. Callers must hold no lock or the read lock only if
// cfg was already copied; save itself takes the read lock.
func (s *ConfigStore) save() {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		log.Printf("CONFIG: could not encode config: %v", err)
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("CONFIG: could not create config directory %s: %v", dir, err)
			return
		}
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		log.Printf("CONFIG: could not write %s: %v", s.path, err)
		return
	}
	log.Printf("CONFIG: saved %s", s.path)
}

// Snapshot returns a copy of the current config.
func (s *ConfigStore) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.cfg
	if cfg.LastDevice != nil {
		ref := *cfg.LastDevice
		cfg.LastDevice = &ref
	}
	return cfg
}

// LastDevice returns the remembered target, if any.
func (s *ConfigStore) LastDevice() (DeviceRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg.LastDevice == nil {
		return DeviceRef{}, false
	}
	return *s.cfg.LastDevice, true
}

// SetLastDevice replaces the remembered target and persists the
// config.
func (s *ConfigStore) SetLastDevice(ref DeviceRef) {
	s.mu.Lock()
	s.cfg.LastDevice = &ref
	s.mu.Unlock()
	s.save()
}

// ScanInterval returns the discovery loop interval.
func (s *ConfigStore) ScanInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cfg.ScanInterval) * time.Second
}

// SyncInterval returns the calibration loop interval.
func (s *ConfigStore) SyncInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cfg.SyncInterval) * time.Second
}
