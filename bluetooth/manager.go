package bluetooth

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Sugarcan0067/Nixe-Watch-CTS/utils"
)

// Manager runs the discovery and calibration loops for the lifetime
// of the process. The loops are independent: each runs one tick, then
// sleeps its own configured interval. They share nothing but the
// config store.
type Manager struct {
	mu        sync.RWMutex
	store     *utils.ConfigStore
	acquirer  *Acquirer
	hub       *utils.WebSocketHub
	isRunning bool
	stopChan  chan struct{}

	lastScan   time.Time
	lastSync   time.Time
	lastSyncOK bool
}

func NewManager(store *utils.ConfigStore, acquirer *Acquirer, hub *utils.WebSocketHub) *Manager {
	return &Manager{
		store:    store,
		acquirer: acquirer,
		hub:      hub,
		stopChan: make(chan struct{}),
	}
}

// Start launches both loops.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("manager already running")
	}

	log.Printf("MGR: starting loops (scan every %s, sync every %s)", m.store.ScanInterval(), m.store.SyncInterval())
	go m.discoveryLoop()
	go m.calibrationLoop()

	m.isRunning = true
	return nil
}

// Stop terminates both loops. A tick already in flight finishes its
// scan or calibration session first.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	log.Println("MGR: stopping loops")
	close(m.stopChan)
	m.isRunning = false
}

func (m *Manager) discoveryLoop() {
	for {
		m.acquirer.TickDiscovery()

		m.mu.Lock()
		m.lastScan = time.Now()
		m.mu.Unlock()

		select {
		case <-m.stopChan:
			return
		case <-time.After(m.store.ScanInterval()):
		}
	}
}

func (m *Manager) calibrationLoop() {
	for {
		ok := m.acquirer.TickSync()

		m.mu.Lock()
		m.lastSync = time.Now()
		m.lastSyncOK = ok
		m.mu.Unlock()

		select {
		case <-m.stopChan:
			return
		case <-time.After(m.store.SyncInterval()):
		}
	}
}

// SyncNow runs a single calibration tick outside the loop cadence.
func (m *Manager) SyncNow() bool {
	ok := m.acquirer.TickSync()

	m.mu.Lock()
	m.lastSync = time.Now()
	m.lastSyncOK = ok
	m.mu.Unlock()

	return ok
}

// Status returns a snapshot of the scheduler state for the status API.
func (m *Manager) Status() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := m.store.Snapshot()
	status := map[string]interface{}{
		"is_running":    m.isRunning,
		"scan_interval": cfg.ScanInterval,
		"sync_interval": cfg.SyncInterval,
		"last_sync_ok":  m.lastSyncOK,
	}
	if cfg.LastDevice != nil {
		status["target"] = cfg.LastDevice
	}
	if !m.lastScan.IsZero() {
		status["last_scan"] = m.lastScan.Unix()
	}
	if !m.lastSync.IsZero() {
		status["last_sync"] = m.lastSync.Unix()
	}
	return status
}
