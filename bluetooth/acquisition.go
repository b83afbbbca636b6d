package bluetooth

import (
	"log"
	"time"

	"github.com/Sugarcan0067/Nixe-Watch-CTS/utils"
)

// Acquirer implements the per-tick acquisition decisions: is the
// remembered target still reachable, does the operator need to pick a
// new one, or is there nothing to do yet. It keeps no state of its
// own; every tick is re-derived from the config store plus the scan
// outcome, so ticks are idempotent.
type Acquirer struct {
	store      *utils.ConfigStore
	scanner    DeviceScanner
	selector   DeviceSelector
	calibrator TimeCalibrator
	hub        *utils.WebSocketHub
	window     time.Duration
}

func NewAcquirer(store *utils.ConfigStore, scanner DeviceScanner, selector DeviceSelector, calibrator TimeCalibrator, hub *utils.WebSocketHub) *Acquirer {
	return &Acquirer{
		store:      store,
		scanner:    scanner,
		selector:   selector,
		calibrator: calibrator,
		hub:        hub,
		window:     DefaultScanWindow,
	}
}

// TickDiscovery runs one pass of the discovery loop.
//
// With a remembered target, a targeted scan either confirms it
// (refreshing the stored name/address, without calibrating -
// confirmation does not imply drift correction) or treats it as lost
// and falls back to a fresh selection. Without one, a broad scan
// feeds the selector directly. A fresh selection is the only path
// that calibrates immediately.
func (a *Acquirer) TickDiscovery() {
	if ref, ok := a.store.LastDevice(); ok {
		if dev, found := a.scanner.FindDevice(a.window, ref.Address); found {
			a.store.SetLastDevice(dev.Ref())
			log.Printf("ACQ: confirmed target %s (%s)", dev.Name, dev.Address)
			a.broadcast("bluetooth/device_confirmed", utils.DeviceConfirmedPayload{Device: dev.Ref()})
			return
		}
		log.Printf("ACQ: stored target %s (%s) not in range, select a new device", ref.Name, ref.Address)
		a.selectNewTarget()
		return
	}

	log.Println("ACQ: no target configured, scanning for candidates")
	a.selectNewTarget()
}

// selectNewTarget broad-scans, lets the selector pick, persists the
// pick, and calibrates once since this is a first or replacement
// binding.
func (a *Acquirer) selectNewTarget() {
	devices := a.scanner.DiscoverDevices(a.window)
	if len(devices) == 0 {
		log.Println("ACQ: no device to choose")
		return
	}

	idx, ok := a.selector.SelectDevice(devices)
	if !ok {
		log.Println("ACQ: no device selected")
		return
	}

	dev := devices[idx]
	a.store.SetLastDevice(dev.Ref())
	log.Printf("ACQ: selected target %s (%s)", dev.Name, dev.Address)
	a.broadcast("bluetooth/device_selected", utils.DeviceSelectedPayload{Device: dev.Ref()})

	if err := a.calibrator.Calibrate(dev); err != nil {
		log.Printf("ACQ: initial calibration failed: %v", err)
	}
}

// TickSync runs one pass of the calibration loop: confirm the target
// is still in range, then write the host time to it. Returns whether
// a calibration session actually ran.
func (a *Acquirer) TickSync() bool {
	ref, ok := a.store.LastDevice()
	if !ok {
		log.Println("SYNC: no target configured yet")
		return false
	}

	log.Printf("SYNC: preparing to calibrate %s (%s)", ref.Name, ref.Address)
	dev, found := a.scanner.FindDevice(a.window, ref.Address)
	if !found {
		log.Println("SYNC: target not in range, skipping calibration")
		return false
	}

	if err := a.calibrator.Calibrate(dev); err != nil {
		log.Printf("SYNC: calibration failed: %v", err)
		a.broadcast("time/calibration_failed", utils.CalibrationPayload{
			Device:    dev.Ref(),
			Timestamp: time.Now().Unix(),
			Error:     err.Error(),
		})
		return false
	}

	a.broadcast("time/calibrated", utils.CalibrationPayload{
		Device:    dev.Ref(),
		Timestamp: time.Now().Unix(),
	})
	return true
}

func (a *Acquirer) broadcast(eventType string, payload interface{}) {
	if a.hub != nil {
		a.hub.Broadcast(utils.WebSocketEvent{Type: eventType, Payload: payload})
	}
}
