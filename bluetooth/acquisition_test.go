package bluetooth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Sugarcan0067/Nixe-Watch-CTS/utils"
)

type fakeScanner struct {
	findResult Device
	findOK     bool
	findCalls  int
	lastFind   string

	broadResult []Device
	broadCalls  int
}

func (f *fakeScanner) FindDevice(window time.Duration, address string) (Device, bool) {
	f.findCalls++
	f.lastFind = address
	return f.findResult, f.findOK
}

func (f *fakeScanner) DiscoverDevices(window time.Duration) []Device {
	f.broadCalls++
	return f.broadResult
}

type fakeSelector struct {
	index int
	ok    bool
	calls int
	got   []Device
}

func (f *fakeSelector) SelectDevice(devices []Device) (int, bool) {
	f.calls++
	f.got = devices
	return f.index, f.ok
}

type fakeCalibrator struct {
	calls   int
	devices []Device
	err     error
}

func (f *fakeCalibrator) Calibrate(dev Device) error {
	f.calls++
	f.devices = append(f.devices, dev)
	return f.err
}

func newTestStore(t *testing.T) *utils.ConfigStore {
	t.Helper()
	return utils.LoadConfigStore(filepath.Join(t.TempDir(), "config.json"))
}

func TestDiscoveryTickNoTargetEmptyScan(t *testing.T) {
	store := newTestStore(t)
	scanner := &fakeScanner{}
	selector := &fakeSelector{}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, selector, calibrator, nil)
	acq.TickDiscovery()

	if scanner.broadCalls != 1 {
		t.Errorf("Expected 1 broad scan, got %d", scanner.broadCalls)
	}
	if selector.calls != 0 {
		t.Errorf("Expected no selection prompt for an empty scan, got %d", selector.calls)
	}
	if calibrator.calls != 0 {
		t.Errorf("Expected no calibration, got %d", calibrator.calls)
	}
	if _, ok := store.LastDevice(); ok {
		t.Error("Expected config to remain without a target")
	}
}

func TestDiscoveryTickFirstSelectionCalibratesOnce(t *testing.T) {
	store := newTestStore(t)
	deviceA := Device{Name: "Nixe Watch", Address: "AA:BB:CC:DD:EE:FF", Path: "/org/bluez/hci0/dev_AA"}
	deviceB := Device{Name: "Other", Address: "11:22:33:44:55:66", Path: "/org/bluez/hci0/dev_11"}

	scanner := &fakeScanner{broadResult: []Device{deviceA, deviceB}}
	selector := &fakeSelector{index: 0, ok: true}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, selector, calibrator, nil)
	acq.TickDiscovery()

	ref, ok := store.LastDevice()
	if !ok {
		t.Fatal("Expected a target to be stored")
	}
	if ref.Address != deviceA.Address {
		t.Errorf("Expected stored address %s, got %s", deviceA.Address, ref.Address)
	}
	if calibrator.calls != 1 {
		t.Errorf("Expected exactly one calibration after first selection, got %d", calibrator.calls)
	}
	if len(calibrator.devices) == 1 && calibrator.devices[0].Address != deviceA.Address {
		t.Errorf("Expected calibration of %s, got %s", deviceA.Address, calibrator.devices[0].Address)
	}
}

func TestDiscoveryTickConfirmationDoesNotCalibrate(t *testing.T) {
	store := newTestStore(t)
	store.SetLastDevice(utils.DeviceRef{Name: "Nixe Watch", Address: "AA:BB:CC:DD:EE:FF"})

	// The scan reports the device with refreshed casing and name.
	refreshed := Device{Name: "Nixe Watch v2", Address: "aa:bb:cc:dd:ee:ff", Path: "/org/bluez/hci0/dev_AA"}
	scanner := &fakeScanner{findResult: refreshed, findOK: true}
	selector := &fakeSelector{}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, selector, calibrator, nil)
	acq.TickDiscovery()

	if scanner.findCalls != 1 {
		t.Errorf("Expected 1 targeted scan, got %d", scanner.findCalls)
	}
	if scanner.lastFind != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Expected targeted scan for the stored address, got %s", scanner.lastFind)
	}

	ref, _ := store.LastDevice()
	if ref.Name != "Nixe Watch v2" || ref.Address != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Expected stored target to be refreshed, got %+v", ref)
	}
	if calibrator.calls != 0 {
		t.Errorf("Confirmation must not trigger calibration, got %d calls", calibrator.calls)
	}
	if selector.calls != 0 {
		t.Errorf("Expected no selection prompt on confirmation, got %d", selector.calls)
	}
}

func TestDiscoveryTickLostTargetReselects(t *testing.T) {
	store := newTestStore(t)
	store.SetLastDevice(utils.DeviceRef{Name: "Nixe Watch", Address: "AA:BB:CC:DD:EE:FF"})

	deviceB := Device{Name: "Replacement", Address: "11:22:33:44:55:66", Path: "/org/bluez/hci0/dev_11"}
	scanner := &fakeScanner{findOK: false, broadResult: []Device{deviceB}}
	selector := &fakeSelector{index: 0, ok: true}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, selector, calibrator, nil)
	acq.TickDiscovery()

	ref, ok := store.LastDevice()
	if !ok {
		t.Fatal("Expected a target to be stored")
	}
	if ref.Address != deviceB.Address {
		t.Errorf("Expected replacement target %s, got %s", deviceB.Address, ref.Address)
	}
	if calibrator.calls != 1 {
		t.Errorf("Expected exactly one calibration after replacement selection, got %d", calibrator.calls)
	}
}

func TestDiscoveryTickRejectedSelectionKeepsNoTarget(t *testing.T) {
	store := newTestStore(t)
	scanner := &fakeScanner{broadResult: []Device{{Name: "Candidate", Address: "AA:BB:CC:DD:EE:FF"}}}
	selector := &fakeSelector{ok: false}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, selector, calibrator, nil)
	acq.TickDiscovery()

	if selector.calls != 1 {
		t.Errorf("Expected 1 selection prompt, got %d", selector.calls)
	}
	if calibrator.calls != 0 {
		t.Errorf("Expected no calibration after rejected selection, got %d", calibrator.calls)
	}
	if _, ok := store.LastDevice(); ok {
		t.Error("Expected no target after rejected selection")
	}
}

func TestSyncTickWithoutTargetDoesNothing(t *testing.T) {
	store := newTestStore(t)
	scanner := &fakeScanner{}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, &fakeSelector{}, calibrator, nil)
	if acq.TickSync() {
		t.Error("Expected sync tick to report no calibration")
	}

	if scanner.findCalls != 0 {
		t.Errorf("Expected no scan without a target, got %d", scanner.findCalls)
	}
	if calibrator.calls != 0 {
		t.Errorf("Expected no calibration without a target, got %d", calibrator.calls)
	}
}

func TestSyncTickCalibratesPresentTarget(t *testing.T) {
	store := newTestStore(t)
	store.SetLastDevice(utils.DeviceRef{Name: "Nixe Watch", Address: "AA:BB:CC:DD:EE:FF"})

	dev := Device{Name: "Nixe Watch", Address: "AA:BB:CC:DD:EE:FF", Path: "/org/bluez/hci0/dev_AA"}
	scanner := &fakeScanner{findResult: dev, findOK: true}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, &fakeSelector{}, calibrator, nil)
	if !acq.TickSync() {
		t.Error("Expected sync tick to report success")
	}

	if calibrator.calls != 1 {
		t.Errorf("Expected 1 calibration, got %d", calibrator.calls)
	}
}

func TestSyncTickSkipsOutOfRangeTarget(t *testing.T) {
	store := newTestStore(t)
	store.SetLastDevice(utils.DeviceRef{Name: "Nixe Watch", Address: "AA:BB:CC:DD:EE:FF"})

	scanner := &fakeScanner{findOK: false}
	calibrator := &fakeCalibrator{}

	acq := NewAcquirer(store, scanner, &fakeSelector{}, calibrator, nil)
	if acq.TickSync() {
		t.Error("Expected sync tick to report no calibration")
	}

	if scanner.findCalls != 1 {
		t.Errorf("Expected 1 presence scan, got %d", scanner.findCalls)
	}
	if calibrator.calls != 0 {
		t.Errorf("Expected no calibration for an out-of-range target, got %d", calibrator.calls)
	}
}
