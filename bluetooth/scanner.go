package bluetooth

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/Sugarcan0067/Nixe-Watch-CTS/utils"
)

const (
	BLUEZ_BUS_NAME          = "org.bluez"
	BLUEZ_ADAPTER_INTERFACE = "org.bluez.Adapter1"
	BLUEZ_DEVICE_INTERFACE  = "org.bluez.Device1"
	BLUEZ_SERVICE_INTERFACE = "org.bluez.GattService1"
	BLUEZ_CHAR_INTERFACE    = "org.bluez.GattCharacteristic1"
)

// DefaultScanWindow is how long a discovery scan observes the air
// before the visible device set is snapshotted.
const DefaultScanWindow = 10 * time.Second

// Device is a peripheral observed during discovery.
type Device struct {
	Name    string
	Address string
	Path    dbus.ObjectPath
}

func (d Device) Ref() utils.DeviceRef {
	return utils.DeviceRef{Name: d.Name, Address: d.Address}
}

// DeviceScanner is the discovery boundary. Transport failures are
// collapsed into "nothing found" so callers treat a failed scan and an
// empty scan identically.
type DeviceScanner interface {
	// FindDevice scans for the window and returns the device whose
	// address matches (case-insensitive), if it is in range.
	FindDevice(window time.Duration, address string) (Device, bool)

	// DiscoverDevices scans for the window and returns every visible
	// device.
	DiscoverDevices(window time.Duration) []Device
}

// BluezScanner performs timed discovery scans through the BlueZ
// object manager.
type BluezScanner struct {
	conn *dbus.Conn
}

func NewBluezScanner(conn *dbus.Conn) *BluezScanner {
	return &BluezScanner{conn: conn}
}

func (s *BluezScanner) FindDevice(window time.Duration, address string) (Device, bool) {
	devices, err := s.scan(window)
	if err != nil {
		log.Printf("SCAN: targeted scan failed: %v", err)
		return Device{}, false
	}
	if d, found := matchByAddress(devices, address); found {
		log.Printf("SCAN: found target device %s (%s)", d.Name, d.Address)
		return d, true
	}
	log.Printf("SCAN: target %s not in range", address)
	return Device{}, false
}

// matchByAddress finds the device with the given BLE address. BlueZ
// reports addresses uppercased but stored ones may differ, so the
// comparison is case-insensitive.
func matchByAddress(devices []Device, address string) (Device, bool) {
	for _, d := range devices {
		if strings.EqualFold(d.Address, address) {
			return d, true
		}
	}
	return Device{}, false
}

func (s *BluezScanner) DiscoverDevices(window time.Duration) []Device {
	devices, err := s.scan(window)
	if err != nil {
		log.Printf("SCAN: discovery failed: %v", err)
		return nil
	}
	if len(devices) == 0 {
		log.Println("SCAN: no BLE devices found")
	}
	devicesVisible.Set(float64(len(devices)))
	return devices
}

// scan runs one discovery window: start discovery, wait it out,
// snapshot the device objects BlueZ has collected, stop discovery.
func (s *BluezScanner) scan(window time.Duration) ([]Device, error) {
	scansTotal.Inc()

	adapterPath, err := s.findAdapter()
	if err != nil {
		return nil, err
	}

	adapter := s.conn.Object(BLUEZ_BUS_NAME, adapterPath)
	log.Printf("SCAN: starting discovery for %s", window)
	if err := adapter.Call(BLUEZ_ADAPTER_INTERFACE+".StartDiscovery", 0).Store(); err != nil {
		// BlueZ refuses a second StartDiscovery while one is running;
		// the window below still observes whatever it collects.
		log.Printf("SCAN: could not start discovery: %v", err)
	}

	time.Sleep(window)

	if err := adapter.Call(BLUEZ_ADAPTER_INTERFACE+".StopDiscovery", 0).Store(); err != nil {
		log.Printf("SCAN: could not stop discovery: %v", err)
	}

	managedObjects, err := getManagedObjects(s.conn)
	if err != nil {
		return nil, err
	}

	var devices []Device
	for path, object := range managedObjects {
		props, ok := object[BLUEZ_DEVICE_INTERFACE]
		if !ok {
			continue
		}
		if owner, ok := props["Adapter"].Value().(dbus.ObjectPath); !ok || owner != adapterPath {
			continue
		}
		address, ok := props["Address"].Value().(string)
		if !ok {
			continue
		}
		name := ""
		if n, ok := props["Name"].Value().(string); ok {
			name = n
		}
		devices = append(devices, Device{Name: name, Address: address, Path: path})
	}

	// Managed object iteration order is random; keep the listing
	// stable so selection indexes mean the same thing across ticks.
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})

	log.Printf("SCAN: %d device(s) visible", len(devices))
	return devices, nil
}

func (s *BluezScanner) findAdapter() (dbus.ObjectPath, error) {
	managedObjects, err := getManagedObjects(s.conn)
	if err != nil {
		return "", err
	}
	for path, object := range managedObjects {
		if _, ok := object[BLUEZ_ADAPTER_INTERFACE]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("bluetooth adapter not found")
}

func getManagedObjects(conn *dbus.Conn) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := conn.Object(BLUEZ_BUS_NAME, "/")
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&managedObjects); err != nil {
		return nil, fmt.Errorf("failed to get managed objects: %w", err)
	}
	return managedObjects, nil
}
