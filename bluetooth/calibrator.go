package bluetooth

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// TimeCalibrator writes the host clock to a peripheral's Current Time
// characteristic and reads it back for verification.
type TimeCalibrator interface {
	Calibrate(dev Device) error
}

// CTSCalibrator performs one scoped calibration session per call:
// connect, write, grace delay, read back, disconnect.
type CTSCalibrator struct {
	conn *dbus.Conn

	// grace is how long the peripheral gets to apply the written time
	// before the verification read.
	grace time.Duration

	// settle is how long to wait after Connect for BlueZ to resolve
	// the GATT tree.
	settle time.Duration
}

func NewCTSCalibrator(conn *dbus.Conn) *CTSCalibrator {
	return &CTSCalibrator{
		conn:   conn,
		grace:  1 * time.Second,
		settle: 5 * time.Second,
	}
}

// Calibrate runs one calibration session against dev. The connection
// is released on exit no matter how far the session got. There is no
// retry here; the next interval retries naturally.
func (c *CTSCalibrator) Calibrate(dev Device) error {
	session := uuid.NewString()[:8]
	log.Printf("CAL[%s]: connecting to %s (%s)", session, dev.Name, dev.Address)

	device := c.conn.Object(BLUEZ_BUS_NAME, dev.Path)
	if err := device.Call(BLUEZ_DEVICE_INTERFACE+".Connect", 0).Store(); err != nil {
		calibrationFailures.Inc()
		return fmt.Errorf("connect to %s failed: %w", dev.Address, err)
	}
	defer func() {
		if err := device.Call(BLUEZ_DEVICE_INTERFACE+".Disconnect", 0).Store(); err != nil {
			log.Printf("CAL[%s]: disconnect failed: %v", session, err)
		} else {
			log.Printf("CAL[%s]: disconnected", session)
		}
	}()

	var connected bool
	if err := device.Call("org.freedesktop.DBus.Properties.Get", 0, BLUEZ_DEVICE_INTERFACE, "Connected").Store(&connected); err != nil {
		calibrationFailures.Inc()
		return fmt.Errorf("could not read Connected property: %w", err)
	}
	if !connected {
		calibrationFailures.Inc()
		return fmt.Errorf("device %s did not report connected", dev.Address)
	}

	// Wait for service discovery before walking the GATT tree.
	time.Sleep(c.settle)

	char, err := c.findCurrentTimeChar(dev.Path)
	if err != nil {
		calibrationFailures.Inc()
		return err
	}

	now := time.Now()
	payload := EncodeCurrentTime(now)
	log.Printf("CAL[%s]: writing host time %s", session, now.Format("2006-01-02 15:04:05"))
	if err := char.Call(BLUEZ_CHAR_INTERFACE+".WriteValue", 0, payload, map[string]interface{}{}).Store(); err != nil {
		calibrationFailures.Inc()
		return fmt.Errorf("current time write failed: %w", err)
	}
	calibrationsTotal.Inc()
	log.Printf("CAL[%s]: time written", session)

	// Give the peripheral a moment to apply the update.
	time.Sleep(c.grace)

	// Verification is best-effort: the write above already took
	// effect, so a failed or undecodable read-back is only logged.
	var readback []byte
	if err := char.Call(BLUEZ_CHAR_INTERFACE+".ReadValue", 0, map[string]interface{}{}).Store(&readback); err != nil {
		log.Printf("CAL[%s]: verification read failed: %v", session, err)
		return nil
	}
	sample, err := DecodeCurrentTime(readback)
	if err != nil {
		log.Printf("CAL[%s]: could not decode reported time: %v", session, err)
		return nil
	}
	log.Printf("CAL[%s]: peripheral reports %s", session, sample)
	return nil
}

// findCurrentTimeChar resolves the Current Time characteristic under
// the device's CTS service in the BlueZ object tree.
func (c *CTSCalibrator) findCurrentTimeChar(devicePath dbus.ObjectPath) (dbus.BusObject, error) {
	managedObjects, err := getManagedObjects(c.conn)
	if err != nil {
		return nil, err
	}

	var servicePath dbus.ObjectPath
	for path, object := range managedObjects {
		props, ok := object[BLUEZ_SERVICE_INTERFACE]
		if !ok {
			continue
		}
		owner, _ := props["Device"].Value().(dbus.ObjectPath)
		serviceUUID, _ := props["UUID"].Value().(string)
		if owner == devicePath && strings.EqualFold(serviceUUID, CTS_SERVICE_UUID) {
			servicePath = path
			break
		}
	}
	if servicePath == "" {
		return nil, fmt.Errorf("current time service not found on %s", devicePath)
	}

	for path, object := range managedObjects {
		props, ok := object[BLUEZ_CHAR_INTERFACE]
		if !ok {
			continue
		}
		owner, _ := props["Service"].Value().(dbus.ObjectPath)
		charUUID, _ := props["UUID"].Value().(string)
		if owner == servicePath && strings.EqualFold(charUUID, CURRENT_TIME_CHAR_UUID) {
			return c.conn.Object(BLUEZ_BUS_NAME, path), nil
		}
	}
	return nil, fmt.Errorf("current time characteristic not found on %s", devicePath)
}
