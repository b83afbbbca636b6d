package bluetooth

import "github.com/prometheus/client_golang/prometheus"

var (
	scansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cts_scans_total",
		Help: "BLE discovery scans performed.",
	})
	devicesVisible = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cts_devices_visible",
		Help: "Devices visible in the most recent broad scan.",
	})
	calibrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cts_calibrations_total",
		Help: "Current Time writes that reached the peripheral.",
	})
	calibrationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cts_calibration_failures_total",
		Help: "Calibration sessions aborted before the time write.",
	})
)

func init() {
	prometheus.MustRegister(scansTotal, devicesVisible, calibrationsTotal, calibrationFailures)
}
