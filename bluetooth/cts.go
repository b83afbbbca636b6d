package bluetooth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	CTS_SERVICE_UUID       = "00001805-0000-1000-8000-00805f9b34fb"
	CURRENT_TIME_CHAR_UUID = "00002a2b-0000-1000-8000-00805f9b34fb"
)

// Current Time characteristic payload: uint16 year LE, then month,
// day, hour, minute, second, day-of-week (Mon=1..Sun=7), fraction256,
// adjust reason. Exactly 10 bytes on the wire.
const currentTimeLength = 10

// Adjust reason bit for a manual time update.
const adjustReasonManual = 0x01

var ErrShortPayload = errors.New("current time payload too short")

// TimeSample is one decoded Current Time reading. Values are passed
// through as received; the peripheral is trusted on range.
type TimeSample struct {
	Year         uint16
	Month        uint8
	Day          uint8
	Hour         uint8
	Minute       uint8
	Second       uint8
	DayOfWeek    uint8
	Fraction256  uint8
	AdjustReason uint8
}

func (s TimeSample) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (weekday %d, adjust 0x%02x)",
		s.Year, s.Month, s.Day, s.Hour, s.Minute, s.Second, s.DayOfWeek, s.AdjustReason)
}

// EncodeCurrentTime packs the instant into the 10-byte CTS payload.
// Fraction256 is always 0 and the adjust reason is fixed to manual
// update.
func EncodeCurrentTime(t time.Time) []byte {
	buf := make([]byte, currentTimeLength)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(t.Year()))
	buf[2] = byte(t.Month())
	buf[3] = byte(t.Day())
	buf[4] = byte(t.Hour())
	buf[5] = byte(t.Minute())
	buf[6] = byte(t.Second())
	buf[7] = byte(isoWeekday(t))
	buf[8] = 0
	buf[9] = adjustReasonManual
	return buf
}

// DecodeCurrentTime unpacks a Current Time payload read back from the
// peripheral. Inputs shorter than 10 bytes fail; longer inputs are
// allowed and the extra bytes ignored.
func DecodeCurrentTime(data []byte) (TimeSample, error) {
	if len(data) < currentTimeLength {
		return TimeSample{}, fmt.Errorf("%w: got %d bytes, need %d", ErrShortPayload, len(data), currentTimeLength)
	}
	return TimeSample{
		Year:         binary.LittleEndian.Uint16(data[0:2]),
		Month:        data[2],
		Day:          data[3],
		Hour:         data[4],
		Minute:       data[5],
		Second:       data[6],
		DayOfWeek:    data[7],
		Fraction256:  data[8],
		AdjustReason: data[9],
	}, nil
}

// isoWeekday maps time.Weekday (Sunday=0) to the CTS convention
// (Monday=1..Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
