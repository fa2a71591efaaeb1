package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/icodeforyou/powerwindow/config"
)

var ErrMissingValue = errors.New("reading has no value")

// Reading is a single latched value of a signal, starting at Time.
type Reading struct {
	Signal string
	Time   uint64
	Value  float64
}

// number accepts both 12.5 and "12.5", the way inverters tend to send them.
type number struct {
	raw string
	set bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	n.raw = strings.TrimSpace(strings.Trim(s, `"`))
	n.set = true
	return nil
}

type payload struct {
	Ts  number `json:"ts"`
	Val number `json:"val"`
}

// DecodeReading parses {"ts": 1718000000, "val": 1532.5}. A missing ts is
// replaced by now, expressed in unit.
func DecodeReading(signal string, unit config.TimeUnit, data []byte, now time.Time) (Reading, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Reading{}, fmt.Errorf("decoding %s payload: %w", signal, err)
	}

	if !p.Val.set {
		return Reading{}, fmt.Errorf("decoding %s payload: %w", signal, ErrMissingValue)
	}
	value, err := strconv.ParseFloat(p.Val.raw, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("decoding %s value %q: %w", signal, p.Val.raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{}, fmt.Errorf("decoding %s value %q: not a finite number", signal, p.Val.raw)
	}

	r := Reading{Signal: signal, Value: value}
	if p.Ts.set {
		r.Time, err = strconv.ParseUint(p.Ts.raw, 10, 64)
		if err != nil {
			return Reading{}, fmt.Errorf("decoding %s timestamp %q: %w", signal, p.Ts.raw, err)
		}
	} else {
		r.Time = Timestamp(now, unit)
	}

	return r, nil
}

func Timestamp(t time.Time, unit config.TimeUnit) uint64 {
	if unit == config.TimeUnitMillisecond {
		return uint64(t.UnixMilli())
	}
	return uint64(t.Unix())
}
