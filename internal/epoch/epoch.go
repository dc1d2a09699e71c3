// Package epoch converts the numeric timestamps found in browser exports.
package epoch

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layout is the minute-precision format used for every date_added value.
const Layout = "2006-01-02 15:04"

// windowsToUnix is the number of seconds between 1601-01-01 and 1970-01-01.
const windowsToUnix = 11644473600

// ErrNotNumeric is returned for values that are neither numbers nor numeric strings.
var ErrNotNumeric = errors.New("epoch value is not numeric")

// TypeError reports a non-numeric epoch value.
type TypeError struct {
	Value any
}

// Error implements the error interface for TypeError.
func (e *TypeError) Error() string {
	return fmt.Sprintf("%v: %T %v", ErrNotNumeric, e.Value, e.Value)
}

// Unwrap returns ErrNotNumeric.
func (e *TypeError) Unwrap() error { return ErrNotNumeric }

// Func converts a raw epoch value to a time.
type Func func(v any) (time.Time, error)

// number is an epoch value kept exact when it is integral.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

// parse accepts Go numbers, json.Number and numeric strings.
func parse(v any) (number, error) {
	switch n := v.(type) {
	case int:
		return number{i: int64(n)}, nil
	case int32:
		return number{i: int64(n)}, nil
	case int64:
		return number{i: n}, nil
	case uint32:
		return number{i: int64(n)}, nil
	case uint64:
		if n > math.MaxInt64 {
			return number{f: float64(n), isFloat: true}, nil
		}
		return number{i: int64(n)}, nil
	case float32:
		return number{f: float64(n), isFloat: true}, nil
	case float64:
		return number{f: n, isFloat: true}, nil
	case json.Number:
		return parseString(string(n), v)
	case string:
		return parseString(n, v)
	}
	return number{}, &TypeError{Value: v}
}

func parseString(s string, orig any) (number, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{i: i}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return number{}, &TypeError{Value: orig}
	}
	return number{f: f, isFloat: true}, nil
}

// FromChrome converts microseconds since 1601-01-01 UTC, as stored in
// Chromium bookmark files.
func FromChrome(v any) (time.Time, error) {
	n, err := parse(v)
	if err != nil {
		return time.Time{}, err
	}
	if n.isFloat {
		return fromSeconds(n.f/1e6 - windowsToUnix), nil
	}
	return time.UnixMicro(n.i - windowsToUnix*1_000_000), nil
}

// FromOneTab converts milliseconds since the Unix epoch.
func FromOneTab(v any) (time.Time, error) {
	n, err := parse(v)
	if err != nil {
		return time.Time{}, err
	}
	if n.isFloat {
		return fromSeconds(n.f / 1e3), nil
	}
	return time.UnixMilli(n.i), nil
}

// FromUnix converts seconds since the Unix epoch (Netscape ADD_DATE).
func FromUnix(v any) (time.Time, error) {
	n, err := parse(v)
	if err != nil {
		return time.Time{}, err
	}
	if n.isFloat {
		return fromSeconds(n.f), nil
	}
	return time.Unix(n.i, 0), nil
}

func fromSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Format renders t truncated to the minute in loc. A nil loc means time.Local.
func Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(Layout)
}
