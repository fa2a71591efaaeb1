package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/icodeforyou/powerwindow/average"
)

var (
	errMalformedLine = errors.New("expected \"timestamp value\"")
	errNotFinite     = errors.New("not a finite number")
)

// parseLine returns ok=false for blank lines and comments.
func parseLine(line string) (ev average.Event, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return average.Event{}, false, nil
	}
	if len(fields) != 2 {
		return average.Event{}, false, errMalformedLine
	}

	ts, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return average.Event{}, false, fmt.Errorf("timestamp: %w", err)
	}
	val, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return average.Event{}, false, fmt.Errorf("value: %w", err)
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return average.Event{}, false, fmt.Errorf("value %q: %w", fields[1], errNotFinite)
	}
	return average.Event{Time: ts, Value: val}, true, nil
}

func replay(tracker *average.Tracker, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	w := bufio.NewWriter(out)
	defer w.Flush()

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		ev, ok, err := parseLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		avg, err := tracker.TryAdd(ev.Time, ev.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, err := fmt.Fprintf(w, "%d %g %g\n", ev.Time, ev.Value, avg); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
