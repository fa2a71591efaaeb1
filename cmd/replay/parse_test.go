package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/icodeforyou/powerwindow/average"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    average.Event
		ok      bool
		wantErr bool
	}{
		{"0 1", average.Event{Time: 0, Value: 1}, true, false},
		{"  12\t-2.5  ", average.Event{Time: 12, Value: -2.5}, true, false},
		{"7 3 # trailing", average.Event{Time: 7, Value: 3}, true, false},
		{"", average.Event{}, false, false},
		{"# comment", average.Event{}, false, false},
		{"1", average.Event{}, false, true},
		{"1 2 3", average.Event{}, false, true},
		{"-1 2", average.Event{}, false, true},
		{"1 x", average.Event{}, false, true},
		{"1 NaN", average.Event{}, false, true},
		{"1 +Inf", average.Event{}, false, true},
		{"1 -inf", average.Event{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplay(t *testing.T) {
	tracker, err := average.New(5)
	require.NoError(t, err)

	in := strings.NewReader("# W=5\n0 1\n3 2\n\n5 3\n")
	var out bytes.Buffer
	require.NoError(t, replay(tracker, in, &out))
	assert.Equal(t, "0 1 1\n3 2 1.25\n5 3 1.8\n", out.String())
}

func TestReplayOutOfOrder(t *testing.T) {
	tracker, err := average.New(5)
	require.NoError(t, err)

	var out bytes.Buffer
	err = replay(tracker, strings.NewReader("4 1\n4 2\n"), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, average.ErrNonIncreasingTimestamp))
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "4 1 1\n", out.String())
}

func TestReplayMalformed(t *testing.T) {
	tracker, err := average.New(5)
	require.NoError(t, err)

	err = replay(tracker, strings.NewReader("1 1\nbroken\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReplayNonFinite(t *testing.T) {
	tracker, err := average.New(3)
	require.NoError(t, err)

	var out bytes.Buffer
	err = replay(tracker, strings.NewReader("0 1\n1 NaN\n10 2\n20 5\n"), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNotFinite))
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "0 1 1\n", out.String())
}
