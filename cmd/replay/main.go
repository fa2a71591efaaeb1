package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/icodeforyou/powerwindow/average"
	"github.com/lmittmann/tint"
)

func main() {
	window := flag.Uint64("window", 0, "window size in time units")
	input := flag.String("input", "", "file with \"timestamp value\" lines, default stdin")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen}))

	tracker, err := average.New(*window)
	if err != nil {
		logger.Error("invalid window", slog.Uint64("window", *window), slog.Any("error", err))
		os.Exit(2)
	}

	var in io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Error("unable to open input", slog.Any("error", err))
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := replay(tracker, in, os.Stdout); err != nil {
		logger.Error("replay failed", slog.Any("error", err))
		os.Exit(1)
	}
}
