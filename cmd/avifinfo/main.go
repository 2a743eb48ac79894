// Command avifinfo prints the width, height, bit depth and number of
// channels of AVIF files without decoding them. With no arguments it
// reads one file from standard input.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/goavif/avifinfo"
)

func main() {
	maxBytes := pflag.Int64("max-bytes", 0, "Read at most this many leading bytes per file (0 = whole file)")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug logging")
	pflag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	paths := pflag.Args()
	if len(paths) == 0 {
		features, status := avifinfo.GetFromReader(os.Stdin)
		if status != avifinfo.StatusOk {
			logrus.WithField("status", status.String()).Error("stdin")
			os.Exit(1)
		}
		report("stdin", features)
		return
	}

	ok := true
	for _, path := range paths {
		features, status := inspect(path, *maxBytes)
		if status != avifinfo.StatusOk {
			logrus.WithField("status", status.String()).Error(path)
			ok = false
			continue
		}
		report(path, features)
	}
	if !ok {
		os.Exit(1)
	}
}

func inspect(path string, maxBytes int64) (avifinfo.Features, avifinfo.Status) {
	f, err := os.Open(path)
	if err != nil {
		logrus.WithError(err).Debug("open failed")
		return avifinfo.Features{}, avifinfo.StatusNotEnoughData
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logrus.WithError(err).Debug("stat failed")
		return avifinfo.Features{}, avifinfo.StatusNotEnoughData
	}

	if maxBytes <= 0 || maxBytes > info.Size() {
		maxBytes = info.Size()
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		logrus.WithError(err).Debug("read failed")
		return avifinfo.Features{}, avifinfo.StatusNotEnoughData
	}
	logrus.WithField("bytes", len(data)).Debug("parsing")
	return avifinfo.GetWithSize(data, uint64(info.Size()))
}

func report(name string, f avifinfo.Features) {
	fmt.Printf("%s: %dx%d, %d bits, %d channels\n", name, f.Width, f.Height, f.BitDepth, f.NumChannels)
}
