// Package avifinfo extracts the width, height, bit depth and number of
// channels of an AVIF image from the leading bytes of the file. This
// package does not decode images; it only reads the header boxes.
//
// The input can be partial: every entry point reports whether more bytes
// may change the answer, so streaming consumers can call it repeatedly
// without buffering the whole file. The features of most AVIF files can
// be parsed from their first 450 bytes.
package avifinfo

import (
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/goavif/avifinfo/isobmff"
)

// Status is the public outcome of a parsing call, in order of severity.
type Status int

const (
	// StatusOk means the requested information was extracted. It is not
	// guaranteed that the input is a valid complete AVIF file.
	StatusOk Status = iota
	// StatusNotEnoughData means the input was correctly parsed so far but
	// bytes are missing; repeat the call with a longer prefix.
	StatusNotEnoughData
	// StatusTooComplex means parsing stopped at a self-imposed limit to
	// avoid any timeout or crash.
	StatusTooComplex
	// StatusInvalidFile means the input is not a valid AVIF file,
	// truncated or not.
	StatusInvalidFile
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusNotEnoughData:
		return "NotEnoughData"
	case StatusTooComplex:
		return "TooComplex"
	case StatusInvalidFile:
		return "InvalidFile"
	}
	return "Unknown"
}

// Get parses the AVIF data and extracts its features. data can be partial
// but must start at the first byte of the file; the file is considered to
// be of unknown, maximum size. Features is zero unless StatusOk is
// returned.
func Get(data []byte) (Features, Status) {
	return GetWithSize(data, isobmff.MaxSize)
}

// GetWithSize is Get with a known total file size, for extra bitstream
// validation. len(data) is clipped to fileSize.
func GetWithSize(data []byte, fileSize uint64) (Features, Status) {
	if data == nil {
		return Features{}, StatusNotEnoughData
	}
	w := isobmff.NewWindow(data, fileSize)

	var p parser
	s := logStatus(p.parseFile(w))
	switch s {
	case isobmff.Found:
		return p.features, StatusOk
	case isobmff.NotFound:
		// Missing information in a complete file will not appear later.
		if w.Available() < w.Total {
			return Features{}, StatusNotEnoughData
		}
		return Features{}, StatusInvalidFile
	case isobmff.Truncated:
		return Features{}, StatusNotEnoughData
	case isobmff.Aborted:
		return Features{}, StatusTooComplex
	default:
		return Features{}, StatusInvalidFile
	}
}

// ErrNoDecoder is returned by Decode: this package reads headers only.
var ErrNoDecoder = errors.New("avifinfo: pixel decoding is not supported")

// DecodeConfig returns the dimensions and color model of an AVIF image
// without decoding it, in the shape the image package expects.
func DecodeConfig(r io.Reader) (image.Config, error) {
	features, status := GetFromReader(r)
	if status != StatusOk {
		return image.Config{}, errors.New("avifinfo: " + status.String())
	}
	var model color.Model
	switch {
	case features.NumChannels <= 2 && features.BitDepth > 8:
		model = color.Gray16Model
	case features.NumChannels <= 2:
		model = color.GrayModel
	case features.NumChannels >= 4:
		model = color.NYCbCrAModel
	default:
		model = color.YCbCrModel
	}
	return image.Config{
		ColorModel: model,
		Width:      int(features.Width),
		Height:     int(features.Height),
	}, nil
}

// Decode always fails with ErrNoDecoder. It exists so the format can be
// registered with the image package and sniffed via image.DecodeConfig.
func Decode(io.Reader) (image.Image, error) {
	return nil, ErrNoDecoder
}

func init() {
	image.RegisterFormat("avif", "????ftypavif", Decode, DecodeConfig)
	image.RegisterFormat("avif", "????ftypavis", Decode, DecodeConfig)
}
