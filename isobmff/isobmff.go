// Package isobmff reads ISO BMFF box headers, as used by HEIF and AVIF.
//
// This is not a generic BMFF reader: it parses exactly what the
// github.com/goavif/avifinfo package needs to walk an AVIF header, over a
// possibly partial prefix of the file. The caller supplies the bytes it
// has and the size the container claims to be; every read distinguishes
// "not available yet" from "cannot be there at all".
package isobmff

// Status is the outcome of reading part of a box or file.
type Status int

const (
	// Found means the input parsed correctly and the information was
	// retrieved.
	Found Status = iota
	// NotFound means the input parsed correctly but the information is
	// missing or elsewhere.
	NotFound
	// Truncated means the input parsed correctly until bytes were missing.
	// Retryable with a longer prefix.
	Truncated
	// Aborted means parsing stopped at a self-imposed limit to avoid a
	// timeout or crash.
	Aborted
	// Invalid means the input violates the format. Terminal.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Found:
		return "Found"
	case NotFound:
		return "NotFound"
	case Truncated:
		return "Truncated"
	case Aborted:
		return "Aborted"
	case Invalid:
		return "Invalid"
	}
	return "Unknown"
}

// MaxSize clamps all offset and size arithmetic. uint32 is used for every
// position in this package; AVIF headers are unlikely to need more.
const MaxSize = 1<<32 - 1

// ReadBigEndian reads an unsigned integer of n bytes from data, most
// significant bits first. data must be at least n bytes long.
func ReadBigEndian(data []byte, n uint32) uint32 {
	var value uint32
	for i := uint32(0); i < n; i++ {
		value = value<<8 | uint32(data[i])
	}
	return value
}

// A Window is a bounded view over the available prefix of a container,
// either the file itself or the content of a parent box. Data holds the
// bytes the caller actually has from the start of the container; Total is
// the size the container claims to be. Data never outlives one top-level
// parsing call and may extend past Total into sibling bytes; reads are
// clipped against both bounds.
type Window struct {
	Data  []byte
	Total uint32
}

// NewWindow clips data to the declared file size and to the 32-bit
// arithmetic carried throughout this package.
func NewWindow(data []byte, fileSize uint64) Window {
	if fileSize > MaxSize {
		fileSize = MaxSize
	}
	if uint64(len(data)) > fileSize {
		data = data[:fileSize]
	}
	return Window{Data: data, Total: uint32(fileSize)}
}

// Available returns the number of bytes actually present from the start of
// the container. For a box content window it may exceed Total.
func (w Window) Available() uint32 {
	return uint32(len(w.Data))
}

// Content returns the window over a box's content. The box must have been
// parsed from w with a Found status.
func (w Window) Content(b Box) Window {
	return Window{Data: w.Data[b.ContentPos:], Total: b.ContentSize}
}

// AccessContent reports whether min bytes of the box content can be read
// now: Invalid if they cannot fit in the declared content size, Truncated
// if they fit but are not yet available, Found otherwise. These two must
// never be confused; only Truncated is retryable.
func (w Window) AccessContent(b Box, min uint32) Status {
	if b.ContentSize < min {
		return Invalid
	}
	if b.ContentPos+min > w.Available() {
		return Truncated
	}
	return Found
}

// ContentBytes returns n content bytes starting at off. The caller must
// have established availability with AccessContent.
func (w Window) ContentBytes(b Box, off, n uint32) []byte {
	return w.Data[b.ContentPos+off : b.ContentPos+off+n]
}

// ContentUint reads n big-endian content bytes starting at off. The
// caller must have established availability with AccessContent.
func (w Window) ContentUint(b Box, off, n uint32) uint32 {
	return ReadBigEndian(w.Data[b.ContentPos+off:], n)
}
