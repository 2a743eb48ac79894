package avifinfo

import "io"

// MaxReadBytes bounds how many bytes one underlying Read may return to
// the streaming adapter.
const MaxReadBytes = 4096

// GetFromReader parses an AVIF file supplied sequentially by r and
// extracts its features, mirroring the status and features semantics of
// Get and GetWithSize.
//
// Bytes are copied into an internal prefix buffer as they arrive, so no
// slice handed out by the reader is retained across reads. Whenever the
// prefix is not decisive the adapter reads more and retries the parse
// from scratch; the end of the stream fixes the file size at the number
// of bytes received. Any read error is treated as the end of the stream.
func GetFromReader(r io.Reader) (Features, Status) {
	buf := make([]byte, 0, MaxReadBytes)
	var chunk [MaxReadBytes]byte
	for {
		features, status := Get(buf)
		if status != StatusNotEnoughData {
			return features, status
		}
		n, err := r.Read(chunk[:])
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return GetWithSize(buf, uint64(len(buf)))
		}
	}
}
