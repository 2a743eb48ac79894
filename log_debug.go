//go:build avifinfodebug

package avifinfo

import (
	"github.com/sirupsen/logrus"

	"github.com/goavif/avifinfo/isobmff"
)

// logStatus reports the terminal status of a walk on standard error.
// Built only under the avifinfodebug tag; the public API is unaffected.
func logStatus(s isobmff.Status) isobmff.Status {
	if s != isobmff.Found && s != isobmff.NotFound {
		logrus.WithField("status", s.String()).Error("avif parsing stopped")
	}
	return s
}
