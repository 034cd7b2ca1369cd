package common

import (
	"time"

	"github.com/inhies/go-bytesize"
)

// GetSize renders a byte count in human-readable form (e.g. "64.2MB").
func GetSize(sizeVal int64) string {
	size := bytesize.New(float64(sizeVal))
	return size.String()
}

// BackupStamp returns the timestamp suffix used when replacing live
// configuration files, e.g. "20240131-150405".
func BackupStamp(t time.Time) string {
	return t.Format("20060102-150405")
}
