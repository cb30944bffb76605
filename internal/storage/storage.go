package storage

import (
	"errors"
	"io"
)

var ErrInvalidPath = errors.New("invalid path")

// Storage holds generated clips and final tour videos. Names are relative
// to the store root.
type Storage interface {
	SaveFile(name string, r io.Reader) (string, error)
	OpenFile(name string) (io.ReadSeekCloser, error)
	DeleteFile(name string) error
	Path(name string) (string, error)
}
