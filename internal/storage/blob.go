package storage

import "io"

// Workspace is a private directory for one unit of work. Nothing written to
// it survives Close.
type Workspace interface {
	Dir() string
	Put(name string, r io.Reader) (string, error) // returns absolute path
	Close() error
}
