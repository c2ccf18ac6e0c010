package stdiox

import (
	"errors"
	"io"
)

// ErrNotSeekable is returned by File.Seek: a character stream has no file
// position.
var ErrNotSeekable = errors.New("stdiox: console stream is not seekable")

// File dresses a Console up as a file so it can stand in where file-shaped
// stdio is expected (REPLs, loggers, anything wanting an os.File-alike).
// There is no file system underneath: Close and Seek are documented no-ops,
// everything goes to the same stream regardless of name.
type File struct {
	c    *Console
	name string
}

var (
	_ io.ReadWriteCloser = (*File)(nil)
	_ io.Seeker          = (*File)(nil)
)

// NewFile wraps c in a File. The name is purely decorative.
func NewFile(c *Console, name string) *File {
	return &File{c: c, name: name}
}

func (f *File) Read(p []byte) (int, error)  { return f.c.Read(p) }
func (f *File) Write(p []byte) (int, error) { return f.c.Write(p) }

// Close is a no-op: the console outlives any file handle onto it.
func (f *File) Close() error { return nil }

// Seek always fails with ErrNotSeekable.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return 0, ErrNotSeekable
}

// Name returns the name the file was created with.
func (f *File) Name() string { return f.name }

// IsTerminal reports true: the stream is an interactive console.
func (f *File) IsTerminal() bool { return true }
