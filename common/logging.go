package common

import (
	"bytes"
	"os"
)

// OutputSplitter routes formatted log lines to stderr when they carry
// level=error or level=fatal, and to stdout otherwise, so that container
// log collectors can treat the two streams differently.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}
