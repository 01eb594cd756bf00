package domain

import (
	"errors"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

var ErrBadFilename = errors.New("invalid filename")

// SanitizeFilename reduces a client-supplied filename to a safe storage key:
// directory components are stripped, empty and dot names rejected, and the
// result bounded to maxFilenameLen bytes keeping the extension. Well-formed
// names pass through unchanged.
func SanitizeFilename(name string) (string, error) {
	// Clients on Windows send backslash separators.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrBadFilename
	}
	if strings.ContainsAny(name, "\x00") {
		return "", ErrBadFilename
	}

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLen {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}

	return name, nil
}
