// Package pathutil implements the path normaliser and validator (C1):
// canonicalising file-entry paths and rejecting structurally invalid input.
package pathutil

import (
	"strings"
)

const maxPathBytes = 4096

// windowsInvalidChars are rejected even though the engine is not Windows-specific;
// the spec asks for the same reserved-character set Windows enforces on its filesystems.
const windowsInvalidChars = `<>:"|?*`

// Normalize canonicalises path per the rules below, applied in order:
//  1. reject null/empty input
//  2. reject paths over 4096 bytes
//  3. reject control characters (0x00-0x1F), with a dedicated error for NUL
//  4. reject Windows-reserved characters
//  5. ensure a leading '/'
//  6. collapse repeated '/'
//  7. strip a trailing '/' (unless the result would be empty)
//
// Normalize is idempotent: Normalize(Normalize(p)) == Normalize(p) for any p
// it accepts.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", ErrPathNull
	}
	if len(path) > maxPathBytes {
		return "", ErrPathTooLong
	}
	for _, b := range []byte(path) {
		if b == 0x00 {
			return "", ErrPathNullByte
		}
		if b <= 0x1F {
			return "", ErrPathControlChars
		}
	}
	if strings.ContainsAny(path, windowsInvalidChars) {
		return "", ErrPathWindowsInvalid
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	path = collapseSlashes(path)

	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	return path, nil
}

func collapseSlashes(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
