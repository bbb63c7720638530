package pathutil

import "errors"

var (
	// ErrPathNull is returned for a null or empty path.
	ErrPathNull = errors.New("pathutil: path is null or empty")
	// ErrPathTooLong is returned for a path longer than 4096 bytes.
	ErrPathTooLong = errors.New("pathutil: path exceeds 4096 bytes")
	// ErrPathControlChars is returned for a path containing a control character.
	ErrPathControlChars = errors.New("pathutil: path contains a control character")
	// ErrPathNullByte is returned for a path containing a NUL byte specifically.
	ErrPathNullByte = errors.New("pathutil: path contains a null byte")
	// ErrPathWindowsInvalid is returned for a path containing a Windows-reserved character.
	ErrPathWindowsInvalid = errors.New(`pathutil: path contains one of < > : " | ? *`)
)
