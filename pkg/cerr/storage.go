package cerr

import (
	"fmt"
)

// WrapStorageReadError classifies a failed read or existence check of
// target. Storage failures are never the caller's fault.
func WrapStorageReadError(target string, err error) error {
	return NewError(Internal, fmt.Sprintf("failed to read %s", target), err)
}

func WrapStorageWriteError(target string, err error) error {
	return NewError(Internal, fmt.Sprintf("failed to write %s", target), err)
}
