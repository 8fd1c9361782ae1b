package checkout

import (
	"fmt"
	"os"

	"github.com/kazz187/ccsetup/pkg/cerr"
)

// WithWorkDir runs fn with the process working directory set to dir and
// restores the previous one on every exit path, panics included. The working
// directory is process wide: callers must not run two of these concurrently.
func WithWorkDir(dir string, fn func() error) (err error) {
	prev, err := os.Getwd()
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to get working directory", err)
	}
	if err := os.Chdir(dir); err != nil {
		return cerr.NewError(cerr.InvalidDirectory, fmt.Sprintf("cannot change to %s", dir), err)
	}
	defer func() {
		if chErr := os.Chdir(prev); chErr != nil && err == nil {
			err = cerr.NewError(cerr.Internal, fmt.Sprintf("failed to restore working directory %s", prev), chErr)
		}
	}()
	return fn()
}
