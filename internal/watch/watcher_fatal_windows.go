// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

const (
	errnoTooManyOpenFiles = syscall.Errno(4)
	// The watched directory was deleted or unmounted.
	errnoInvalidHandle   = syscall.Errno(6)
	errnoNotEnoughMemory = syscall.Errno(8)
)

// isFatalFsnotifyError reports errors after which ReadDirectoryChangesW
// cannot deliver further events.
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, errnoTooManyOpenFiles) ||
		errors.Is(err, errnoInvalidHandle) ||
		errors.Is(err, errnoNotEnoughMemory)
}
