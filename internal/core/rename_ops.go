package core

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Swappable for tests that need to simulate EXDEV or count moves.
var renameFunc = os.Rename

// CrossDeviceError marks a move that failed because source and destination
// live on different filesystems. Files are never copied and deleted instead.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cannot move %q to %q across filesystems: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// moveFile renames oldPath to newPath, refusing to replace an existing file.
// It returns ErrRenameCollision or the underlying filesystem error.
// The existence check and the move are not atomic; concurrent writers
// targeting the same destination surface as a collision or an I/O error.
func moveFile(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return ErrRenameCollision
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := renameFunc(oldPath, newPath); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return &CrossDeviceError{Src: oldPath, Dst: newPath, Err: err}
		}
		return err
	}
	return nil
}
