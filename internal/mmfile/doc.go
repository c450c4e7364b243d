// Package mmfile loads hive images for read-only inspection.
//
// On unix the file is memory-mapped. On Windows it is opened with backup
// semantics so a process holding SeBackupPrivilege can read snapshot copies
// under System Volume Information, then read into memory. Other platforms
// fall back to os.ReadFile.
package mmfile

import (
	"errors"
	"fmt"
)

// MaxSize bounds the files Map accepts. Real NTUSER.DAT files stay well below.
const MaxSize = 1 << 30

// ErrTooLarge reports a file above MaxSize.
var ErrTooLarge = errors.New("mmfile: file too large")

func checkSize(size int64) error {
	if size > MaxSize {
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, size)
	}
	return nil
}

func noop() error { return nil }
