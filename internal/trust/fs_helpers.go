package trust

import (
	"os"
	"path/filepath"
)

// calculateDirSize sums the size of every regular file under dir,
// recursively. A missing directory reports zero rather than an error, since
// it's only ever used for best-effort size reporting.
func calculateDirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// countDirContents counts regular files and total bytes under dir.
func countDirContents(dir string) (int, int64) {
	var count int
	var total int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		count++
		total += info.Size()
		return nil
	})
	return count, total
}
