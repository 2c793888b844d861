package outputs

import (
	"os"
	"os/exec"
	"path/filepath"
)

// findBinary searches PATH then /usr/bin for name, ported from the
// teacher's streams.findBinary, falling back to the bare name so
// exec.Command still fails with a clear error.
func findBinary(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	if p := filepath.Join("/usr/bin", name); fileExists(p) {
		return p
	}
	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
