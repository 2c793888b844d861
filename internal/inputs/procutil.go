package inputs

import (
	"os"
	"os/exec"
	"path/filepath"
)

// findBinary searches for name on PATH, then /usr/bin, then a bundled
// scripts directory, ported from the teacher's streams.findBinary. Falls
// back to the bare name so exec.Command still fails with a clear error.
func findBinary(name, scriptsDir string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	if p := filepath.Join("/usr/bin", name); fileExists(p) {
		return p
	}
	if scriptsDir != "" {
		if p := filepath.Join(scriptsDir, name); fileExists(p) {
			return p
		}
	}
	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeFileAtomic writes content via write-temp-then-rename, ported from
// the teacher's streams.writeFileAtomic.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
