package metadata

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CommonDir returns the deepest directory containing every file in files,
// as an absolute path. With no files it returns the working directory.
func CommonDir(files []string) (string, error) {
	if len(files) == 0 {
		return filepath.Abs(".")
	}

	dirs := make([][]string, len(files))
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", f, err)
		}
		dirs[i] = strings.Split(filepath.ToSlash(filepath.Dir(abs)), "/")
	}

	common := dirs[0]
	for _, d := range dirs[1:] {
		n := 0
		for n < len(common) && n < len(d) && common[n] == d[n] {
			n++
		}
		common = common[:n]
	}

	// Absolute slash paths split with a leading empty element for the root.
	joined := strings.Join(common, "/")
	if joined == "" {
		joined = "/"
	}
	return filepath.FromSlash(joined), nil
}
