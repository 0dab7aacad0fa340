package manifest

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// copyStatic copies the tree below src into outDir/dest and returns the
// copied files relative to outDir, slash separated and sorted.
func copyStatic(src, outDir, dest string) ([]string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static asset source %s is not a directory", src)
	}

	var copied []string
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := path.Join(filepath.ToSlash(dest), filepath.ToSlash(rel))
		if err := copyFile(p, filepath.Join(outDir, filepath.FromSlash(target))); err != nil {
			return err
		}
		copied = append(copied, target)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copying static assets from %s: %w", src, err)
	}
	sort.Strings(copied)
	return copied, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
