package scan

import (
	"os"
	"path/filepath"
)

// DefaultPattern matches CFGMML dump file names.
const DefaultPattern = "CFGMML*.txt"

type FileInfo struct {
	Path  string
	Mtime int64
	Size  int64
}

// Find walks root recursively and returns every regular file whose base name
// matches pattern. A missing root yields no files. A symlinked root is
// followed, as are symlinks to files; symlinked subdirectories are not
// descended into.
func Find(root, pattern string) ([]FileInfo, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}

	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	err = filepath.Walk(walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				return err
			}
			return nil // skip unreadable dirs
		}
		if ok, _ := filepath.Match(pattern, info.Name()); !ok {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				return nil // dangling link
			}
			info = target
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		// report paths under root as given, not under the resolved target
		if rel, err := filepath.Rel(walkRoot, path); err == nil {
			path = filepath.Join(root, rel)
		}
		files = append(files, FileInfo{
			Path:  path,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return nil, nil
	}
	return files, err
}
