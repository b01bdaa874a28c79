package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/akashmane1598/hyperdash/pkg"
)

const (
	// baseConfig is the base name of the configuration files.
	baseConfig = "config"

	configYAML = baseConfig + ".yaml"
	configJSON = baseConfig + ".json"
)

// defaultDirMode is the permission mode of created directories.
const defaultDirMode os.FileMode = 0o700

// basePrefix names the configuration and cache directories. It is the base
// name of the executable, with the dlv debugger's default output name
// replaced by the package name and leading dots removed.
var basePrefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		id = filepath.Base(id)
		id = strings.TrimSuffix(id, filepath.Ext(id))
		id = regexp.MustCompile(`^__debug_bin\d*$`).ReplaceAllString(id, pkg.Name)
		id = strings.TrimLeft(id, ".")

		if id == "" {
			id = pkg.Name
		}

		return id
	},
)

// userDir returns the directory from dir, falling back to fallback under
// the home directory and then to the working directory.
func userDir(dir func() (string, error), fallback string) string {
	if d, err := dir(); err == nil {
		return filepath.Join(d, basePrefix())
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback, basePrefix())
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, basePrefix())
	}

	return basePrefix()
}

// configDir returns the configuration directory path.
var configDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

// cacheDir returns the cache directory path used for history and profiles.
var cacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// configPath joins elem to the configuration directory.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{configDir(), cacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
