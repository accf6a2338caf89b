package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LibPathKey is the settings key holding the library directory.
const LibPathKey = "libPath"

// Settings is the persisted key-value store used for the library directory.
type Settings interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// ResolveLibDir returns the directory holding the native libraries.
//
// The persisted LibPathKey wins when it is a string naming an existing path.
// Otherwise <root>/<appName>/core is used and created, where root is dataDir
// or, when empty, the user config directory. Absolute results are cleaned and
// written back to settings.
func ResolveLibDir(ctx context.Context, settings Settings, appName, dataDir string) (string, error) {
	var dir string

	if settings != nil {
		v, ok, err := settings.Get(ctx, LibPathKey)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", LibPathKey, err)
		}
		if s, isString := v.(string); ok && isString && s != "" {
			if _, statErr := os.Stat(s); statErr == nil {
				dir = s
			}
		}
	}

	if dir == "" {
		root := dataDir
		if root == "" {
			userDir, err := os.UserConfigDir()
			if err != nil {
				return "", fmt.Errorf("locating user config dir: %w", err)
			}
			root = userDir
		}
		dir = filepath.Join(root, appName, "core")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("creating lib dir: %w", err)
		}
	}

	if filepath.IsAbs(dir) {
		dir = filepath.Clean(dir)
		if settings != nil {
			if err := settings.Set(ctx, LibPathKey, dir); err != nil {
				return "", fmt.Errorf("persisting %s: %w", LibPathKey, err)
			}
		}
	}

	return dir, nil
}
