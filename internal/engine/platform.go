package engine

import (
	"fmt"
	"runtime"
)

// Platform names the shared libraries the engine needs on one operating system.
type Platform struct {
	// Dependencies are opened in order before the primary library.
	Dependencies []string

	// Primary is the engine library file name.
	Primary string
}

// platforms is keyed by runtime.GOOS.
var platforms = map[string]Platform{
	"windows": {
		Dependencies: []string{
			"libiomp5md.dll",
			"mklml.dll",
			"mkldnn.dll",
			"opencv_world453.dll",
			"paddle_inference.dll",
			"ppocr.dll",
			"penguin-stats-recognize.dll",
		},
		Primary: "MeoAssistant.dll",
	},
	"darwin": {
		Dependencies: []string{"libpaddle_inference.dylib"},
		Primary:      "MeoAssistant.dylib",
	},
	"linux": {
		Primary: "libMeoAssistant.so",
	},
}

// PlatformFor returns the library table for goos.
func PlatformFor(goos string) (Platform, error) {
	p, ok := platforms[goos]
	if !ok {
		return Platform{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	deps := make([]string, len(p.Dependencies))
	copy(deps, p.Dependencies)
	p.Dependencies = deps
	return p, nil
}

// CurrentPlatform returns the library table for the running operating system.
func CurrentPlatform() (Platform, error) {
	return PlatformFor(runtime.GOOS)
}
