package install

import (
	"fmt"
	"os"
	"path/filepath"
)

// shimScript is the body of a generated bin shim: a small shell launcher
// that re-invokes the runtime against the package's module request, per
// spec.md §4.8 step 5. %s placeholders are the runtime binary name and the
// module request, in that order.
const shimScript = "#!/bin/sh\nexec %s -c \"require('%s').main()\" \"$@\"\n"

// writeShims generates one launcher per "bin" entry into
// "<modules-dir>/.bin/", re-invoking the runtime with the package's module
// request (spec.md §4.8 step 5).
func writeShims(modulesDir, runtimeBinary string, bin map[string]string) error {
	if len(bin) == 0 {
		return nil
	}
	binDir := filepath.Join(modulesDir, ".bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("install: creating %q: %w", binDir, err)
	}
	for name, request := range bin {
		shimPath := filepath.Join(binDir, name)
		contents := fmt.Sprintf(shimScript, runtimeBinary, request)
		if err := os.WriteFile(shimPath, []byte(contents), 0o755); err != nil {
			return fmt.Errorf("install: writing shim %q: %w", shimPath, err)
		}
	}
	return nil
}

// wrapNativeShim wraps a shim the host-language installer already wrote at
// shimPath with a proxy that prepends the module search path before
// delegating, per spec.md §4.8 step 5: "Shims installed by the host-language
// installer are wrapped with a proxy that prepends the correct search path."
func wrapNativeShim(shimPath, modulesDir string) error {
	original, err := os.ReadFile(shimPath)
	if err != nil {
		return fmt.Errorf("install: reading native shim %q: %w", shimPath, err)
	}
	wrapped := fmt.Sprintf("#!/bin/sh\nexport PKGRUN_PATH=\"%s:$PKGRUN_PATH\"\n%s", modulesDir, original)
	return os.WriteFile(shimPath, []byte(wrapped), 0o755)
}
