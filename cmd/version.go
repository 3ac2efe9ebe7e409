package cmd

import (
	"fmt"
	"runtime"
)

// RunVersion prints the application version together with the Go toolchain
// and platform the binary was built for.
func RunVersion(appName, appVersion string) error {
	fmt.Printf("%s version %s (%s, %s/%s)\n", appName, appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
