// Package buildinfo carries the identity of the binary.
package buildinfo

import "fmt"

// Version is overridden at link time:
// go build -ldflags="-X github.com/paulschiretz/pgl-figcompress/pkg/buildinfo.Version=1.0.0"
var Version = "dev"

// Name is the canonical name of the application used for logging.
var Name = "PGL-Figcompress"

// Banner returns the "Name(Version)" prefix used in usage texts.
func Banner() string {
	return fmt.Sprintf("%s(%s)", Name, Version)
}
