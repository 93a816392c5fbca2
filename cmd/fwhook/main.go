// Fwhook runs the build-time steps of a PlatformIO firmware project: it
// stamps the build number and pre-compresses web assets for the filesystem
// image.
package main

import "github.com/albertocavalcante/fwhook/cmd/fwhook/internal/cli"

func main() {
	cli.Execute()
}
