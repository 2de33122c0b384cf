// Public domain.

// Command linktracklets links short-arc tracklets into multi-night tracks.
// See the package documentation at the repository root for details.
package main

import "github.com/mopsworks/linktracklets/internal/ltprog"

func main() {
	ltprog.Main()
}
