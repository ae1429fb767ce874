// Package assets bundles the resources shipped inside the game client.
package assets

import (
	"embed"
	"io/fs"

	"github.com/CloudNativeWorks/rollaball-license/rblicense"
)

//go:embed license_public_key.xml
var files embed.FS

// FS returns the embedded resource files.
func FS() fs.FS {
	return files
}

// Resources returns a loader over the embedded resources.
func Resources() *rblicense.FSResources {
	return rblicense.NewFSResources(files)
}
