// Package steps holds the concrete download and post-processing stages the
// queue drives.
package steps

// Output receives step output lines for an item.
type Output interface {
	Append(id, line string, replaceLast bool)
}

// Marker lines a download command may print to hand values back to the
// queue. They are consumed and not shown in the output log.
const (
	MarkerPlaylist = "TIDARR_PLAYLIST="
	MarkerURL      = "TIDARR_URL="
)
