package game

import "github.com/pthm-cable/galaxy/runner"

// Options holds configuration for game initialization.
type Options struct {
	runner.Options

	// ConfigPath is watched for changes when set. Edits reset the parameters
	// to the new file's values.
	ConfigPath string
}

// controlsLegend is the key help shown at the bottom of the screen.
const controlsLegend = "Space run/pause | S step | R reset | Backspace reset params | " +
	"C color | W wrap | H panels | Wheel/+/- zoom | Arrows pan | Home camera | F11 fullscreen"
