package transform

import (
	"strings"

	"github.com/IshaanNene/gameharvest/internal/types"
)

type controlScheme struct {
	keywords []string
	controls []types.Control
}

// controlSchemes are tried in order against the lower-cased title.
var controlSchemes = []controlScheme{
	{
		keywords: []string{"racing", "car", "race", "drive"},
		controls: []types.Control{{Key: "Arrow Keys", Action: "STEER"}, {Key: "Space", Action: "BRAKE"}, {Key: "Shift", Action: "NITRO"}},
	},
	{
		keywords: []string{"shoot", "gun", "battle", "war"},
		controls: []types.Control{{Key: "Mouse", Action: "AIM"}, {Key: "Left Click", Action: "SHOOT"}, {Key: "WASD", Action: "MOVE"}},
	},
	{
		keywords: []string{"puzzle", "match", "connect"},
		controls: []types.Control{{Key: "Mouse", Action: "SELECT"}, {Key: "Click", Action: "PLACE"}, {Key: "Drag", Action: "MOVE"}},
	},
	{
		keywords: []string{"idle", "tycoon", "management"},
		controls: []types.Control{{Key: "Mouse", Action: "MANAGE"}, {Key: "Click", Action: "UPGRADE"}, {Key: "Scroll", Action: "NAVIGATE"}},
	},
}

var genericControls = []types.Control{{Key: "Mouse", Action: "INTERACT"}, {Key: "Click", Action: "PLAY"}, {Key: "Arrow Keys", Action: "MOVE"}}

// InferControls guesses a control scheme from title keywords.
func InferControls(title string) []types.Control {
	lower := strings.ToLower(title)
	for _, s := range controlSchemes {
		if containsAny(lower, s.keywords) {
			return append([]types.Control(nil), s.controls...)
		}
	}
	return append([]types.Control(nil), genericControls...)
}

// ControlsFromFeatures reads "key = action" entries extracted from the
// item page.
func ControlsFromFeatures(features []string) []types.Control {
	var out []types.Control
	for _, f := range features {
		key, action, ok := strings.Cut(f, "=")
		key, action = strings.TrimSpace(key), strings.TrimSpace(action)
		if !ok || key == "" || action == "" {
			continue
		}
		out = append(out, types.Control{Key: key, Action: strings.ToUpper(action)})
	}
	return out
}

var featureExtras = []struct {
	keywords []string
	feature  string
}{
	{[]string{"multiplayer", "multi", "battle"}, "Multiplayer"},
	{[]string{"3d"}, "3D Graphics"},
	{[]string{"idle", "tycoon"}, "Idle"},
	{[]string{"puzzle", "brain"}, "Puzzle"},
	{[]string{"racing", "car"}, "Racing"},
}

// SynthesizeFeatures builds a feature list for records the detail pass
// supplied none for.
func SynthesizeFeatures(title string) []string {
	lower := strings.ToLower(title)
	features := []string{"Online", "Free"}
	for _, e := range featureExtras {
		if containsAny(lower, e.keywords) {
			features = append(features, e.feature)
		}
	}
	return features
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
