package manifest

// DefaultLanding is served to navigations when the network is down
const DefaultLanding = "index.html"

// Manifest describes one cache generation: the app it belongs to, its version
// tag and the static resources installed into it.
type Manifest struct {
	App       string   `yaml:"app"`
	Version   string   `yaml:"version"`
	Landing   string   `yaml:"landing,omitempty"`
	Resources []string `yaml:"resources"`
}
