package daemoncmd

// LaunchOptions configures how Backend.Launch starts the browser.
type LaunchOptions struct {
	Headless    bool
	Width       int
	Height      int
	UserDataDir string // profile directory to reuse across runs
}

// Backend drives one browser for the scripted/manual command surface
// webnav daemon hosts and webnav ctl talks to. It is the low-level
// counterpart to transport.Browser, which the agent loop drives directly;
// this surface is addressed by CSS selector rather than outline ref.
type Backend interface {
	Launch(opts LaunchOptions) error
	Close() error
	IsLaunched() bool

	Navigate(url string) (finalURL, title string, err error)
	Back() error
	Forward() error
	Reload() error

	Click(selector string) error
	Fill(selector, value string) error
	Hover(selector string) error
	Press(key, selector string) error
	Scroll(direction string, amount int) error

	Evaluate(script string) (interface{}, error)
	GetText(selector string) (string, error)
	Title() (string, error)
	URL() (string, error)

	// Outline returns the current page as a reduced, ref-tagged
	// accessibility outline, the same representation the agent loop
	// consumes.
	Outline() (string, error)
}

// BackendType names a Backend implementation. chromedp is the only one
// this module ships; the type survives so webnav daemon's --backend flag
// has somewhere to point if a second backend is ever added.
type BackendType string

const BackendChromedp BackendType = "chromedp"

// NewBackend constructs the Backend for the given type.
func NewBackend(backendType BackendType) Backend {
	switch backendType {
	case BackendChromedp:
		fallthrough
	default:
		return NewChromeDPBackend()
	}
}
