package environment

import "strings"

// Environment is the deployment stage the daemon runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse maps a loose environment name ("prod", "stage", ...) onto a known
// Environment. Unknown values fall back to Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Production), "prod":
		return Production
	case string(Staging), "stage":
		return Staging
	default:
		return Development
	}
}

// Local reports whether e is a developer machine, where human-readable
// output and debug logging are preferred.
func (e Environment) Local() bool {
	return e == Development
}
