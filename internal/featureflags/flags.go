package featureflags

import (
	"os"
	"strings"
)

// Flag names, read from FLAG_<NAME>
const (
	AutoPublish      = "auto_publish"
	SelfRegistration = "self_registration"
	SeedDemoData     = "seed_demo_data"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Flags is a snapshot of the switches the server reads at startup
type Flags struct {
	AutoPublish      bool
	SelfRegistration bool
	SeedDemoData     bool
}

// Load reads every known flag. Self-registration defaults to on unless FLAG_SELF_REGISTRATION is set.
func Load() Flags {
	selfReg := true
	if _, set := os.LookupEnv("FLAG_SELF_REGISTRATION"); set {
		selfReg = Enabled(SelfRegistration)
	}
	return Flags{
		AutoPublish:      Enabled(AutoPublish),
		SelfRegistration: selfReg,
		SeedDemoData:     Enabled(SeedDemoData),
	}
}
