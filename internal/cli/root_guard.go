package cli

import (
	"fmt"
	"os"
)

// AllowRootEnv lets the CLI run as root when set to any value
const AllowRootEnv = "RPBDD_ALLOW_ROOT"

// EnsureNonRoot returns an error if the CLI is running as root without explicit override.
func EnsureNonRoot() error {
	if runningAsRoot() && os.Getenv(AllowRootEnv) == "" {
		return fmt.Errorf("refusing to run as root. set %s=1 to override (not recommended)", AllowRootEnv)
	}
	return nil
}
