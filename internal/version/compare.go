package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckVersionCompatibility checks if the core and an API client version are compatible.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckVersionCompatibility(coreVersion, clientVersion string) error {
	// Strip 'v' prefix if present for consistency
	coreVersion = strings.TrimPrefix(coreVersion, "v")
	clientVersion = strings.TrimPrefix(clientVersion, "v")

	// Skip version check for "main" (development builds)
	if coreVersion == "main" || clientVersion == "main" {
		return nil
	}

	coreSemver, err := semver.NewVersion(coreVersion)
	if err != nil {
		return fmt.Errorf("invalid core version '%s': %w", coreVersion, err)
	}

	clientSemver, err := semver.NewVersion(clientVersion)
	if err != nil {
		return fmt.Errorf("invalid client version '%s': %w", clientVersion, err)
	}

	if coreSemver.Major() != clientSemver.Major() {
		return fmt.Errorf("major version mismatch: core is %d.x.x but client requires %d.x.x",
			coreSemver.Major(), clientSemver.Major())
	}

	if coreSemver.Minor() != clientSemver.Minor() {
		return fmt.Errorf("minor version mismatch: core is %d.%d.x but client requires %d.%d.x",
			coreSemver.Major(), coreSemver.Minor(),
			clientSemver.Major(), clientSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
