package tlsf

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// EngineVersion is this package's own version, checked against a Config's
// MinEngineVersion constraint at Create time. Bump it alongside any
// change to the on-disk/ABI-visible block layout.
const EngineVersion = "1.0.0"

func checkEngineVersion(constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("tlsf: invalid MinEngineVersion constraint %q: %w", constraint, err)
	}

	v, err := semver.NewVersion(EngineVersion)
	if err != nil {
		return fmt.Errorf("tlsf: invalid EngineVersion %q: %w", EngineVersion, err)
	}

	if !c.Check(v) {
		return fmt.Errorf("tlsf: engine version %s does not satisfy constraint %q", EngineVersion, constraint)
	}

	return nil
}
