package environment

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

var versionOperators = []string{"==", ">=", "<=", "!=", "~=", ">", "<"}

// packageSpecs reads the "packages" config key of description and validates
// any embedded version constraint with semver before the package list is
// handed to a provisioner subprocess, so a malformed constraint fails fast
// with a precise message instead of being discovered from the package
// manager's stderr (see SPEC_FULL.md Domain Stack).
func packageSpecs(description fingerprint.Description) ([]string, error) {
	raw, ok := description.Config["packages"]
	if !ok {
		return nil, nil
	}

	var specs []string
	switch v := raw.(type) {
	case []string:
		specs = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, isolateerrors.NewProvisionFailed("validating the package list", 0, "", errInvalidPackageSpec(""))
			}
			specs = append(specs, s)
		}
	default:
		return nil, isolateerrors.NewProvisionFailed("validating the package list", 0, "", errInvalidPackageSpec(""))
	}

	for _, spec := range specs {
		if err := validatePackageSpec(spec); err != nil {
			return nil, isolateerrors.NewProvisionFailed("validating the package list", 0, "", err)
		}
	}
	return specs, nil
}

func validatePackageSpec(spec string) error {
	for _, op := range versionOperators {
		if idx := strings.Index(spec, op); idx >= 0 {
			name := strings.TrimSpace(spec[:idx])
			version := strings.TrimSpace(spec[idx+len(op):])
			if name == "" {
				return errInvalidPackageSpec(spec)
			}
			if _, err := semver.ParseTolerant(version); err != nil {
				return errInvalidPackageSpec(spec)
			}
			return nil
		}
	}
	if strings.TrimSpace(spec) == "" {
		return errInvalidPackageSpec(spec)
	}
	return nil
}

type errInvalidPackageSpec string

func (e errInvalidPackageSpec) Error() string {
	return fmt.Sprintf("invalid package spec %q", string(e))
}
