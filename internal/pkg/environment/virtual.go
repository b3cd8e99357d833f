package environment

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

// VirtualProvisioner is the virtual-runtime backend's Provisioner: it
// creates an isolated runtime tree via the platform's standard mechanism
// (a venv) rooted at the given base interpreter, then installs the
// configured packages into it with pip.
//
// Description.Config is expected to carry:
//
//	"base_interpreter": string    // interpreter used to create the venv, default "python3"
//	"packages":          []string // package specs, e.g. "requests==2.31.0"
type VirtualProvisioner struct {
	// BaseInterpreterResolver resolves a base interpreter name to an
	// absolute path; overridable in tests.
	BaseInterpreterResolver func(name string) (string, error)
}

// NewVirtualManager builds the virtual-runtime Manager.
func NewVirtualManager(cacheRoot string) Manager {
	p := &VirtualProvisioner{BaseInterpreterResolver: exec.LookPath}
	return newCachedManager(KindVirtual, cacheRoot, p)
}

func (p *VirtualProvisioner) Provision(ctx context.Context, scratchDir string, description fingerprint.Description) (string, []string, error) {
	base, _ := description.Config["base_interpreter"].(string)
	if base == "" {
		base = "python3"
	}
	baseBin, err := p.BaseInterpreterResolver(base)
	if err != nil {
		return "", nil, isolateerrors.NewProvisionFailed("resolving the base interpreter", 0, "", err)
	}

	if err := runCapturingStderr(ctx, "creating the virtual runtime", baseBin, "-m", "venv", scratchDir); err != nil {
		return "", nil, err
	}

	packages, err := packageSpecs(description)
	if err != nil {
		return "", nil, err
	}
	if len(packages) > 0 {
		pip := filepath.Join(scratchDir, "bin", "pip")
		args := append([]string{"install", "--quiet"}, packages...)
		if err := runCapturingStderr(ctx, "installing packages", pip, args...); err != nil {
			return "", nil, err
		}
	}

	runtimeBin := filepath.Join(scratchDir, "bin", filepath.Base(base))
	return runtimeBin, []string{libDir(scratchDir)}, nil
}

func (p *VirtualProvisioner) DescribeReady(root string) (string, []string) {
	return filepath.Join(root, "bin", "python3"), []string{libDir(root)}
}

// libDir returns the platform-standard pure-library directory of a venv
// rooted at root. Real venvs nest this under a versioned "pythonX.Y"
// directory; callers needing the exact version probe the venv's pyvenv.cfg,
// which is out of scope for the core's search-path composition logic.
func libDir(root string) string {
	return filepath.Join(root, "lib", "site-packages")
}

func runCapturingStderr(ctx context.Context, phase, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return isolateerrors.NewProvisionFailed(phase, exitCode, stderr.String(), err)
	}
	return nil
}
