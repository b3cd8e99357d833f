package environment

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

// PackageManagerProvisioner is the package-manager-runtime backend's
// Provisioner. It shells out to an external package manager (conda/mamba),
// passing a prefix path and the package list; success is defined as a zero
// exit status plus the presence of the expected runtime binary, mirroring
// backends/conda.py's CondaEnvironment.create.
//
// Description.Config is expected to carry:
//
//	"packages": []string // package specs passed verbatim to the package manager
type PackageManagerProvisioner struct {
	Executable string // package manager command name or absolute path
	condaHome  string // searched for Executable if PATH lookup fails

	lookupMu sync.Mutex
	resolved string // memoized after the first successful lookup only
}

// NewPackageManagerManager builds the package-manager-runtime Manager.
// condaExe and condaHome mirror the reference's CONDA_EXE / ISOLATE_CONDA_HOME
// overrides (see internal/pkg/config).
func NewPackageManagerManager(cacheRoot, condaExe, condaHome string) Manager {
	p := &PackageManagerProvisioner{}
	p.Executable = condaExe
	if p.Executable == "" {
		p.Executable = "conda"
	}
	p.condaHome = condaHome
	return newCachedManager(KindPackageManager, cacheRoot, p)
}

func (p *PackageManagerProvisioner) Provision(ctx context.Context, scratchDir string, description fingerprint.Description) (string, []string, error) {
	exe, err := p.resolveExecutable()
	if err != nil {
		return "", nil, isolateerrors.NewProvisionFailed("resolving the package manager executable", 0, "", err)
	}

	packages, err := packageSpecs(description)
	if err != nil {
		return "", nil, err
	}

	args := append([]string{"create", "--yes", "--prefix", scratchDir}, packages...)
	if err := runCapturingStderr(ctx, "installing packages", exe, args...); err != nil {
		return "", nil, err
	}

	runtimeBin := filepath.Join(scratchDir, "bin", "python3")
	if _, statErr := os.Stat(runtimeBin); statErr != nil {
		return "", nil, isolateerrors.NewProvisionFailed(
			"verifying the provisioned runtime", 0, "",
			missingKeyError("expected runtime binary not found after a successful package manager exit"),
		)
	}

	return runtimeBin, []string{libDir(scratchDir)}, nil
}

func (p *PackageManagerProvisioner) DescribeReady(root string) (string, []string) {
	return filepath.Join(root, "bin", "python3"), []string{libDir(root)}
}

func (p *PackageManagerProvisioner) resolveExecutable() (string, error) {
	p.lookupMu.Lock()
	defer p.lookupMu.Unlock()
	if p.resolved != "" {
		return p.resolved, nil
	}
	resolved, err := exec.LookPath(p.Executable)
	if err != nil && p.condaHome != "" {
		candidate := filepath.Join(p.condaHome, "bin", p.Executable)
		if _, statErr := os.Stat(candidate); statErr == nil {
			resolved, err = candidate, nil
		}
	}
	if err != nil {
		return "", err
	}
	p.resolved = resolved
	return resolved, nil
}
