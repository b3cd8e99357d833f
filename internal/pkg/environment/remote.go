package environment

import (
	"context"

	isolateerrors "github.com/isidentical/isolate/internal/pkg/errors"
	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

// RemoteManager is the remote backend: it never touches the local
// file system. Materialize only computes a fingerprint (folding in the
// remote host address, see fingerprint.OfRemote) and returns a Handle whose
// RootPath is the remote host descriptor; the actual provisioning of the
// inner description is deferred to the peer when the bridge opens a
// session through the remote facade (see internal/pkg/remote).
//
// Description.Config is expected to carry:
//
//	"host":         string         // address of the peer runtime
//	"target_kind":   string        // the inner environment's kind
//	"target_config": map[string]any // the inner environment's config
type RemoteManager struct{}

// NewRemoteManager builds the remote backend.
func NewRemoteManager() *RemoteManager { return &RemoteManager{} }

func (m *RemoteManager) Kind() string { return KindRemote }

func (m *RemoteManager) Materialize(_ context.Context, description fingerprint.Description, _ ...MaterializeOption) (Handle, error) {
	host, _ := description.Config["host"].(string)
	if host == "" {
		return Handle{}, isolateerrors.NewProvisionFailed("resolving the remote host", 0, "", errRequiredKey("host"))
	}

	inner := InnerDescription(description)
	fp := fingerprint.OfRemote(host, inner)

	return Handle{
		Kind:        KindRemote,
		Fingerprint: fp,
		RootPath:    host,
	}, nil
}

func (m *RemoteManager) Discard(Handle) error {
	// Provisioning, if any, happened on the peer; nothing to remove here.
	return nil
}

// InnerDescription extracts the target environment description a remote
// Description wraps, for use by both the fingerprint and the facade client.
func InnerDescription(description fingerprint.Description) fingerprint.Description {
	kind, _ := description.Config["target_kind"].(string)
	config, _ := description.Config["target_config"].(map[string]any)
	return fingerprint.Description{Kind: kind, Config: config}
}
