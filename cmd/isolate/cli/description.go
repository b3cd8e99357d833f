package cli

import (
	"encoding/json"
	"fmt"

	"github.com/isidentical/isolate/internal/pkg/fingerprint"
)

func parseDescription(kind, rawConfig string) (fingerprint.Description, error) {
	config := make(map[string]any)
	if rawConfig != "" {
		if err := json.Unmarshal([]byte(rawConfig), &config); err != nil {
			return fingerprint.Description{}, fmt.Errorf("parsing --config as JSON: %w", err)
		}
	}
	return fingerprint.Description{Kind: kind, Config: config}, nil
}
