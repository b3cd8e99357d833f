package bridge

import "testing"

func TestStateStringNamesEveryState(t *testing.T) {
	states := []state{
		stateCreated, stateListening, stateChildSpawned, stateConnected,
		stateRequestSent, stateResultReceived, stateClosed, stateSpawnFailed,
		stateHandshakeFailed, stateProtocolFault, stateChildCrashed,
	}
	seen := make(map[string]bool)
	for _, s := range states {
		name := s.String()
		if name == "UNKNOWN" || seen[name] {
			t.Fatalf("state %d produced unexpected or duplicate name %q", s, name)
		}
		seen[name] = true
	}
}

func TestStateStringUnknown(t *testing.T) {
	var s state = 999
	if s.String() != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN, got %q", s.String())
	}
}
