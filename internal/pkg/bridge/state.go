package bridge

// state is the bridge session's state machine position, used for logging
// and for deciding which failure type a timeout or error maps to.
type state int

const (
	stateCreated state = iota
	stateListening
	stateChildSpawned
	stateConnected
	stateRequestSent
	stateResultReceived
	stateClosed
	stateSpawnFailed
	stateHandshakeFailed
	stateProtocolFault
	stateChildCrashed
)

func (s state) String() string {
	switch s {
	case stateCreated:
		return "CREATED"
	case stateListening:
		return "LISTENING"
	case stateChildSpawned:
		return "CHILD_SPAWNED"
	case stateConnected:
		return "CONNECTED"
	case stateRequestSent:
		return "REQUEST_SENT"
	case stateResultReceived:
		return "RESULT_RECEIVED"
	case stateClosed:
		return "CLOSED"
	case stateSpawnFailed:
		return "SPAWN_FAILED"
	case stateHandshakeFailed:
		return "HANDSHAKE_FAILED"
	case stateProtocolFault:
		return "PROTOCOL_FAULT"
	case stateChildCrashed:
		return "CHILD_CRASHED"
	default:
		return "UNKNOWN"
	}
}
