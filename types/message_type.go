package types

// MessageType tags every line written to stdout
type MessageType string

const (
	ConnectionStatusMessage MessageType = "CONNECTION_STATUS"
	SpecMessage             MessageType = "SPEC"

	// sink messages
	SchemaMessage          MessageType = "SCHEMA"
	RecordMessage          MessageType = "RECORD"
	ActivateVersionMessage MessageType = "ACTIVATE_VERSION"
	StateMessage           MessageType = "STATE"
)

type ConnectionStatus string

const (
	ConnectionSucceed ConnectionStatus = "SUCCEEDED"
	ConnectionFailed  ConnectionStatus = "FAILED"
)
