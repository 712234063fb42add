package tools

// Emitter receives tool lifecycle events. The session controller implements
// it on top of the client event protocol; pipelines themselves only report
// phase transitions through their onPhase callback, and the controller turns
// those into Step events. Keeping the interface here decouples pipelines and
// controller from the transport.
type Emitter interface {
	// Started signals that a tool invocation began.
	Started(tool string)

	// Step reports a named phase transition ("Navigating…", "Uploading…").
	Step(tool, message string)

	// Done delivers the success result.
	Done(tool string, result any)

	// Error delivers the failure result.
	Error(tool string, result any)
}

// NopEmitter discards all events. Useful for tests and non-interactive calls.
type NopEmitter struct{}

func (NopEmitter) Started(string)        {}
func (NopEmitter) Step(string, string)   {}
func (NopEmitter) Done(string, any)      {}
func (NopEmitter) Error(string, any)     {}

var _ Emitter = NopEmitter{}
