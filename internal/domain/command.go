package domain

const (
	CommandCreate      Command = "create"
	CommandStop        Command = "stop"
	CommandRestart     Command = "restart"
	CommandReconfigure Command = "reconfigure"
	CommandDelete      Command = "delete"
	CommandStopAll     Command = "stop_all"
	CommandProvision   Command = "provision_device"
	CommandRetrain     Command = "retrain"
)

// Command identifies an operator command issued through the console.
type Command string

func (c Command) String() string {
	return string(c)
}

// CheckTransition reports whether the command may be issued against a session in the given status.
// Commands that do not target a single existing session are always permitted here.
func CheckTransition(cmd Command, status SessionStatus) error {
	switch status {
	case SessionRunning:
		switch cmd {
		case CommandStop, CommandReconfigure, CommandDelete:
			return nil
		}
	case SessionStopped:
		switch cmd {
		case CommandRestart, CommandDelete:
			return nil
		}
	case SessionError:
		switch cmd {
		case CommandDelete:
			return nil
		}
	default:
		return NewValidationError(ErrIllegalSessionState, "unknown session status \""+status.String()+"\"")
	}

	switch cmd {
	case CommandCreate, CommandStopAll, CommandProvision, CommandRetrain:
		return nil
	}

	return NewValidationError(ErrIllegalSessionState, "cannot "+cmd.String()+" a session that is "+status.String())
}
