package interpret

// Action is the automation decision a confidence score gates into.
type Action string

const (
	ActionAutoExecute Action = "auto_execute" // run without asking
	ActionConfirm     Action = "confirm"      // show the plan, ask yes/no
	ActionClarify     Action = "clarify"      // ask the clarifying questions
	ActionReject      Action = "reject"       // refuse, ask for a rephrase
)

// Gate maps a confidence score to the action the caller should take.
func Gate(confidence int) Action {
	switch {
	case confidence >= 90:
		return ActionAutoExecute
	case confidence >= ConfirmThreshold:
		return ActionConfirm
	case confidence >= 40:
		return ActionClarify
	default:
		return ActionReject
	}
}
