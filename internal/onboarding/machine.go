package onboarding

import (
	"fmt"

	"whatsapp-intake/backend/internal/models"
)

// State is a sender's position in onboarding
type State string

const (
	StateUnknown    State = "unknown"
	StatePending    State = "pending"
	StateRegistered State = "registered"
)

// StateOf classifies a registry row; nil means the sender has never written
func StateOf(user *models.User) State {
	switch {
	case user == nil:
		return StateUnknown
	case user.IsRegistered():
		return StateRegistered
	default:
		return StatePending
	}
}

// Action is what the intake path must do for one inbound message
type Action string

const (
	ActionWelcome            Action = "welcome"
	ActionRegister           Action = "register"
	ActionInvalidPreferences Action = "invalid_preferences"
	ActionNone               Action = "none"
	ActionPassThrough        Action = "pass_through"
)

// Decision is the outcome of Decide. Reply is empty when nothing is sent.
// Preferences is set only for ActionRegister; Err only for ActionInvalidPreferences.
type Decision struct {
	Action      Action
	Preferences Preferences
	Reply       string
	Err         error
}

// Messages are the reply templates. Confirmation takes language then state.
type Messages struct {
	Welcome      string
	Confirmation string
}

// DefaultMessages returns the stock reply texts
func DefaultMessages() Messages {
	return Messages{
		Welcome: "Welcome! Before we begin, please reply with your preferred language and state in this format:\n" +
			"Language: <your language>\nState: <your state>",
		Confirmation: "Thanks! Your preferences have been saved.\nLanguage: %s\nState: %s",
	}
}

// Machine decides onboarding transitions. It holds no state of its own and
// is safe for concurrent use.
type Machine struct {
	messages Messages
}

// New creates a Machine. Empty templates fall back to the defaults.
func New(messages Messages) *Machine {
	defaults := DefaultMessages()
	if messages.Welcome == "" {
		messages.Welcome = defaults.Welcome
	}
	if messages.Confirmation == "" {
		messages.Confirmation = defaults.Confirmation
	}
	return &Machine{messages: messages}
}

// Decide picks the action for body given the sender's current registry row
func (m *Machine) Decide(user *models.User, body string) Decision {
	switch StateOf(user) {
	case StateUnknown:
		return Decision{Action: ActionWelcome, Reply: m.messages.Welcome}

	case StateRegistered:
		return Decision{Action: ActionPassThrough}
	}

	if !HasPreferenceTokens(body) {
		return Decision{Action: ActionNone}
	}

	prefs, err := ParsePreferences(body)
	if err != nil {
		return Decision{Action: ActionInvalidPreferences, Preferences: prefs, Err: err}
	}

	return Decision{
		Action:      ActionRegister,
		Preferences: prefs,
		Reply:       m.Confirmation(prefs),
	}
}

// Confirmation renders the confirmation reply for prefs
func (m *Machine) Confirmation(prefs Preferences) string {
	return fmt.Sprintf(m.messages.Confirmation, prefs.Language, prefs.State)
}
