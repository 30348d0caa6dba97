package turn

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindForbidden           Kind = "forbidden"
	KindInvalidInput        Kind = "invalid_input"
	KindUserMessageNotFound Kind = "user_message_not_found"
	KindModelNotFound       Kind = "model_not_found"
	KindNoReplyProduced     Kind = "no_reply_produced"
	KindStoreError          Kind = "store_error"
	KindInferenceError      Kind = "inference_error"
)

// State is a stage of one turn. A failed turn reports the last state it reached.
type State string

const (
	StateReceived             State = "received"
	StateAuthenticated        State = "authenticated"
	StateValidated            State = "validated"
	StateChatEnsured          State = "chat_ensured"
	StateUserMessagePersisted State = "user_message_persisted"
	StateInferenceRequested   State = "inference_requested"
	StateReplyPersisted       State = "reply_persisted"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

type Error struct {
	Kind  Kind
	State State
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(kind Kind, state State, op string, err error) error {
	return &Error{Kind: kind, State: state, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StateOf returns the last state reached before err, or "".
func StateOf(err error) State {
	var te *Error
	if errors.As(err, &te) {
		return te.State
	}
	return ""
}
