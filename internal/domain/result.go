package domain

import "fmt"

type FailureKind string

const (
	FailureTransport   FailureKind = "transport"
	FailureAuth        FailureKind = "auth"
	FailureNotFound    FailureKind = "not_found"
	FailureUnavailable FailureKind = "unavailable"
	FailureInvalid     FailureKind = "invalid"
	FailureInternal    FailureKind = "internal"
)

type Failure struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is what every command and intent handler returns: either a response
// to speak, or a Failure that the dispatcher turns into an apology.
type Result struct {
	Response string
	Failure  *Failure
}

func OK(response string) Result {
	return Result{Response: response}
}

func Fail(op string, kind FailureKind, err error) Result {
	return Result{Failure: &Failure{Op: op, Kind: kind, Err: err}}
}

func (r Result) OK() bool {
	return r.Failure == nil
}

// Fixed replies spoken by the dispatcher and the listen loop.
const (
	MsgNotUnderstood = "I couldn't understand that. Please try again."
	MsgNotSure       = "I'm not sure what you want me to do. Could you rephrase that?"
	MsgApology       = "Sorry, there was an error processing your command."
)
