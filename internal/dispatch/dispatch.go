package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/resolve"
	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// Action is the operation requested from the service.
type Action string

const (
	GenerateDiagram Action = "generate_diagram"
	GenerateCode    Action = "generate_code"
	AskQuestion     Action = "ask_question"
)

// validActions is the set of recognized action tags.
var validActions = map[Action]bool{
	GenerateDiagram: true,
	GenerateCode:    true,
	AskQuestion:     true,
}

// ParseAction validates a wire tag.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !validActions[a] {
		return "", fmt.Errorf("invalid action %q: must be one of generate_diagram, generate_code, ask_question", s)
	}
	return a, nil
}

// ErrBusy is returned when a dispatch starts while another is in flight.
var ErrBusy = errors.New("a request is already in progress")

// FormState is whatever is attached to the input form when an action fires.
// Nothing here is required; missing inputs are the service's concern.
type FormState struct {
	CodeFiles   []client.File
	DiagramFile *client.File
	Query       string
}

// OutcomeKind classifies how a dispatch ended.
type OutcomeKind string

const (
	OutcomeResolved OutcomeKind = "resolved"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeRejected OutcomeKind = "rejected"
)

// Outcome is the result of one dispatch.
type Outcome struct {
	Kind    OutcomeKind    `json:"kind"`
	Message string         `json:"message,omitempty"`
	Result  resolve.Result `json:"result"`
}

// Processor performs the remote call.
type Processor interface {
	Process(ctx context.Context, req client.Request) (*client.Response, error)
}

// Dispatcher packages actions into requests and routes the replies.
type Dispatcher struct {
	proc     Processor
	resolver *resolve.Resolver
	state    *surface.State
}

// New creates a dispatcher.
func New(proc Processor, resolver *resolve.Resolver, state *surface.State) *Dispatcher {
	return &Dispatcher{proc: proc, resolver: resolver, state: state}
}

// Dispatch sends one request built from form and resolves its reply.
// userQuery is echoed into the transcript when the reply carries an answer.
// Failures become a single transcript entry and an OutcomeFailed; the
// returned error is reserved for misuse (bad action, busy) and internal
// faults.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, form FormState, userQuery string) (Outcome, error) {
	if !validActions[action] {
		return Outcome{}, fmt.Errorf("invalid action %q", action)
	}
	if !d.state.TryAcquireBusy() {
		return Outcome{Kind: OutcomeRejected, Message: ErrBusy.Error()}, ErrBusy
	}
	defer d.state.ReleaseBusy()

	resp, err := d.proc.Process(ctx, buildRequest(action, form))
	if err != nil {
		msg := failureMessage(err)
		log.Printf("dispatch: %s: %v", action, err)
		if _, aerr := d.state.Transcript().Append(markup.Error(msg), transcript.RoleAssistant); aerr != nil {
			return Outcome{}, fmt.Errorf("recording failure: %w", aerr)
		}
		return Outcome{Kind: OutcomeFailed, Message: msg}, nil
	}
	if resp == nil {
		resp = &client.Response{}
	}

	res, err := d.resolver.Resolve(ctx, resp, userQuery)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Message: err.Error(), Result: res}, err
	}
	return Outcome{Kind: OutcomeResolved, Result: res}, nil
}

func buildRequest(action Action, form FormState) client.Request {
	return client.Request{
		Action:      string(action),
		CodeFiles:   form.CodeFiles,
		DiagramFile: form.DiagramFile,
		Query:       form.Query,
	}
}

// failureMessage prefers the service's own error text.
func failureMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
