package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/campus-push/internal/domain"
)

// Transport is the push-messaging provider. SendToTokens returns one result per
// token in input order; an error means the call itself could not be made.
type Transport interface {
	SendToTopic(ctx context.Context, topic string, p *domain.Payload) error
	SendToTokens(ctx context.Context, tokens []string, p *domain.Payload) ([]domain.TokenResult, error)
}

// Outcome is the per-target result of one delivery attempt. It is never persisted.
type Outcome struct {
	Target  Target
	Results []domain.TokenResult
}

func (o Outcome) Delivered() int {
	n := 0
	for _, r := range o.Results {
		if r.Success {
			n++
		}
	}
	return n
}

func (o Outcome) Failed() int {
	return len(o.Results) - o.Delivered()
}

// Unregistered lists tokens the provider reported as no longer valid.
func (o Outcome) Unregistered() []string {
	var out []string
	for _, r := range o.Results {
		if !r.Success && r.Unregistered {
			out = append(out, r.Token)
		}
	}
	return out
}

// FailureSummary joins distinct per-target error messages, for logs.
func (o Outcome) FailureSummary() string {
	seen := map[string]bool{}
	var msgs []string
	for _, r := range o.Results {
		if r.Success || r.Error == "" || seen[r.Error] {
			continue
		}
		seen[r.Error] = true
		msgs = append(msgs, r.Error)
	}
	return strings.Join(msgs, "; ")
}

type Engine struct {
	transport Transport
}

func NewEngine(t Transport) *Engine {
	return &Engine{transport: t}
}

// Deliver sends p to the target. Partial token failures are reported in the
// Outcome, only a failed call returns an error.
func (e *Engine) Deliver(ctx context.Context, t Target, p *domain.Payload) (Outcome, error) {
	out := Outcome{Target: t}
	switch t.Kind {
	case TargetTopic:
		if err := e.transport.SendToTopic(ctx, t.Topic, p); err != nil {
			return out, fmt.Errorf("send to topic %s: %w: %w", t.Topic, domain.ErrTransport, err)
		}
		out.Results = []domain.TokenResult{{Token: t.Topic, Success: true}}
		return out, nil

	case TargetUserTokens:
		if len(t.Tokens) == 0 {
			return out, nil
		}
		results, err := e.transport.SendToTokens(ctx, t.Tokens, p)
		if err != nil {
			return out, fmt.Errorf("send to %d tokens of user %s: %w: %w", len(t.Tokens), t.UserID, domain.ErrTransport, err)
		}
		out.Results = results
		return out, nil

	default:
		return out, domain.ErrUnresolvableTarget
	}
}
