// Package armor screens prompts and generated responses against the
// security-policy collaborator. The service fails closed: a scanner error
// blocks generation the same way a policy match does, and the blocked path
// produces a canned refusal rather than an error.
package armor

import "context"

// Refusal is the canned safe response returned when a prompt or reply is
// blocked. It is a normal terminal outcome, not a failure.
const Refusal = "I'm sorry, I can't help with that request. A care team member will follow up with you directly."

type Verdict struct {
	Blocked bool
	Reason  string
}

// Scanner is the security-scan collaborator.
type Scanner interface {
	ScanPrompt(ctx context.Context, text string) (Verdict, error)
	ScanResponse(ctx context.Context, text string) (Verdict, error)
}

type Decision struct {
	Allow  bool
	Reason string
}

// Decide applies the fail-closed policy to a scan outcome: policy matches
// and scanner errors both deny.
func Decide(v Verdict, err error) Decision {
	if err != nil {
		return Decision{Allow: false, Reason: "scan error: " + err.Error()}
	}
	if v.Blocked {
		return Decision{Allow: false, Reason: v.Reason}
	}
	return Decision{Allow: true}
}

// Disabled is the no-op scanner used when no armor backend is configured.
// Everything passes; the caller logs the degraded capability once at start.
type Disabled struct{}

func (Disabled) ScanPrompt(ctx context.Context, text string) (Verdict, error) {
	return Verdict{}, nil
}

func (Disabled) ScanResponse(ctx context.Context, text string) (Verdict, error) {
	return Verdict{}, nil
}
