// Package classify maps a free-text interview summary to a clinical risk
// tier. The actual reasoning lives in the model; this package owns the
// contract and the reply parsing around it.
package classify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/provider"
)

type Tier string

const (
	TierGreen  Tier = "GREEN"
	TierYellow Tier = "YELLOW"
	TierRed    Tier = "RED"
)

// Priority maps a tier to the alert priority scale.
func (t Tier) Priority() string {
	switch t {
	case TierGreen:
		return "safe"
	case TierRed:
		return "critical"
	default:
		return "warning"
	}
}

type Result struct {
	Tier  Tier
	Brief string
}

// Classifier is the clinical classification collaborator.
type Classifier interface {
	Classify(ctx context.Context, summary string) (Result, error)
}

// Static always returns the same result; used in tests and as a stand-in
// when no model is configured.
type Static struct {
	Result Result
}

func (s Static) Classify(ctx context.Context, summary string) (Result, error) {
	return s.Result, nil
}

const systemPrompt = `You are a clinical triage assistant. Given a patient interview summary,
reply with exactly one line of the form TIER|brief where TIER is GREEN,
YELLOW, or RED and brief is a one-sentence rationale for a human reviewer.`

// LLM classifies via the generation provider. Unparseable replies degrade
// to YELLOW so one odd model answer never aborts a round.
type LLM struct {
	Generator provider.Generator
}

func (l *LLM) Classify(ctx context.Context, summary string) (Result, error) {
	stream, err := l.Generator.Stream(ctx, provider.Request{
		System:  systemPrompt,
		History: []a2a.Message{*a2a.NewTextMessage("classify", a2a.RoleUser, summary)},
	})
	if err != nil {
		return Result{}, fmt.Errorf("classification stream: %w", err)
	}
	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("classification recv: %w", err)
		}
		b.WriteString(chunk.Text)
	}
	return Parse(b.String()), nil
}

// Parse extracts a Result from a model reply. Anything it cannot make
// sense of becomes a YELLOW with the raw reply as brief.
func Parse(reply string) Result {
	line := strings.TrimSpace(reply)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	tierPart, brief, found := strings.Cut(line, "|")
	tier := Tier(strings.ToUpper(strings.TrimSpace(tierPart)))
	switch tier {
	case TierGreen, TierYellow, TierRed:
	default:
		return Result{Tier: TierYellow, Brief: line}
	}
	if !found || strings.TrimSpace(brief) == "" {
		return Result{Tier: tier, Brief: string(tier)}
	}
	return Result{Tier: tier, Brief: strings.TrimSpace(brief)}
}
