package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/store"
)

// DefaultLanguage is assumed when a patient record carries none.
const DefaultLanguage = "en"

// Subjects carry up to this many recent interaction summaries into the
// outbound call for conversational continuity.
const recentInteractionLimit = 3

// Subject is one patient due for contact in the current round, enriched
// with the context the caller agent needs.
type Subject struct {
	Patient            store.Patient
	Language           string
	RecentInteractions []store.InteractionEntry
}

// Planner resolves which patients are still pending for a round.
type Planner struct {
	Store store.Store

	// Now overrides the clock; test hook. Nil means time.Now.
	Now func() time.Time
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// PendingSubjects returns every patient scheduled at hour under groupID
// that has no interaction-log witness for the current slot, each enriched
// with recent interaction summaries and a language preference.
func (p *Planner) PendingSubjects(ctx context.Context, hour int, groupID string) ([]Subject, error) {
	roster, err := p.Store.ListPatientsByHour(ctx, hour, groupID)
	if err != nil {
		return nil, fmt.Errorf("list roster for hour %d: %w", hour, err)
	}
	slot := SlotKey(p.now())

	var out []Subject
	for _, patient := range roster {
		contacted, err := p.Store.HasInteraction(ctx, patient.ID, slot)
		if err != nil {
			return nil, fmt.Errorf("check slot %s for %s: %w", slot, patient.ID, err)
		}
		if contacted {
			continue
		}
		recent, err := p.Store.ListInteractions(ctx, patient.ID, recentInteractionLimit)
		if err != nil {
			return nil, fmt.Errorf("load interactions for %s: %w", patient.ID, err)
		}
		language := patient.Language
		if language == "" {
			language = DefaultLanguage
		}
		out = append(out, Subject{
			Patient:            patient,
			Language:           language,
			RecentInteractions: recent,
		})
	}
	return out, nil
}
