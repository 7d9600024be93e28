package cmd

import (
	"testing"
	"time"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/history"
	"github.com/ChristChad-mv/careflow-sub000/internal/session"
)

func TestSweepOnceDropsIdleState(t *testing.T) {
	hist := history.NewCache()
	hist.Append("ctx-old", *a2a.NewTextMessage("m-1", a2a.RoleUser, "hello"))

	now := time.Now()
	reg := session.NewRegistry().WithClock(func() time.Time { return now })
	reg.Open("call-old")
	reg.Close("call-old", "completed")

	now = now.Add(48 * time.Hour)
	time.Sleep(2 * time.Millisecond)

	contexts, closed := sweepOnce(time.Millisecond, hist, reg)
	if contexts != 1 || closed != 1 {
		t.Fatalf("sweepOnce = (%d, %d), want (1, 1)", contexts, closed)
	}
	if hist.Len("ctx-old") != 0 {
		t.Fatalf("context survived the sweep, %d messages left", hist.Len("ctx-old"))
	}
}

func TestSweepOnceWithoutSessions(t *testing.T) {
	hist := history.NewCache()
	contexts, closed := sweepOnce(time.Hour, hist, nil)
	if contexts != 0 || closed != 0 {
		t.Fatalf("sweepOnce = (%d, %d), want (0, 0)", contexts, closed)
	}
}
