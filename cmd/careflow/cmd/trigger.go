package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/a2aclient"
	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
)

var (
	triggerHour  int
	triggerGroup string
	triggerURL   string
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a check-in round on the pulse service",
	RunE:  runTrigger,
}

func init() {
	triggerCmd.Flags().IntVar(&triggerHour, "hour", -1, "Schedule hour (0-23) of the round to run")
	triggerCmd.Flags().StringVar(&triggerGroup, "group", "", "Optional patient group filter")
	triggerCmd.Flags().StringVar(&triggerURL, "url", "", "Pulse service URL (defaults to CAREFLOW_HTTP_ADDR host)")
	_ = triggerCmd.MarkFlagRequired("hour")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if triggerHour < 0 || triggerHour > 23 {
		return fmt.Errorf("--hour must be between 0 and 23, got %d", triggerHour)
	}
	url := triggerURL
	if url == "" {
		url = "http://localhost" + cfg.HTTPAddr
	}

	msg := &a2a.Message{
		Kind:      a2a.KindMessage,
		MessageID: idgen.New(),
		Role:      a2a.RoleUser,
		Parts: []a2a.Part{
			a2a.TextPart(fmt.Sprintf("run check-in round for hour %d", triggerHour)),
			a2a.DataPart(map[string]any{"hour": triggerHour, "groupId": triggerGroup}),
		},
	}

	start := time.Now()
	task, err := a2aclient.New().SendMessage(cmd.Context(), url, msg)
	if err != nil {
		color.Red("✗ round trigger failed: %v", err)
		return err
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	switch task.Status.State {
	case a2a.TaskStateCompleted:
		color.Green("✓ %s (task %s, %s)", task.Status.Message.Text(), task.ID, elapsed)
		return nil
	default:
		color.Red("✗ round ended %s: %s", task.Status.State, task.Status.Message.Text())
		return fmt.Errorf("round ended %s", task.Status.State)
	}
}
