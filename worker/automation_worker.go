package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"advportal/models"
)

// automationBatchSize caps one run of the runner so a backlog cannot make a
// single invocation unbounded.
const automationBatchSize = 50

// AutomationResult is the per-record outcome of one batch.
type AutomationResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes one runner invocation.
type Report struct {
	Processed  int                `json:"processed"`
	Successful int                `json:"successful"`
	Results    []AutomationResult `json:"results"`
}

// AutomationWorker fires due scheduled automations exactly once per record.
// A record is marked executed only after its side effect succeeded; a crash
// between the two re-fires the record on the next run (accepted at-least-once
// window).
type AutomationWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAutomationWorker(db *gorm.DB, logger *log.Logger) *AutomationWorker {
	return &AutomationWorker{
		DB:     db,
		Logger: logger,
	}
}

// Start runs the polling loop until the context is cancelled. The same
// batches can also be triggered over HTTP by an external cron.
func (aw *AutomationWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	aw.Logger.Println("Automation worker started")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			aw.Logger.Println("Automation worker shutting down...")
			return
		case <-ticker.C:
			report, err := aw.ProcessDue(ctx)
			if err != nil {
				aw.Logger.Printf("Error processing automations: %v", err)
				continue
			}
			if report.Processed > 0 {
				aw.Logger.Printf("Processed %d/%d automations successfully",
					report.Successful, report.Processed)
			}
		}
	}
}

// ProcessDue selects one bounded batch of due, non-executed records and
// fires each independently. One record's failure never aborts the batch;
// failed records stay pending and are retried on the next invocation.
func (aw *AutomationWorker) ProcessDue(ctx context.Context) (*Report, error) {
	db := aw.DB.WithContext(ctx)

	automations, err := models.DueAutomations(db, automationBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due automations: %w", err)
	}

	report := &Report{
		Processed: len(automations),
		Results:   make([]AutomationResult, 0, len(automations)),
	}

	for _, automation := range automations {
		if err := aw.fire(db, automation); err != nil {
			aw.Logger.Printf("Error processing automation %s: %v", automation.ID, err)
			report.Results = append(report.Results, AutomationResult{
				ID:    automation.ID,
				Error: err.Error(),
			})
			continue
		}

		if err := models.MarkExecuted(db, automation.ID); err != nil {
			// Side effect landed but the flag did not; the record re-fires
			// next run.
			aw.Logger.Printf("Error marking automation %s executed: %v", automation.ID, err)
			report.Results = append(report.Results, AutomationResult{
				ID:    automation.ID,
				Error: err.Error(),
			})
			continue
		}

		report.Successful++
		report.Results = append(report.Results, AutomationResult{
			ID:      automation.ID,
			Success: true,
		})
	}

	return report, nil
}

// fire performs the automation's side effect: an activity entry on the
// referenced lead describing the firing. The reminder's message channel is
// owned by an external dispatcher.
func (aw *AutomationWorker) fire(db *gorm.DB, automation models.ScheduledAutomation) error {
	if _, err := models.FindLeadForTenant(db, automation.TenantID, automation.LeadID); err != nil {
		return fmt.Errorf("lead lookup failed: %w", err)
	}

	var description string
	switch automation.AutomationType {
	case models.AutomationMeetingReminder:
		description = "Meeting reminder processed"
	case models.AutomationFollowUp:
		description = "Automatic follow-up processed"
	case models.AutomationNextContact:
		description = "Next contact reminder processed"
	default:
		aw.Logger.Printf("Unknown automation type: %s", automation.AutomationType)
		description = "Automation processed"
	}

	return models.RecordActivity(db, automation.LeadID, nil,
		models.ActivityAutomation, description, automation.Payload)
}
