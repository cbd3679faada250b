package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"courtcal/models"

	"github.com/hibiken/asynq"
)

const (
	TypeSchedulingEvent  = "scheduling:event"
	TypeDeadlineReminder = "deadline:reminder"
	TypeDeadlineSweep    = "deadline:sweep"
)

// QueueEvents carries event and reminder tasks; the sweep runs on the default queue.
const QueueEvents = "events"

// NewSchedulingEventTask wraps evt. The event id doubles as the task id so a retried
// publish does not enqueue twice.
func NewSchedulingEventTask(evt models.SchedulingEvent) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSchedulingEvent, b)
	opts := []asynq.Option{asynq.TaskID(evt.ID), asynq.Queue(QueueEvents), asynq.MaxRetry(10)}

	return task, opts, nil
}

func NewDeadlineReminderTask(payload models.DeadlineReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeDeadlineReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.Queue(QueueEvents),
		asynq.TaskID(ReminderTaskID(payload)),
	}

	return task, opts, nil
}

// ReminderTaskID is stable per deadline, due date and offset, so rescheduling after an
// extension creates a new task while re-saving an unchanged deadline does not.
func ReminderTaskID(payload models.DeadlineReminderPayload) string {
	return fmt.Sprintf("deadline-reminder:%s:%s:%d", payload.DeadlineID, payload.DueDate.Format(models.DateLayout), payload.DaysBefore)
}

func NewDeadlineSweepTask() *asynq.Task {
	return asynq.NewTask(TypeDeadlineSweep, nil)
}

func DecodeSchedulingEvent(task *asynq.Task) (models.SchedulingEvent, error) {
	var evt models.SchedulingEvent
	if err := json.Unmarshal(task.Payload(), &evt); err != nil {
		return evt, fmt.Errorf("failed to decode scheduling event: %w", err)
	}
	return evt, nil
}

func DecodeDeadlineReminder(task *asynq.Task) (models.DeadlineReminderPayload, error) {
	var p models.DeadlineReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to decode deadline reminder: %w", err)
	}
	return p, nil
}
