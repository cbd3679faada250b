package cron

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"
	"courtcal/services/events"
	"courtcal/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// EventStore persists scheduling events. Saving an event id twice is a no-op.
type EventStore interface {
	SaveEvent(ctx context.Context, evt models.SchedulingEvent) error
}

// DeadlineReader looks up the deadline a reminder was scheduled for.
type DeadlineReader interface {
	GetDeadline(ctx context.Context, id string) (*models.Deadline, error)
}

type DeadlineSweeper interface {
	SweepDueToday(ctx context.Context) (int, error)
}

// Worker handles the tasks the asynq publisher enqueues.
type Worker struct {
	Events    EventStore
	Deadlines DeadlineReader
	Sweeper   DeadlineSweeper
	// Relay, when set, receives reminder events after they are stored (e.g. Kafka).
	Relay  events.Publisher
	Now    func() time.Time
	Logger *zap.Logger
}

func (w *Worker) HandleSchedulingEvent(ctx context.Context, task *asynq.Task) error {
	evt, err := tasks.DecodeSchedulingEvent(task)
	if err != nil {
		w.Logger.Error("Dropping malformed event task", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := w.Events.SaveEvent(ctx, evt); err != nil {
		w.Logger.Warn("Failed to persist event", zap.String("eventID", evt.ID), zap.String("type", evt.Type), zap.Error(err))
		return err
	}
	w.Logger.Debug("Event persisted", zap.String("eventID", evt.ID), zap.String("type", evt.Type))
	return nil
}

// HandleDeadlineReminder turns a fired reminder into a deadline.reminder event. The event
// id is derived from the reminder so a redelivered task is stored once. Reminders for a
// deadline that is gone, closed, or now due on another date are dropped.
func (w *Worker) HandleDeadlineReminder(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.DecodeDeadlineReminder(task)
	if err != nil {
		w.Logger.Error("Dropping malformed reminder task", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	live, err := w.reminderLive(ctx, p)
	if err != nil {
		return err
	}
	if !live {
		return nil
	}
	evt := events.NewEvent(models.EventDeadlineReminder, p.DeadlineID, map[string]any{
		"title":      p.Title,
		"dueDate":    p.DueDate.Format(models.DateLayout),
		"daysBefore": p.DaysBefore,
	}, w.now())
	evt.ID = tasks.ReminderTaskID(p)

	if err := w.Events.SaveEvent(ctx, evt); err != nil {
		return err
	}
	w.Logger.Info("Deadline reminder fired",
		zap.String("deadlineID", p.DeadlineID),
		zap.String("title", p.Title),
		zap.Int("daysBefore", p.DaysBefore))

	if w.Relay != nil {
		if err := w.Relay.Publish(ctx, evt); err != nil {
			w.Logger.Warn("Failed to relay reminder", zap.String("deadlineID", p.DeadlineID), zap.Error(err))
		}
	}
	return nil
}

func (w *Worker) reminderLive(ctx context.Context, p models.DeadlineReminderPayload) (bool, error) {
	if w.Deadlines == nil {
		return true, nil
	}
	d, err := w.Deadlines.GetDeadline(ctx, p.DeadlineID)
	if models.IsNotFound(err) {
		w.Logger.Info("Dropping reminder for unknown deadline", zap.String("deadlineID", p.DeadlineID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch {
	case d.Completed || d.Cancelled:
		w.Logger.Info("Dropping reminder for closed deadline", zap.String("deadlineID", p.DeadlineID))
		return false, nil
	case !d.DueDate.Equal(p.DueDate):
		w.Logger.Info("Dropping reminder for superseded due date",
			zap.String("deadlineID", p.DeadlineID),
			zap.String("reminderDueDate", p.DueDate.Format(models.DateLayout)),
			zap.String("dueDate", d.DueDate.Format(models.DateLayout)))
		return false, nil
	}
	return true, nil
}

func (w *Worker) HandleDeadlineSweep(ctx context.Context, _ *asynq.Task) error {
	n, err := w.Sweeper.SweepDueToday(ctx)
	if err != nil {
		w.Logger.Error("Deadline sweep failed", zap.Error(err))
		return err
	}
	w.Logger.Info("Deadline sweep done", zap.Int("dueToday", n))
	return nil
}

func (w *Worker) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSchedulingEvent, w.HandleSchedulingEvent)
	mux.HandleFunc(tasks.TypeDeadlineReminder, w.HandleDeadlineReminder)
	if w.Sweeper != nil {
		mux.HandleFunc(tasks.TypeDeadlineSweep, w.HandleDeadlineSweep)
	}
	return mux
}

func (w *Worker) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// Start runs the task server and, when sweepSpec is set, registers the daily deadline
// sweep with an asynq scheduler. The returned func stops both.
func Start(redisOpts asynq.RedisClientOpt, w *Worker, sweepSpec string, loc *time.Location) (func(), error) {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueEvents: 6,
				"default":         3,
			},
			Logger: zapAdapter{w.Logger.Sugar()},
		},
	)

	const maxAttempts = 5
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = srv.Start(w.NewServeMux()); err == nil {
			break
		}
		w.Logger.Warn("Failed to start task worker", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt*2) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("task worker did not start after %d attempts: %w", maxAttempts, err)
	}
	w.Logger.Info("Task worker started")

	var scheduler *asynq.Scheduler
	if sweepSpec != "" && w.Sweeper != nil {
		scheduler = asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{
			Location: loc,
			Logger:   zapAdapter{w.Logger.Sugar()},
		})
		if _, err := scheduler.Register(sweepSpec, tasks.NewDeadlineSweepTask()); err != nil {
			srv.Shutdown()
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", sweepSpec, err)
		}
		if err := scheduler.Start(); err != nil {
			srv.Shutdown()
			return nil, err
		}
		w.Logger.Info("Deadline sweep scheduled", zap.String("cron", sweepSpec))
	}

	return func() {
		if scheduler != nil {
			scheduler.Shutdown()
		}
		srv.Shutdown()
	}, nil
}

// zapAdapter satisfies asynq.Logger.
type zapAdapter struct{ s *zap.SugaredLogger }

func (a zapAdapter) Debug(args ...interface{}) { a.s.Debug(args...) }
func (a zapAdapter) Info(args ...interface{})  { a.s.Info(args...) }
func (a zapAdapter) Warn(args ...interface{})  { a.s.Warn(args...) }
func (a zapAdapter) Error(args ...interface{}) { a.s.Error(args...) }
func (a zapAdapter) Fatal(args ...interface{}) { a.s.Fatal(args...) }
