// Package pipeline holds the scheduled background jobs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

// Backup copies every user's trades and journal entries to cold storage.
type Backup struct {
	users    domain.UserStore
	archiver domain.Archiver
	notifier domain.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// BackupReport summarises one backup run.
type BackupReport struct {
	Users   int
	Trades  int64
	Entries int64
	Failed  []string
}

// NewBackup creates a Backup job. notifier may be nil.
func NewBackup(users domain.UserStore, archiver domain.Archiver, notifier domain.Notifier, logger *slog.Logger) *Backup {
	return &Backup{
		users:    users,
		archiver: archiver,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "backup")),
	}
}

// Run executes a single backup pass over all users. A failure for one user is
// logged and recorded in the report; the remaining users are still processed.
// The returned error is non-nil when listing users fails or any user failed.
func (b *Backup) Run(ctx context.Context) (BackupReport, error) {
	at := b.now().UTC()
	b.logger.InfoContext(ctx, "starting backup run", slog.Time("at", at))

	ids, err := b.users.ListIDs(ctx)
	if err != nil {
		err = fmt.Errorf("pipeline: backup list users: %w", err)
		b.notify(ctx, notify.EventBackupFailed, "Backup failed", err.Error())
		return BackupReport{}, err
	}

	var (
		report BackupReport
		errs   []error
	)
	for _, userID := range ids {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Users++

		trades, err := b.archiver.BackupTrades(ctx, userID, at)
		if err == nil {
			report.Trades += trades
			var entries int64
			entries, err = b.archiver.BackupJournal(ctx, userID, at)
			report.Entries += entries
		}
		if err != nil {
			b.logger.ErrorContext(ctx, "user backup failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			report.Failed = append(report.Failed, userID)
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
		}
	}

	b.logger.InfoContext(ctx, "backup run complete",
		slog.Int("users", report.Users),
		slog.Int64("trades", report.Trades),
		slog.Int64("journal_entries", report.Entries),
		slog.Int("failed", len(report.Failed)),
	)

	if len(errs) > 0 {
		b.notify(ctx, notify.EventBackupFailed, "Backup failed",
			fmt.Sprintf("%d of %d users failed", len(report.Failed), report.Users))
		return report, fmt.Errorf("pipeline: backup: %w", errors.Join(errs...))
	}
	b.notify(ctx, notify.EventBackupCompleted, "Backup completed",
		fmt.Sprintf("%d users, %d trades, %d journal entries", report.Users, report.Trades, report.Entries))
	return report, nil
}

// RunCron runs the backup on a standard 5-field cron schedule (evaluated in
// UTC) until ctx is cancelled. A run still in progress when the next trigger
// fires causes that trigger to be skipped.
func (b *Backup) RunCron(ctx context.Context, expr string) error {
	logger := cronLogger{b.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(expr, func() {
		if _, err := b.Run(ctx); err != nil {
			b.logger.Error("scheduled backup failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("pipeline: parse cron %q: %w", expr, err)
	}

	b.logger.Info("backup cron started", slog.String("cron", expr))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	b.logger.Info("backup cron stopped")
	return ctx.Err()
}

func (b *Backup) notify(ctx context.Context, event, title, msg string) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Notify(ctx, event, title, msg); err != nil {
		b.logger.WarnContext(ctx, "backup notification failed", slog.String("error", err.Error()))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err.Error())...)
}
