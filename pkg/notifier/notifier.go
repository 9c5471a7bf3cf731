// Package notifier sends desktop notifications when package tasks fail
// and when runs end
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/depot-build/depot/internal/engine"
	"github.com/depot-build/depot/pkg/logger"
)

// Sender delivers one notification
type Sender func(title, message string) error

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps on failures
	Sound bool
}

// RunNotifier reports failed tasks and finished runs on the desktop
type RunNotifier struct {
	enabled bool
	sound   bool
	logger  logger.Logger
	send    Sender
	beep    func() error
}

var _ engine.Notifier = (*RunNotifier)(nil)

// New creates a notifier backed by beeep
func New(config Config, log logger.Logger) *RunNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RunNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		logger:  log,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
	}
}

// WithSender replaces the notification backend
func (n *RunNotifier) WithSender(send Sender) *RunNotifier {
	n.send = send
	n.beep = func() error { return nil }
	return n
}

// Enabled reports whether notifications are sent
func (n *RunNotifier) Enabled() bool {
	return n.enabled
}

func (n *RunNotifier) TaskStarted(context.Context, string, engine.TaskRecord) {}

// TaskFinished notifies about failed tasks only
func (n *RunNotifier) TaskFinished(_ context.Context, command string, task engine.TaskRecord) {
	if !n.enabled || task.Err == nil {
		return
	}
	n.notify(fmt.Sprintf("❌ %s failed", command), fmt.Sprintf("%s: %v", task.Package, task.Err), true)
}

// RunFinished sends a summary of the run. Interrupted runs are not
// reported.
func (n *RunNotifier) RunFinished(_ context.Context, report *engine.Report) {
	if !n.enabled || (report.Failed == "" && errors.Is(report.Err, context.Canceled)) {
		return
	}

	if report.Success {
		n.notify(fmt.Sprintf("✅ %s succeeded", report.Command),
			fmt.Sprintf("%d packages in %s", len(report.Tasks), formatDuration(report.Duration())), false)
		return
	}

	msg := fmt.Sprintf("failed after %s", formatDuration(report.Duration()))
	if report.Failed != "" {
		msg = fmt.Sprintf("%s failed after %s", report.Failed, formatDuration(report.Duration()))
	} else if report.Err != nil {
		msg = report.Err.Error()
	}
	n.notify(fmt.Sprintf("❌ %s failed", report.Command), msg, true)
}

func (n *RunNotifier) notify(title, message string, failure bool) {
	if err := n.send("depot: "+title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
	}
	if failure && n.sound {
		if err := n.beep(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithError(err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
