// Package notify raises desktop notices through notify-send.
package notify

import (
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Level maps onto notify-send urgency
type Level int

const (
	Info Level = iota
	Warning
	Alert
)

func (l Level) urgency() string {
	switch l {
	case Info:
		return "low"
	case Alert:
		return "critical"
	}
	return "normal"
}

// Notice is one desktop notification
type Notice struct {
	Summary string
	Body    string
	Level   Level
	Expire  time.Duration // zero leaves it to the notification daemon
	Icon    string
}

// Argv is the notify-send command line for the notice, without the program name
func (n Notice) Argv() []string {
	argv := []string{"--app-name=mindmap", "--urgency=" + n.Level.urgency()}
	if n.Expire > 0 {
		argv = append(argv, "--expire-time="+strconv.FormatInt(n.Expire.Milliseconds(), 10))
	}
	if n.Icon != "" {
		argv = append(argv, "--icon="+n.Icon)
	}
	argv = append(argv, n.Summary)
	if n.Body != "" {
		argv = append(argv, n.Body)
	}
	return argv
}

// Runner delivers a notice's argv
type Runner func(argv ...string) error

func notifySend(argv ...string) error {
	return exec.Command("notify-send", argv...).Run()
}

// Notifier sends notices while enabled. The zero value is disabled.
type Notifier struct {
	on  bool
	run Runner
}

// New returns an enabled notifier backed by notify-send
func New() *Notifier {
	return &Notifier{on: true, run: notifySend}
}

// WithRunner swaps the delivery function, for tests
func (n *Notifier) WithRunner(r Runner) *Notifier {
	n.run = r
	return n
}

func (n *Notifier) Enable(on bool) { n.on = on }

func (n *Notifier) Enabled() bool { return n != nil && n.on }

// Send delivers the notice, or does nothing when disabled
func (n *Notifier) Send(notice Notice) error {
	if !n.Enabled() || n.run == nil {
		return nil
	}
	return n.run(notice.Argv()...)
}

// Reverted reports a creation the store refused and the outline undid
func (n *Notifier) Reverted(what string, cause error) error {
	body := what + " could not be saved and was removed"
	if cause != nil {
		body = fmt.Sprintf("%s: %v", body, cause)
	}
	return n.Send(Notice{
		Summary: "Change reverted",
		Body:    body,
		Level:   Alert,
		Expire:  10 * time.Second,
		Icon:    "dialog-error-symbolic",
	})
}

// Diverged warns that count items on screen no longer match the store
func (n *Notifier) Diverged(count int) error {
	items := "item"
	if count != 1 {
		items += "s"
	}
	return n.Send(Notice{
		Summary: "Outline out of sync",
		Body:    fmt.Sprintf("%d %s failed to save; press ctrl+l to reload", count, items),
		Level:   Warning,
		Expire:  10 * time.Second,
		Icon:    "dialog-warning-symbolic",
	})
}
