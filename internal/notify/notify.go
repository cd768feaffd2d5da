// Package notify delivers chat, toast and audio cue notifications.
package notify

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compassradar/extension/internal/config"
)

// ChatSink prints a line to the game chat.
type ChatSink interface {
	PrintChat(msg string) error
}

// ToastSink shows a toast popup.
type ToastSink interface {
	ShowToast(msg string) error
}

// CuePlayer plays the numbered chat sound effect.
type CuePlayer interface {
	PlayCue(id int) error
}

// Source supplies the notification settings. It is read on every call.
type Source interface {
	Notify() config.NotifyConfig
}

// Notifier sends notifications. The audio cue runs on its own goroutine and
// is rate limited by a cooldown shared by all callers.
type Notifier struct {
	src    Source
	chat   ChatSink
	toast  ToastSink
	cue    CuePlayer
	logger *slog.Logger
	now    func() time.Time

	// lastCue is the unix-nano time of the last cue, 0 when none was played.
	lastCue atomic.Int64
	wg      sync.WaitGroup
}

// New creates a Notifier. Any sink may be nil, which disables that channel.
func New(src Source, chat ChatSink, toast ToastSink, cue CuePlayer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		src:    src,
		chat:   chat,
		toast:  toast,
		cue:    cue,
		logger: logger.With("component", "notify"),
		now:    time.Now,
	}
}

// TryNotifyByChat prints msg and, when playCue is set, plays the configured
// cue unless one was played within the cooldown. It does not wait for the cue.
func (n *Notifier) TryNotifyByChat(msg string, playCue bool) {
	cfg := n.src.Notify()
	if cfg.Chat && n.chat != nil {
		if err := n.chat.PrintChat(msg); err != nil {
			n.logger.Warn("chat notification failed", "error", err)
		}
	}
	if !playCue || !cfg.Cue || n.cue == nil {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if !n.canCue(cfg.Cooldown) {
			return
		}
		if err := n.cue.PlayCue(cfg.CueID); err != nil {
			n.logger.Warn("cue failed", "cue", cfg.CueID, "error", err)
			return
		}
		n.lastCue.Store(n.now().UnixNano())
	}()
}

// TryNotifyByToast shows msg as a toast when toasts are enabled.
func (n *Notifier) TryNotifyByToast(msg string) {
	if !n.src.Notify().Toast || n.toast == nil {
		return
	}
	if err := n.toast.ShowToast(msg); err != nil {
		n.logger.Warn("toast notification failed", "error", err)
	}
}

func (n *Notifier) canCue(cooldown time.Duration) bool {
	last := n.lastCue.Load()
	if last == 0 {
		return true
	}
	return n.now().Sub(time.Unix(0, last)) > cooldown
}

// ResetTimer forgets the last cue so the next one plays immediately.
func (n *Notifier) ResetTimer() {
	n.lastCue.Store(0)
}

// LastCue returns when the last cue was played.
func (n *Notifier) LastCue() (time.Time, bool) {
	last := n.lastCue.Load()
	if last == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, last), true
}

// Wait blocks until every pending cue goroutine has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// LogSink writes chat and toast notifications to a logger. It is used
// when no game host is attached.
type LogSink struct {
	Logger *slog.Logger
}

// PrintChat logs msg.
func (s LogSink) PrintChat(msg string) error {
	s.Logger.Info("chat", "message", msg)
	return nil
}

// ShowToast logs msg.
func (s LogSink) ShowToast(msg string) error {
	s.Logger.Info("toast", "message", msg)
	return nil
}
