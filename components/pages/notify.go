package pages

import (
	"context"
	"errors"
	"log/slog"
)

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	if f != nil {
		f(ctx, n)
	}
}

// LogNotifier writes notifications to a structured logger. Used by the CLI, where
// there is no toast to show.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{slog.String("page", n.Page), slog.String("op", n.Op)}
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelError
		var verr *ValidationError
		if errors.As(n.Err, &verr) {
			attrs = append(attrs, slog.String("section", verr.Section), slog.String("field", verr.Field))
		}
	}
	logger.LogAttrs(ctx, level, n.Message, attrs...)
}

// HookChain runs several document hooks in order and joins their errors.
type HookChain []DocumentHook

// DocumentUpdated implements DocumentHook.
func (c HookChain) DocumentUpdated(ctx context.Context, event DocumentEvent) error {
	var errs []error
	for _, hook := range c {
		if hook == nil {
			continue
		}
		if err := hook.DocumentUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishClient is the minimal surface needed from an external notifications service.
type PublishClient interface {
	PublishPageEvent(ctx context.Context, channel string, event DocumentEvent) error
}

// PublishHook forwards document events to an external notifications client.
type PublishHook struct {
	Client  PublishClient
	Channel string
}

// DocumentUpdated implements DocumentHook.
func (h *PublishHook) DocumentUpdated(ctx context.Context, event DocumentEvent) error {
	if h == nil || h.Client == nil {
		return nil
	}
	return h.Client.PublishPageEvent(ctx, h.Channel, event)
}
