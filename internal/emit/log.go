package emit

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// LogDisplayer writes notifications to a logger. It backs the headless
// daemon where there is no desktop to draw on.
type LogDisplayer struct {
	log *zap.Logger
}

// NewLogDisplayer creates a LogDisplayer.
func NewLogDisplayer(l *zap.Logger) *LogDisplayer {
	return &LogDisplayer{log: l}
}

func (d *LogDisplayer) Display(_ context.Context, key, title, body string, priority int) error {
	d.log.Info(title,
		zap.String("key", key),
		zap.String("body", body),
		zap.Int("priority", priority),
	)
	return nil
}

// LogBadge logs badge changes, skipping writes that change nothing.
type LogBadge struct {
	log   *zap.Logger
	text  string
	color string
}

// NewLogBadge creates a LogBadge.
func NewLogBadge(l *zap.Logger) *LogBadge {
	return &LogBadge{log: l}
}

func (b *LogBadge) SetBadgeText(text string) {
	if text == b.text {
		return
	}
	b.text = text
	b.log.Info("badge", zap.String("text", text))
}

func (b *LogBadge) SetBadgeColor(rgb string) {
	if rgb == b.color {
		return
	}
	b.color = rgb
	b.log.Debug("badge color", zap.String("color", rgb))
}

// MultiDisplayer fans a notification out to several displayers. Every
// displayer is tried; their errors are joined.
type MultiDisplayer []Displayer

func (m MultiDisplayer) Display(ctx context.Context, key, title, body string, priority int) error {
	var errs []error
	for _, d := range m {
		if err := d.Display(ctx, key, title, body, priority); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
