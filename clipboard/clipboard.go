// Package clipboard writes extracted values to the first clipboard surface that accepts them.
package clipboard

import (
	"clipwatch/logger"
	"clipwatch/models"
	"context"
	"errors"
	"fmt"

	sysclip "github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when no tier could write the text.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Writer is one clipboard surface.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// Tier names a Writer inside a Chain.
type Tier struct {
	Name   string
	Writer Writer
}

// Chain tries each tier in order and stops at the first success.
type Chain struct {
	Tiers []Tier
}

func NewChain(tiers ...Tier) *Chain {
	return &Chain{Tiers: tiers}
}

func (c *Chain) WriteText(ctx context.Context, text string) error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers enabled", ErrClipboardUnavailable)
	}
	var errs []error
	for _, tier := range c.Tiers {
		err := tier.Writer.WriteText(ctx, text)
		if err == nil {
			logger.Debug("Copied %d bytes via %s clipboard", len(text), tier.Name)
			return nil
		}
		logger.Debug("Clipboard tier %s failed: %v", tier.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
	}
	return fmt.Errorf("%w: %w", ErrClipboardUnavailable, errors.Join(errs...))
}

// SystemWriter writes to the OS clipboard.
type SystemWriter struct{}

func (SystemWriter) WriteText(_ context.Context, text string) error {
	if sysclip.Unsupported {
		return errors.New("no system clipboard utility found")
	}
	return sysclip.WriteAll(text)
}

// PageSender is the part of the page hub the page-backed tiers need.
type PageSender interface {
	SendToHelper(ctx context.Context, msg models.PageMessage) error
	SendToActive(ctx context.Context, msg models.PageMessage) error
}

// HelperWriter asks a connected helper page to perform the copy.
type HelperWriter struct {
	Pages PageSender
}

func (w HelperWriter) WriteText(ctx context.Context, text string) error {
	return w.Pages.SendToHelper(ctx, models.PageMessage{Action: models.ActionCopyToClipboard, Text: text})
}

// PageRelayWriter relays the copy through the active page, which also shows
// that the value was copied.
type PageRelayWriter struct {
	Pages PageSender
}

func (w PageRelayWriter) WriteText(ctx context.Context, text string) error {
	return w.Pages.SendToActive(ctx, models.PageMessage{
		Action:           models.ActionCopyToClipboard,
		Text:             text,
		ShowNotification: true,
	})
}
