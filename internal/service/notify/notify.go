package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/service"
	applogger "ScoutSync/pkg/logger"
)

// Subject is the subject line of every outcome message.
const Subject = "Data upload status"

// Body renders the outcome text: the unresolved identifiers, if any, followed
// by the outcome message.
func Body(res *models.ReconciliationResult) string {
	if !res.HasUnresolved() {
		return res.Message
	}
	var b strings.Builder
	b.WriteString("The following stock names were not found in the database:\n\n")
	b.WriteString(strings.Join(res.Unresolved, "\n"))
	b.WriteString("\n")
	b.WriteString(res.Message)
	return b.String()
}

// Multi fans one outcome out to several channels. Every channel is tried;
// the failures are joined.
type Multi struct {
	channels map[string]service.Notifier
	order    []string
	l        *applogger.Logger
}

func NewMulti(l *applogger.Logger) *Multi {
	return &Multi{channels: make(map[string]service.Notifier), l: l}
}

// Add registers a channel under name. Re-adding a name replaces it.
func (m *Multi) Add(name string, n service.Notifier) *Multi {
	if _, ok := m.channels[name]; !ok {
		m.order = append(m.order, name)
	}
	m.channels[name] = n
	return m
}

func (m *Multi) Len() int { return len(m.order) }

func (m *Multi) Notify(ctx context.Context, res *models.ReconciliationResult) error {
	var errs []error
	for _, name := range m.order {
		if err := m.channels[name].Notify(ctx, res); err != nil {
			if m.l != nil {
				m.l.Error("notification channel failed",
					applogger.String("channel", name),
					applogger.String("file", res.File),
					applogger.Error(err),
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
