package notify

import (
	"context"

	"ScoutSync/internal/domain/models"
	applogger "ScoutSync/pkg/logger"
)

// LogNotifier writes outcomes to the structured log.
type LogNotifier struct {
	l *applogger.Logger
}

func NewLogNotifier(l *applogger.Logger) *LogNotifier {
	if l == nil {
		l = applogger.Nop()
	}
	return &LogNotifier{l: l}
}

func (n *LogNotifier) Notify(_ context.Context, res *models.ReconciliationResult) error {
	fields := []applogger.Field{
		applogger.String("subject", Subject),
		applogger.String("run_id", res.RunID),
		applogger.String("file", res.File),
		applogger.String("status", string(res.Status)),
		applogger.Strings("unresolved", res.Unresolved),
	}
	if res.Status == models.StatusOK {
		n.l.Info(res.Message, fields...)
		return nil
	}
	n.l.Warn(res.Message, fields...)
	return nil
}
