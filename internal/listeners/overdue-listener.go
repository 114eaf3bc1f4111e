package listeners

import (
	"context"
	"fmt"

	"gauge-system/internal/events"
	"gauge-system/pkg/eventbus"

	"go.uber.org/zap"
)

// NotifierInterface - канал доставки уведомлений метрологу. Реализация
// живёт снаружи (почта, мессенджер); по умолчанию используется лог.
type NotifierInterface interface {
	Notify(ctx context.Context, message string) error
}

type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Notify(_ context.Context, message string) error {
	n.logger.Warn("Уведомление метрологу", zap.String("message", message))
	return nil
}

// OverdueListener слушает события просрочки поверки и уведомляет метролога.
type OverdueListener struct {
	notifier NotifierInterface
	logger   *zap.Logger
}

func NewOverdueListener(notifier NotifierInterface, logger *zap.Logger) *OverdueListener {
	if notifier == nil {
		notifier = &logNotifier{logger: logger}
	}
	return &OverdueListener{notifier: notifier, logger: logger}
}

// Register подписывает слушателя на шину.
func (l *OverdueListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.GaugeBecameOverdueEventName, l.handle)
}

func (l *OverdueListener) handle(ctx context.Context, event eventbus.Event) error {
	overdue, ok := event.(events.GaugeBecameOverdueEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события: %T", event)
	}

	l.logger.Info("Оборудование просрочено по поверке",
		zap.Uint64("gaugeId", overdue.GaugeID),
		zap.String("number", overdue.Number),
		zap.Time("dueAt", overdue.DueAt),
	)
	return l.notifier.Notify(ctx, fmt.Sprintf(
		"Оборудование №%s (%s) просрочено по поверке с %s",
		overdue.Number, overdue.GaugeName, overdue.DueAt.Format("2006-01-02"),
	))
}
