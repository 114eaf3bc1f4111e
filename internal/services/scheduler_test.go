package services

import (
	"context"
	"testing"
	"time"

	"gauge-system/internal/events"
	"gauge-system/internal/repositories"
	"gauge-system/pkg/constants"
	"gauge-system/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_RecalcDueStatuses(t *testing.T) {
	cleanupTables(t, testPool)
	engine := newTestEngine(t)
	ctx := context.Background()

	overdue := createGauge(t, testPool, gaugeSpec{
		number: "TG-00001", dueAt: time.Now().AddDate(0, 0, -5),
	})
	current := createGauge(t, testPool, gaugeSpec{
		number: "TG-00002", dueAt: time.Now().AddDate(0, 6, 0),
	})
	overdueButHeld := createGauge(t, testPool, gaugeSpec{
		number: "TG-00003", status: constants.StatusCheckedOut, dueAt: time.Now().AddDate(0, 0, -5),
	})
	overdueButRetired := createGauge(t, testPool, gaugeSpec{
		number: "TG-00004", status: constants.StatusRetired, dueAt: time.Now().AddDate(0, 0, -5),
	})

	received := make(chan events.GaugeBecameOverdueEvent, 4)
	engine.bus.Subscribe(events.GaugeBecameOverdueEventName, func(_ context.Context, event eventbus.Event) error {
		received <- event.(events.GaugeBecameOverdueEvent)
		return nil
	})

	flagged, err := engine.scheduler.RecalcDueStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged, "помечена должна быть ровно одна единица")

	assert.Equal(t, constants.StatusCalibrationDue, gaugeStatus(t, overdue))
	assert.Equal(t, constants.StatusAvailable, gaugeStatus(t, current))
	assert.Equal(t, constants.StatusCheckedOut, gaugeStatus(t, overdueButHeld), "выданное оборудование пересчёт не трогает")
	assert.Equal(t, constants.StatusRetired, gaugeStatus(t, overdueButRetired))

	// Переход записан в аудит от имени системной задачи.
	var actorType, actorLabel string
	require.NoError(t, testPool.QueryRow(ctx, `
		SELECT actor_type, actor_label FROM audit_entries
		WHERE entity_id = $1 AND action = $2`, overdue, constants.AuditActionOverdueFlag,
	).Scan(&actorType, &actorLabel))
	assert.Equal(t, "SYSTEM", actorType)
	assert.Equal(t, "calibration-recalc", actorLabel)

	select {
	case event := <-received:
		assert.Equal(t, overdue, event.GaugeID)
		assert.Equal(t, "TG-00001", event.Number)
	case <-time.After(2 * time.Second):
		t.Fatal("событие о просрочке не было опубликовано")
	}

	t.Run("повторный проход ничего не меняет", func(t *testing.T) {
		flagged, err := engine.scheduler.RecalcDueStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, flagged)
	})
}

func TestSchedulerService_Recalc_SkipsWhenLocked(t *testing.T) {
	cleanupTables(t, testPool)
	engine := newTestEngine(t)
	ctx := context.Background()

	createGauge(t, testPool, gaugeSpec{number: "TG-00001", dueAt: time.Now().AddDate(0, 0, -5)})

	// Блокировку держит "другой экземпляр".
	acquired, err := engine.cache.SetNX(ctx, repositories.RecalcJobLockKey, "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	flagged, err := engine.scheduler.RecalcDueStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged, "проход под чужой блокировкой пропускается")
	assert.Equal(t, constants.StatusAvailable, gaugeStatus(t, 1), "статус не должен измениться")
}
