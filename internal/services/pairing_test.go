package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gauge-system/internal/dto"
	"gauge-system/internal/repositories"
	"gauge-system/pkg/constants"
	apperrors "gauge-system/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pairState читает поля пары напрямую из базы.
func pairState(t *testing.T, id uint64) (companionID *uint64, suffix *string) {
	t.Helper()
	err := testPool.QueryRow(context.Background(),
		`SELECT companion_id, pair_suffix FROM gauges WHERE id = $1`, id,
	).Scan(&companionID, &suffix)
	require.NoError(t, err)
	return
}

func TestPairingService_Pair(t *testing.T) {
	cleanupTables(t, testPool)
	actorID, _, _ := seedUsers(t, testPool)
	engine := newTestEngine(t)
	ctx := context.Background()

	a := createGauge(t, testPool, gaugeSpec{number: "TG-00001"})
	b := createGauge(t, testPool, gaugeSpec{number: "TG-00002"})

	pairedA, pairedB, err := engine.pairing.Pair(ctx, dto.PairDTO{
		GaugeAID: a, GaugeBID: b, RoleA: constants.PairRoleGo, ActorID: actorID,
	})
	require.NoError(t, err)

	assert.Equal(t, constants.PairSuffixA, pairedA.PairSuffix, "роль ПР даёт суффикс A")
	assert.Equal(t, constants.PairSuffixB, pairedB.PairSuffix)
	require.NotNil(t, pairedA.CompanionID)
	require.NotNil(t, pairedB.CompanionID)
	assert.Equal(t, b, *pairedA.CompanionID)
	assert.Equal(t, a, *pairedB.CompanionID)

	// Симметрия держится и в базе.
	companionOfA, suffixA := pairState(t, a)
	companionOfB, suffixB := pairState(t, b)
	require.NotNil(t, companionOfA)
	require.NotNil(t, companionOfB)
	assert.Equal(t, b, *companionOfA)
	assert.Equal(t, a, *companionOfB)
	assert.Equal(t, "A", *suffixA)
	assert.Equal(t, "B", *suffixB)
}

func TestPairingService_Pair_RoleDeterminesSuffix(t *testing.T) {
	cleanupTables(t, testPool)
	actorID, _, _ := seedUsers(t, testPool)
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("роль НЕ у первого меняет суффиксы местами", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "TG-00001"})
		b := createGauge(t, testPool, gaugeSpec{number: "TG-00002"})

		pairedA, pairedB, err := engine.pairing.Pair(ctx, dto.PairDTO{
			GaugeAID: a, GaugeBID: b, RoleA: constants.PairRoleNoGo, ActorID: actorID,
		})
		require.NoError(t, err)
		assert.Equal(t, constants.PairSuffixB, pairedA.PairSuffix)
		assert.Equal(t, constants.PairSuffixA, pairedB.PairSuffix)
	})

	t.Run("без роли суффиксы идут по возрастанию id", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "TG-00003"})
		b := createGauge(t, testPool, gaugeSpec{number: "TG-00004"})

		// Запрос с б_ольшим id первым: суффикс A всё равно у меньшего id.
		pairedB, pairedA, err := engine.pairing.Pair(ctx, dto.PairDTO{
			GaugeAID: b, GaugeBID: a, ActorID: actorID,
		})
		require.NoError(t, err)
		assert.Equal(t, constants.PairSuffixB, pairedB.PairSuffix)
		assert.Equal(t, constants.PairSuffixA, pairedA.PairSuffix)
	})
}

func TestPairingService_Pair_Guards(t *testing.T) {
	cleanupTables(t, testPool)
	actorID, _, _ := seedUsers(t, testPool)
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("непарная категория", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "HT-00001", category: constants.CategoryHandTool})
		b := createGauge(t, testPool, gaugeSpec{number: "HT-00002", category: constants.CategoryHandTool})
		_, _, err := engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: b, ActorID: actorID})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	})

	t.Run("пара с самим собой", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "TG-00001"})
		_, _, err := engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: a, ActorID: actorID})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("уже в паре", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "TG-00002"})
		b := createGauge(t, testPool, gaugeSpec{number: "TG-00003"})
		c := createGauge(t, testPool, gaugeSpec{number: "TG-00004"})
		_, _, err := engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: b, ActorID: actorID})
		require.NoError(t, err)

		_, _, err = engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: c, ActorID: actorID})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		// Неудачная попытка не должна оставить следов на третьей единице.
		companionOfC, suffixC := pairState(t, c)
		assert.Nil(t, companionOfC)
		assert.Nil(t, suffixC)
	})

	t.Run("запасная единица не комплектуется", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "TG-00005"})
		b := createGauge(t, testPool, gaugeSpec{number: "TG-00006", spare: true})
		_, _, err := engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: b, ActorID: actorID})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	})

	t.Run("списанная единица не комплектуется", func(t *testing.T) {
		a := createGauge(t, testPool, gaugeSpec{number: "TG-00007"})
		b := createGauge(t, testPool, gaugeSpec{number: "TG-00008", status: constants.StatusRetired})
		_, _, err := engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: b, ActorID: actorID})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	})
}

func TestPairingService_Unpair(t *testing.T) {
	cleanupTables(t, testPool)
	actorID, _, _ := seedUsers(t, testPool)
	engine := newTestEngine(t)
	ctx := context.Background()

	a := createGauge(t, testPool, gaugeSpec{number: "TG-00001"})
	b := createGauge(t, testPool, gaugeSpec{number: "TG-00002"})
	_, _, err := engine.pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: b, RoleA: constants.PairRoleGo, ActorID: actorID})
	require.NoError(t, err)

	unpaired, err := engine.pairing.Unpair(ctx, dto.UnpairDTO{GaugeID: b, ActorID: actorID})
	require.NoError(t, err)
	assert.Nil(t, unpaired.CompanionID)
	assert.Empty(t, unpaired.PairSuffix)

	// Расцепление очищает обе стороны.
	companionOfA, suffixA := pairState(t, a)
	companionOfB, suffixB := pairState(t, b)
	assert.Nil(t, companionOfA)
	assert.Nil(t, companionOfB)
	assert.Nil(t, suffixA)
	assert.Nil(t, suffixB)

	// В журнале обеих единиц остаётся запись о расцеплении.
	assert.Contains(t, auditActions(t, a), constants.AuditActionUnpair)
	assert.Contains(t, auditActions(t, b), constants.AuditActionUnpair)

	t.Run("повторное расцепление отклоняется", func(t *testing.T) {
		_, err := engine.pairing.Unpair(ctx, dto.UnpairDTO{GaugeID: b, ActorID: actorID})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	})
}

// flakyGaugeRepo падает на заданном по счёту UpdateGaugeInTx, остальные
// вызовы уходят в настоящий репозиторий.
type flakyGaugeRepo struct {
	repositories.GaugeRepositoryInterface
	failOnUpdate int
	updates      int
}

func (r *flakyGaugeRepo) UpdateGaugeInTx(ctx context.Context, tx pgx.Tx, id uint64, set map[string]interface{}) error {
	r.updates++
	if r.updates == r.failOnUpdate {
		return errors.New("имитация сбоя записи")
	}
	return r.GaugeRepositoryInterface.UpdateGaugeInTx(ctx, tx, id, set)
}

func TestPairingService_Pair_RollbackOnPartialWrite(t *testing.T) {
	cleanupTables(t, testPool)
	actorID, _, _ := seedUsers(t, testPool)
	ctx := context.Background()

	a := createGauge(t, testPool, gaugeSpec{number: "TG-00001"})
	b := createGauge(t, testPool, gaugeSpec{number: "TG-00002"})

	txm := repositories.NewTxManager(testPool, 5*time.Second, 15*time.Second)
	flaky := &flakyGaugeRepo{
		GaugeRepositoryInterface: repositories.NewGaugeRepository(testPool),
		failOnUpdate:             2,
	}
	pairing := NewPairingService(txm, flaky, repositories.NewAuditRepository(testPool), newMemCache(), validator.New(), zap.NewNop())

	_, _, err := pairing.Pair(ctx, dto.PairDTO{GaugeAID: a, GaugeBID: b, RoleA: constants.PairRoleGo, ActorID: actorID})
	require.Error(t, err, "сбой на второй записи должен завалить всю операцию")

	// Откат полный: ни одна из сторон не несёт следов пары.
	for _, id := range []uint64{a, b} {
		companionID, suffix := pairState(t, id)
		assert.Nil(t, companionID)
		assert.Nil(t, suffix)
	}
	// И аудит спаривания не записан.
	assert.Empty(t, auditActions(t, a))
	assert.Empty(t, auditActions(t, b))
}
