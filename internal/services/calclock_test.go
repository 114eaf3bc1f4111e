package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueFromUnseal(t *testing.T) {
	unsealedAt := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	dueAt := DueFromUnseal(unsealedAt, 365)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC), dueAt)

	dueAt = DueFromUnseal(unsealedAt, 180)
	assert.Equal(t, time.Date(2025, 9, 6, 14, 30, 0, 0, time.UTC), dueAt)
}

func TestDueFromCertificate(t *testing.T) {
	certifiedAt := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	// AddDate нормализует переполнение месяца, считаем в днях.
	dueAt := DueFromCertificate(certifiedAt, 30)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), dueAt)
}

func TestClassifyDue(t *testing.T) {
	dueAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	testCases := []struct {
		name     string
		now      time.Time
		expected DueState
	}{
		{"задолго до срока", dueAt.AddDate(0, -6, 0), DueStateCurrent},
		{"ровно на границе окна", dueAt.Add(-window), DueStateDueSoon},
		{"внутри окна", dueAt.AddDate(0, 0, -10), DueStateDueSoon},
		{"ровно в срок", dueAt, DueStateDueSoon},
		{"сразу после срока", dueAt.Add(time.Second), DueStateOverdue},
		{"сильно после срока", dueAt.AddDate(1, 0, 0), DueStateOverdue},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyDue(dueAt, tc.now, window))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	dueAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsOverdue(dueAt, dueAt), "момент срока ещё не просрочка")
	assert.False(t, IsOverdue(dueAt, dueAt.Add(-time.Hour)))
	assert.True(t, IsOverdue(dueAt, dueAt.Add(time.Hour)))
}
