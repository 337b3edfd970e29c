package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/model"
)

func TestNewScheduler_NextRunInOrgTimezone(t *testing.T) {
	scanner, _ := newScanner(nil, ScannerOptions{})
	s, err := NewScheduler(&config.SchedulerConfig{
		Spec:     "0 8 * * *",
		Timezone: "America/Sao_Paulo",
	}, scanner, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	next := s.Next()
	loc, _ := time.LoadLocation("America/Sao_Paulo")
	local := next.In(loc)
	assert.Equal(t, 8, local.Hour())
	assert.Equal(t, 0, local.Minute())
}

func TestNewScheduler_BadSpec(t *testing.T) {
	scanner, _ := newScanner(nil, ScannerOptions{})
	_, err := NewScheduler(&config.SchedulerConfig{
		Spec:     "a cada dia",
		Timezone: "UTC",
	}, scanner, zap.NewNop())
	assert.Error(t, err)
}

func TestNewScheduler_BadTimezone(t *testing.T) {
	scanner, _ := newScanner(nil, ScannerOptions{})
	_, err := NewScheduler(&config.SchedulerConfig{Timezone: "Marte/Base"}, scanner, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	loc, _ := time.LoadLocation("America/Sao_Paulo")
	today := time.Now().In(loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	scanner, notes := newScanner(nil, ScannerOptions{})
	scanner.internships.(*fakeInternships).items = []model.Internship{
		{InternshipID: "s-1", InternID: "i-1", EndDate: end, Status: model.InternshipInProgress},
	}
	s, err := NewScheduler(&config.SchedulerConfig{Timezone: "America/Sao_Paulo"}, scanner, zap.NewNop())
	require.NoError(t, err)

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Len(t, notes.rows, 1)
}
