package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
)

func TestSync_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	_, err := execute(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestSync_SingleSource(t *testing.T) {
	orch := &mockSyncOrchestrator{}
	withServices(t, Services{Sync: orch})

	out, err := execute(t, "sync", "shop", "-r", "tickets", "-r", "users", "--full")
	require.NoError(t, err)

	assert.Equal(t, []string{"shop"}, orch.synced)
	assert.Equal(t, []string{"tickets", "users"}, orch.lastOpts.Resources)
	assert.True(t, orch.lastOpts.Full)
	assert.Contains(t, out, "Synchronising source: shop...")
	assert.Contains(t, out, "Source shop synchronised successfully.")
}

func TestSync_AllSources(t *testing.T) {
	orch := &mockSyncOrchestrator{}
	withServices(t, Services{Sync: orch})

	out, err := execute(t, "sync")
	require.NoError(t, err)

	assert.Equal(t, 1, orch.allCalls)
	assert.Empty(t, orch.synced)
	assert.Contains(t, out, "All sources synchronised successfully.")
}

func TestSync_Failure(t *testing.T) {
	orch := &mockSyncOrchestrator{syncErr: errors.New("HTTP 500")}
	withServices(t, Services{Sync: orch})

	out, err := execute(t, "sync", "shop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed: HTTP 500")
	assert.NotContains(t, out, "synchronised successfully")
}

func TestSync_DateFlags(t *testing.T) {
	orch := &mockSyncOrchestrator{}
	withServices(t, Services{Sync: orch})

	_, err := execute(t, "sync", "shop", "--start-date", "2025-01-01", "--end-date", "2025-01-31")
	require.NoError(t, err)

	require.NotNil(t, orch.lastOpts.StartDate)
	require.NotNil(t, orch.lastOpts.EndDate)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), orch.lastOpts.StartDate.UTC())
	assert.Equal(t,
		time.Date(2025, 1, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC),
		orch.lastOpts.EndDate.UTC())
}

func TestSync_InvalidDates(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad start", args: []string{"--start-date", "01/01/2025"}, want: "--start-date"},
		{name: "bad end", args: []string{"--end-date", "tomorrow"}, want: "--end-date"},
		{
			name: "reversed",
			args: []string{"--start-date", "2025-02-01", "--end-date", "2025-01-01"},
			want: "--end-date is before --start-date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &mockSyncOrchestrator{}
			withServices(t, Services{Sync: orch})

			_, err := execute(t, append([]string{"sync", "shop"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, orch.synced)
		})
	}
}

func TestSync_Every(t *testing.T) {
	t.Run("rejects source id", func(t *testing.T) {
		withServices(t, Services{Sync: &mockSyncOrchestrator{}})

		_, err := execute(t, "sync", "shop", "--every", "1h")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "takes no source ID")
	})

	t.Run("scheduler not configured", func(t *testing.T) {
		withServices(t, Services{Sync: &mockSyncOrchestrator{}})

		_, err := execute(t, "sync", "--every", "1h")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduler service not configured")
	})

	t.Run("starts scheduler with options", func(t *testing.T) {
		sched := &mockScheduler{err: errors.New("stopped")}
		var (
			got      driving.SyncOptions
			interval time.Duration
		)
		withServices(t, Services{
			Sync: &mockSyncOrchestrator{},
			Scheduler: func(every time.Duration, opts driving.SyncOptions) driving.Scheduler {
				got = opts
				interval = every
				return sched
			},
		})

		out, err := execute(t, "sync", "--every", "30m", "--full")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stopped")
		assert.True(t, sched.started)
		assert.True(t, got.Full)
		assert.Equal(t, 30*time.Minute, interval)
		assert.Contains(t, out, "every 30m0s")
	})
}
