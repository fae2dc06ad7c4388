package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/metrics"
)

// family gathers the registry and returns the named metric family.
func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %q not gathered", name)
	return nil
}

func TestWorkerHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	onSent, onFailed, onPersistFailed, onRun := m.WorkerHooks()

	onSent(domain.VariantWelcome, 120*time.Millisecond)
	onSent(domain.VariantWelcome, 80*time.Millisecond)
	onFailed(domain.VariantReminder)
	onPersistFailed()
	onRun("ok", 7, time.Second)

	sent := family(t, reg, "pulse_notifications_sent_total").GetMetric()
	require.Len(t, sent, 1)
	assert.Equal(t, "welcome", sent[0].GetLabel()[0].GetValue())
	assert.Equal(t, 2.0, sent[0].GetCounter().GetValue())

	failed := family(t, reg, "pulse_notifications_failed_total").GetMetric()
	require.Len(t, failed, 1)
	assert.Equal(t, "reminder", failed[0].GetLabel()[0].GetValue())

	assert.Equal(t, 1.0, family(t, reg, "pulse_notification_persist_errors_total").GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 7.0, family(t, reg, "pulse_dispatch_fetched").GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, uint64(2), family(t, reg, "pulse_notification_send_seconds").GetMetric()[0].GetHistogram().GetSampleCount())

	runs := family(t, reg, "pulse_dispatch_runs_total").GetMetric()
	require.Len(t, runs, 1)
	assert.Equal(t, "ok", runs[0].GetLabel()[0].GetValue())
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	assert.Panics(t, func() { metrics.New(reg) }, "duplicate registration must panic")
}
