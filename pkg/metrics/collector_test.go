package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Proton-105/rumor-bot/internal/state"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()

	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	case out.Counter != nil:
		return out.Counter.GetValue()
	}
	t.Fatalf("unsupported metric %T", m)
	return 0
}

type staticLister map[int64]*state.Session

func (l staticLister) GetAllSessions(context.Context) (map[int64]*state.Session, error) {
	return l, nil
}

func TestStateCollector_Collect(t *testing.T) {
	collector := NewStateCollector(staticLister{
		1: {State: state.StateChoosingArticle},
		2: {State: state.StateChoosingArticle},
		3: {State: ""},
	}, time.Minute, nil)

	require.NoError(t, collector.Collect(context.Background()))

	assert.Equal(t, 3.0, value(t, activeSessions))
	assert.Equal(t, 2.0, value(t, sessionsByState.WithLabelValues(string(state.StateChoosingArticle))))
	assert.Equal(t, 1.0, value(t, sessionsByState.WithLabelValues(string(state.StateInit))))
	assert.Equal(t, 0.0, value(t, sessionsByState.WithLabelValues(string(state.StateChoosingReply))))
}

func TestStateCollector_RunStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		NewStateCollector(staticLister{}, time.Millisecond, nil).Run(ctx)
		close(done)
	}()

	cancel()
	<-done
}

func TestRecordStateTransition_ViaStatePackage(t *testing.T) {
	counter := stateTransitionsTotal.WithLabelValues(string(state.StateInit), string(state.StateChoosingArticle))
	before := value(t, counter)

	state.RecordTransition(state.StateInit, state.StateChoosingArticle)

	assert.Equal(t, before+1, value(t, counter))
}
