package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-cost-etl/internal/application/etl"
	"github.com/jhoicas/inventory-cost-etl/internal/scheduler"
)

type countingJob struct {
	calls atomic.Int32
	fired chan struct{}
}

func (j *countingJob) Run(ctx context.Context) (*etl.RunResult, error) {
	n := j.calls.Add(1)
	select {
	case j.fired <- struct{}{}:
	default:
	}
	if n == 1 {
		return &etl.RunResult{RunID: "r-1"}, errors.New("origen caído")
	}
	return &etl.RunResult{RunID: "r-2", Written: 3}, nil
}

func TestNew_ExpresionInvalida(t *testing.T) {
	_, err := scheduler.New("cada lunes", time.UTC, &countingJob{}, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cada lunes")
}

func TestScheduler_ErrorNoDetieneLasCorridas(t *testing.T) {
	if testing.Short() {
		t.Skip("depende del reloj real")
	}
	job := &countingJob{fired: make(chan struct{}, 4)}
	s, err := scheduler.New("@every 1s", time.UTC, job, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-job.fired:
		case <-deadline:
			t.Fatalf("solo %d corridas antes del límite", job.calls.Load())
		}
	}
	assert.GreaterOrEqual(t, job.calls.Load(), int32(2), "tras un fallo el siguiente disparo vuelve a correr")
}
