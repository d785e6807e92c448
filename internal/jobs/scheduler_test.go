package jobs

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) CleanupExpiredSessions() int {
	p.calls.Add(1)
	return 2
}

func TestCronServiceStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &countingPurger{}
	s := NewCronService(map[string]interface{}{"timezone": "Asia/Singapore", "purge_schedule": "@every 1h"}, p)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)

	s.purge()
	assert.Equal(t, int32(1), p.calls.Load())
	require.NoError(t, s.Stop())
}

func TestCronServiceBadConfig(t *testing.T) {
	assert.Error(t, NewCronService(map[string]interface{}{"timezone": "Mars/Olympus"}, nil).Start())
	assert.Error(t, NewCronService(map[string]interface{}{"purge_schedule": "not a schedule"}, nil).Start())

	s := NewCronService(nil, nil)
	require.NoError(t, s.Start())
	s.purge()
	require.NoError(t, s.Stop())
}
