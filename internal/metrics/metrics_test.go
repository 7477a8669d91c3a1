package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLoad(t *testing.T) {
	ok := testutil.ToFloat64(loadsTotal.WithLabelValues(ResultOK))
	bad := testutil.ToFloat64(loadsTotal.WithLabelValues(ResultError))

	ObserveLoad(10*time.Millisecond, nil)
	ObserveLoad(time.Millisecond, errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(loadsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, bad+1, testutil.ToFloat64(loadsTotal.WithLabelValues(ResultError)))
}

func TestObserveCommandSetsGauges(t *testing.T) {
	ObserveCommand("append", 3, 14.75)
	assert.Equal(t, 3.0, testutil.ToFloat64(cachedExpenses))
	assert.Equal(t, 14.75, testutil.ToFloat64(cachedTotal))
}

func TestObserveSubmitAndRateLimited(t *testing.T) {
	before := testutil.ToFloat64(submitsTotal.WithLabelValues(ResultError))
	ObserveSubmit(errors.New("rejected"))
	assert.Equal(t, before+1, testutil.ToFloat64(submitsTotal.WithLabelValues(ResultError)))

	limited := testutil.ToFloat64(rateLimited)
	RateLimited()
	assert.Equal(t, limited+1, testutil.ToFloat64(rateLimited))
}

func TestObserveMessage(t *testing.T) {
	before := testutil.ToFloat64(eventsTotal.WithLabelValues(DirectionPublish, ResultOK))
	ObserveMessage(DirectionPublish, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(eventsTotal.WithLabelValues(DirectionPublish, ResultOK)))

	suspicious := testutil.ToFloat64(suspiciousRequests)
	SuspiciousRequest()
	assert.Equal(t, suspicious+1, testutil.ToFloat64(suspiciousRequests))
}
