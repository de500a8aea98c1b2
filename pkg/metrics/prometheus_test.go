package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"FinRegime/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordSeries("SP500", "processed")
	r.RecordSeries("SP500", "processed")
	r.RecordSeries("FTSE100", "skipped")
	r.RecordMissingReturns("SP500", 3)
	r.RecordRegimeDays("SP500", map[models.Regime]int{models.RegimeCrisis: 12})
	r.RecordStage("features", 5*time.Millisecond)
	r.RecordSinkError("kafka")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.seriesTotal.WithLabelValues("SP500", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.seriesTotal.WithLabelValues("FTSE100", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.missingReturns.WithLabelValues("SP500")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.regimeDays.WithLabelValues("SP500", "crisis")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.regimeDays.WithLabelValues("SP500", "normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sinkErrors.WithLabelValues("kafka")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageDuration))
}
