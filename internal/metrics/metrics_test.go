package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	collectors := map[string]prometheus.Collector{
		"router":    QuestionsRouted,
		"flushes":   BatchFlushes,
		"outcomes":  BatchOutcomes,
		"fallbacks": Fallbacks,
		"defaults":  DefaultAnswers,
		"llm":       LLMCallDuration,
		"answer":    AnswerDuration,
		"cache":     RetrievalCache,
	}
	for name, c := range collectors {
		err := prometheus.DefaultRegisterer.Register(c)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already, name)
	}
}

func TestDefaultAnswers_ByReason(t *testing.T) {
	before := testutil.ToFloat64(DefaultAnswers.WithLabelValues(ReasonMissingKey))
	DefaultAnswers.WithLabelValues(ReasonMissingKey).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultAnswers.WithLabelValues(ReasonMissingKey)))
}

func TestBatchFlushes_Exposition(t *testing.T) {
	BatchFlushes.WithLabelValues("STEM", FlushDrain).Inc()

	expected := `
# HELP mcqrouter_scheduler_flushes_total Domain buffer flushes, by domain and reason
# TYPE mcqrouter_scheduler_flushes_total counter
`
	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "mcqrouter_scheduler_flushes_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	err = testutil.CollectAndCompare(BatchFlushes, strings.NewReader(expected+
		`mcqrouter_scheduler_flushes_total{domain="STEM",reason="drain"} 1
`))
	assert.NoError(t, err)
}
