package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	assert.NoError(t, err)

	m.BlocksExecuted.Inc()
	m.BackstepCount.Add(2)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "execution_engine_blocks_executed_total" {
			found = true
			assert.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "expected blocks_executed_total to be registered")
}

func TestNewFailsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	assert.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
