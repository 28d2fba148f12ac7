package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostTracker_RecordLLMCall_ComputesCost(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.RecordLLMCall("gpt-4o-mini", 1_000_000, 500_000, "classify")

	assert.InDelta(t, 0.15+0.30, ct.GetTotalCost(), 1e-9)
	byModel := ct.GetCostByModel()
	assert.InDelta(t, 0.45, byModel["gpt-4o-mini"], 1e-9)

	in, out := ct.GetTokenUsage()
	assert.Equal(t, int64(1_000_000), in)
	assert.Equal(t, int64(500_000), out)
}

func TestCostTracker_UnlistedModelRecordsZeroCost(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.RecordLLMCall("some-unknown-model", 1000, 1000, "classify")

	assert.Equal(t, float64(0), ct.GetTotalCost())
	assert.Len(t, ct.GetCallHistory(), 1)
}

func TestCostTracker_DisableStopsRecording(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.Disable()
	ct.RecordLLMCall("gpt-4o", 1_000_000, 1_000_000, "classify")

	assert.Equal(t, float64(0), ct.GetTotalCost())
	assert.Empty(t, ct.GetCallHistory())

	ct.Enable()
	ct.RecordLLMCall("gpt-4o", 1_000_000, 1_000_000, "classify")
	assert.NotEqual(t, float64(0), ct.GetTotalCost())
}

func TestCostTracker_SetCustomPricingOverrides(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.SetCustomPricing("house-model", 1.0, 2.0)
	ct.RecordLLMCall("house-model", 1_000_000, 1_000_000, "classify")

	assert.InDelta(t, 3.0, ct.GetTotalCost(), 1e-9)
}

func TestCostTracker_Reset(t *testing.T) {
	ct := NewCostTracker("run-1", "USD")
	ct.RecordLLMCall("gpt-4o", 1_000_000, 1_000_000, "classify")
	ct.Reset()

	assert.Equal(t, float64(0), ct.GetTotalCost())
	assert.Empty(t, ct.GetCallHistory())
	in, out := ct.GetTokenUsage()
	assert.Equal(t, int64(0), in)
	assert.Equal(t, int64(0), out)
}
