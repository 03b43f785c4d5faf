package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCFDMetrics(t *testing.T) {
	log := `Time = 50
smoothSolver:  Solving for Ux, Initial residual = 0.01, Final residual = 1e-04, No Iterations 3
Time = 100
smoothSolver:  Solving for Ux, Initial residual = 0.001, Final residual = 1.2e-06, No Iterations 2
forceCoeffs output:
    Cl    = 0.731
    Cd    = 0.0214
End
`

	metrics := ParseCFDMetrics(log)

	require.Contains(t, metrics, "residual_final_last")
	assert.InDelta(t, 1.2e-06, metrics["residual_final_last"], 1e-12)
	assert.InDelta(t, (1e-04+1.2e-06)/2, metrics["residual_final_mean"], 1e-12)
	assert.InDelta(t, 100, metrics["time_last"], 1e-9)
	assert.InDelta(t, 0.731, metrics["Cl_last"], 1e-9)
	assert.InDelta(t, 0.0214, metrics["Cd_last"], 1e-9)
}

func TestParseCFDMetrics_NoMatches(t *testing.T) {
	metrics := ParseCFDMetrics("solver produced no recognizable output\n")
	assert.Empty(t, metrics)
}

func TestParseCFDMetrics_PartialOutput(t *testing.T) {
	// Residuals only, no forces reported
	metrics := ParseCFDMetrics("Final residual = 3.5e-05\n")

	assert.InDelta(t, 3.5e-05, metrics["residual_final_last"], 1e-12)
	assert.NotContains(t, metrics, "Cl_last")
	assert.NotContains(t, metrics, "time_last")
}

func TestParseMDMetrics(t *testing.T) {
	log := `Step 100: PotEng = -1543.2 Temp = 298.5 Press = 1.01
Step 200: PotEng = -1550.8 Temp = 300.1 Press = 0.98
`

	metrics := ParseMDMetrics(log)

	assert.InDelta(t, -1550.8, metrics["PotEng_last"], 1e-9)
	assert.InDelta(t, 300.1, metrics["Temp_last"], 1e-9)
	assert.InDelta(t, 0.98, metrics["Press_last"], 1e-9)
}

func TestParseMDMetrics_NoMatches(t *testing.T) {
	assert.Empty(t, ParseMDMetrics(""))
}
