package physio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiamCalcEffClamp(t *testing.T) {
	assert.Equal(t, MinDiamCalc, DiamCalcEff(1.0))
	assert.Equal(t, 20.0, DiamCalcEff(20.0))
}

func TestDynamicPlasmaViscosityDefault(t *testing.T) {
	assert.Equal(t, DefaultPlasmaViscosity, DynamicPlasmaViscosity(0))
	assert.Equal(t, 2.5, DynamicPlasmaViscosity(2.5))
}

func TestHematocritRoundTrip(t *testing.T) {
	d := 20.0
	for _, htd := range []float64{0.1, 0.3, 0.45} {
		htt := DischargeToTubeHematocrit(htd, d, true)
		back := TubeToDischargeHematocrit(htt, d, true)
		assert.InDelta(t, htd, back, 0.02, "round trip at htd=%v", htd)
	}
}

func TestRelativeApparentBloodViscosityIncreasesWithHematocrit(t *testing.T) {
	d := 15.0
	lo := RelativeApparentBloodViscosity(d, 0.1, false)
	hi := RelativeApparentBloodViscosity(d, 0.6, false)
	assert.Greater(t, hi, lo)
}

func TestVelocityFactorFallback(t *testing.T) {
	assert.Equal(t, 1.0, VelocityFactor(10, 0, false))
}

func TestMaxDischargeHtClamp(t *testing.T) {
	htt := DischargeToTubeHematocrit(0.99, 10, false)
	assert.LessOrEqual(t, TubeToDischargeHematocrit(htt, 10, false), MaxDischargeHt+1e-9)
}
