// Package physio implements the Pries-style empirical physiology functions
// used to relate vessel geometry and hematocrit to blood rheology: plasma
// viscosity, RBC volume, tube/discharge hematocrit conversion, the RBC
// velocity factor and the relative apparent blood viscosity. All functions
// are pure and stateless.
package physio

import (
	"math"

	"github.com/cpmech/gosl/utl"
)

// DefaultPlasmaViscosity is used when a simulation does not supply its own
// plasma viscosity [default-unit-system cP].
const DefaultPlasmaViscosity = 1.2

// RBCVolume is the volume of a single red blood cell [µm³].
const RBCVolume = 92.0

// MinDiamCalc is the smallest diameter [µm] for which the Pries fits are
// considered valid; smaller vessels are clamped to this value before being
// fed into the empirical formulas (spec: diamCalcEff).
const MinDiamCalc = 3.0

// MaxDischargeHt is the upper clamp applied to htd.
const MaxDischargeHt = 0.95

// RBCVolumeConst returns the volume of a single RBC.
func RBCVolumeConst() float64 { return RBCVolume }

// DiamCalcEff clamps d to the validated diameter range of the empirical fits.
func DiamCalcEff(d float64) float64 {
	return utl.Max(d, MinDiamCalc)
}

// DynamicPlasmaViscosity returns the default plasma viscosity, or a
// caller-supplied override when mu > 0.
func DynamicPlasmaViscosity(mu float64) float64 {
	if mu > 0 {
		return mu
	}
	return DefaultPlasmaViscosity
}

// etaVitro45 is the Pries 1992 in-vitro relative viscosity at a discharge
// hematocrit of 0.45, as a function of effective diameter d [µm].
func etaVitro45(d float64) float64 {
	return 220.0*math.Exp(-1.3*d) + 3.2 - 2.44*math.Exp(-0.06*math.Pow(d, 0.645))
}

// bifurcC is the Pries 1992 shape exponent C(d).
func bifurcC(d float64) float64 {
	d12 := math.Pow(d, 12)
	term := 1.0 / (1.0 + 1e-11*d12)
	return (0.8+math.Exp(-0.075*d))*(term-1.0) + term
}

// inVivoWidening is the Pries & Secomb in-vivo widening factor applied to
// the vessel diameter to account for the endothelial surface layer.
func inVivoWidening(d float64) float64 {
	const wMax = 2.6
	const dCrit = 10.5
	const d50 = 100.0
	const eAmp = 1.1
	if d <= dCrit {
		return 0
	}
	return wMax * (1.0 - math.Exp(-eAmp*(d-dCrit)/(d50-dCrit)))
}

// RelativeApparentBloodViscosity returns the relative apparent viscosity
// (relative to plasma) of blood flowing through a vessel of effective
// diameter d [µm] at discharge hematocrit htd, using the invitro fit or
// its in-vivo correction.
func RelativeApparentBloodViscosity(d, htd float64, invivo bool) float64 {
	dEff := DiamCalcEff(d)
	c := bifurcC(dEff)
	eta45 := etaVitro45(dEff)
	denom := math.Pow(1.0-0.45, c) - 1.0
	if math.Abs(denom) < 1e-12 {
		denom = -1e-12
	}
	etaVitro := 1.0 + (eta45-1.0)*(math.Pow(1.0-htd, c)-1.0)/denom
	if !invivo {
		return math.Max(etaVitro, 1.0)
	}
	w := inVivoWidening(dEff)
	dPhys := dEff - 2.0*w
	if dPhys < 1.0 {
		dPhys = 1.0
	}
	widen := math.Pow(dEff/dPhys, 4)
	return math.Max(etaVitro*widen, 1.0)
}

// fahraeusShape is the Pries 1990 Fahraeus-effect shape factor relating
// discharge to tube hematocrit at diameter d [µm].
func fahraeusShape(d float64) float64 {
	return 1.0 + 1.7*math.Exp(-0.415*d) - 0.6*math.Exp(-0.011*d)
}

// DischargeToTubeHematocrit converts a discharge hematocrit htd into the
// corresponding tube hematocrit htt at vessel diameter d [µm] (Fahraeus
// effect: Ht = Hd * (Hd + (1-Hd)*b(d))).
func DischargeToTubeHematocrit(htd, d float64, invivo bool) float64 {
	_ = invivo
	dEff := DiamCalcEff(d)
	b := fahraeusShape(dEff)
	htt := htd * (htd + (1.0-htd)*b)
	return math.Max(0, math.Min(htt, 1.0))
}

// TubeToDischargeHematocrit inverts DischargeToTubeHematocrit: given the
// tube hematocrit htt and diameter d [µm], solves the quadratic
//
//	(1-b)*Hd^2 + b*Hd - Ht = 0
//
// for the physically valid root Hd in [0,1], clamped to MaxDischargeHt.
func TubeToDischargeHematocrit(htt, d float64, invivo bool) float64 {
	_ = invivo
	if htt <= 0 {
		return 0
	}
	dEff := DiamCalcEff(d)
	b := fahraeusShape(dEff)
	a := 1.0 - b
	var hd float64
	if math.Abs(a) < 1e-12 {
		hd = htt / b
	} else {
		disc := b*b + 4.0*a*htt
		if disc < 0 {
			disc = 0
		}
		hd = (-b + math.Sqrt(disc)) / (2.0 * a)
	}
	if hd < 0 {
		hd = 0
	}
	return math.Min(hd, MaxDischargeHt)
}

// VelocityFactor returns the ratio of mean RBC (particle) velocity to the
// bulk mean blood velocity, vf = htd/htt (the Fahraeus velocity
// enhancement). When htt is zero (empty vessel), vf falls back to 1, per
// the convention used throughout this model.
func VelocityFactor(d, htt float64, invivo bool) float64 {
	if htt <= 0 {
		return 1.0
	}
	htd := TubeToDischargeHematocrit(htt, d, invivo)
	vf := htd / htt
	if vf < 1.0 {
		return 1.0
	}
	return vf
}
