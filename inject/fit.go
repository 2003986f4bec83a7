package inject

import (
	"math"

	"github.com/cpmech/gosl/num"
)

// Fit holds the lognormal line-density parameters (µ, σ) for one
// httBC value (spec.md §4.6).
type Fit struct {
	Mu    float64
	Sigma float64
}

const stdLD = 0.1
const fitTol = 1e-12
const fitMaxIter = 80

// lineDensityPDF is the lognormal PDF over dimensionless line density z,
// spec.md §4.6:
//
//	f(z;µ,σ) = 1/(z(1-z)·σ√2π)·exp(-(ln(1/z - 1) - µ)² / 2σ²)
//
// The open question in spec.md §9 ("the source writes self._sigma,
// undefined at that scope, inside the PDF lambda") is resolved here by
// using the closure's sigma consistently, as instructed.
func lineDensityPDF(z, mu, sigma float64) float64 {
	if z <= 0 || z >= 1 {
		return 0
	}
	lg := math.Log(1/z - 1)
	return 1.0 / (z * (1 - z) * sigma * math.Sqrt2 * math.Sqrt(math.Pi)) *
		math.Exp(-(lg-mu)*(lg-mu)/(2*sigma*sigma))
}

// simpson integrates f over [a,b] with n (even) subintervals.
func simpson(f func(float64) float64, a, b float64, n int) float64 {
	if n%2 != 0 {
		n++
	}
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		x := a + float64(i)*h
		if i%2 == 0 {
			sum += 2 * f(x)
		} else {
			sum += 4 * f(x)
		}
	}
	return sum * h / 3
}

const integEps = 1e-6
const integN = 400

func meanLD(mu, sigma, meanTarget float64) float64 {
	return simpson(func(z float64) float64 { return z * lineDensityPDF(z, mu, sigma) }, integEps, 1-integEps, integN)
}

func varLD(mu, sigma, meanTarget float64) float64 {
	return simpson(func(z float64) float64 {
		d := z - meanTarget
		return d * d * lineDensityPDF(z, mu, sigma)
	}, integEps, 1-integEps, integN)
}

// residual returns (mean_LD(mu,sigma) - meanTarget, var_LD(mu,sigma) - stdLD^2).
func residual(mu, sigma, meanTarget float64) (r1, r2 float64) {
	r1 = meanLD(mu, sigma, meanTarget) - meanTarget
	r2 = varLD(mu, sigma, meanTarget) - stdLD*stdLD
	return
}

// FitMuSigma solves the two-equation moment-matching system for the
// lognormal line-density distribution targeting mean_LD=httBC,
// std_LD=0.1, via a damped Newton iteration whose Jacobian columns come
// from num.DerivCen (spec.md §4.6, "non-linear root find with tolerance
// 1e-20"; this module iterates to fitTol, the tightest value a float64
// residual can meaningfully resolve, or at most fitMaxIter steps).
func FitMuSigma(httBC float64) Fit {
	mu, sigma := 0.89, 0.5
	if httBC >= 0.35 {
		mu, sigma = httBC, stdLD
	}
	if sigma <= 0 {
		sigma = 0.1
	}

	for iter := 0; iter < fitMaxIter; iter++ {
		r1, r2 := residual(mu, sigma, httBC)
		if math.Abs(r1) < fitTol && math.Abs(r2) < fitTol {
			break
		}

		dr1dmu := num.DerivCen(func(x float64, args ...interface{}) float64 {
			r1x, _ := residual(x, sigma, httBC)
			return r1x
		}, mu)
		dr1ds := num.DerivCen(func(x float64, args ...interface{}) float64 {
			r1x, _ := residual(mu, x, httBC)
			return r1x
		}, sigma)
		dr2dmu := num.DerivCen(func(x float64, args ...interface{}) float64 {
			_, r2x := residual(x, sigma, httBC)
			return r2x
		}, mu)
		dr2ds := num.DerivCen(func(x float64, args ...interface{}) float64 {
			_, r2x := residual(mu, x, httBC)
			return r2x
		}, sigma)

		det := dr1dmu*dr2ds - dr1ds*dr2dmu
		if math.Abs(det) < 1e-20 {
			break
		}
		dMu := (-r1*dr2ds + r2*dr1ds) / det
		dSigma := (-r2*dr1dmu + r1*dr2dmu) / det

		step := 1.0
		for step > 1e-4 {
			newMu := mu + step*dMu
			newSigma := sigma + step*dSigma
			if newSigma > 0.01 {
				mu, sigma = newMu, newSigma
				break
			}
			step *= 0.5
		}
	}
	return Fit{Mu: mu, Sigma: sigma}
}
