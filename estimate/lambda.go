package estimate

import (
	"fmt"
	"math"
)

// Estimator selects how λ is recovered from the coverage vector.
type Estimator int

const (
	// EstimatorRatio derives λ from the ratio of the two histogram
	// bins around the modal multiplicity. The default.
	EstimatorRatio Estimator = iota

	// EstimatorMME applies the zero-inflated Poisson method of
	// moments.
	EstimatorMME

	// EstimatorMLE solves the zero-truncated Poisson score equation.
	EstimatorMLE
)

func (e Estimator) String() string {
	switch e {
	case EstimatorRatio:
		return "ratio"
	case EstimatorMME:
		return "mme"
	case EstimatorMLE:
		return "mle"
	default:
		return fmt.Sprintf("estimator(%d)", int(e))
	}
}

// ParseEstimator maps a flag value onto an Estimator.
func ParseEstimator(s string) (Estimator, error) {
	switch s {
	case "ratio":
		return EstimatorRatio, nil
	case "mme":
		return EstimatorMME, nil
	case "mle":
		return EstimatorMLE, nil
	default:
		return 0, fmt.Errorf("unknown coverage estimator %q", s)
	}
}

// AdjustStatus records whether and how a row's ANI was
// coverage-adjusted.
type AdjustStatus int

const (
	// StatusLow marks rows where the estimator found too little
	// signal; the naive ANI stands.
	StatusLow AdjustStatus = iota

	// StatusHigh marks rows deep enough that no adjustment is needed.
	StatusHigh

	// StatusLambda marks rows adjusted with an estimated λ.
	StatusLambda
)

func (s AdjustStatus) String() string {
	switch s {
	case StatusLow:
		return "LOW"
	case StatusHigh:
		return "HIGH"
	default:
		return "LAMBDA"
	}
}

// minLambdaSamples is the smallest number of nonzero coverage
// observations any estimator accepts.
const minLambdaSamples = 25

// estimateLambda runs the selected estimator over the zero-padded
// coverage vector.
func estimateLambda(est Estimator, full []uint32, minCountCorrect float64) (float64, bool) {
	switch est {
	case EstimatorMME:
		return mmeLambda(full)
	case EstimatorMLE:
		return mleLambda(full)
	default:
		return ratioLambda(full, minCountCorrect)
	}
}

// ratioLambda estimates λ from adjacent multiplicity histogram bins:
// for Poisson counts, P(X=m+1)/P(X=m) = λ/(m+1), so the bin ratio at
// the modal multiplicity m gives λ = (m+1)·f(m+1)/f(m). Both bins
// must hold at least minCountCorrect observations to count as
// evidence.
func ratioLambda(full []uint32, minCountCorrect float64) (float64, bool) {
	bins := make(map[uint32]float64)
	nonzero := 0
	for _, c := range full {
		if c == 0 {
			continue
		}
		nonzero++
		bins[c]++
	}
	if nonzero < minLambdaSamples {
		return 0, false
	}

	var mode uint32
	best := -1.0
	for c, n := range bins {
		if n > best || (n == best && c < mode) {
			best, mode = n, c
		}
	}

	fm, fm1 := bins[mode], bins[mode+1]
	if fm1 == 0 || fm < minCountCorrect || fm1 < minCountCorrect {
		return 0, false
	}
	return fm1 / fm * float64(mode+1), true
}

// mmeLambda matches the first two moments of the zero-inflated
// Poisson: E[X²]/E[X] = 1+λ.
func mmeLambda(full []uint32) (float64, bool) {
	nonzero := 0
	var s1, s2 float64
	for _, c := range full {
		if c != 0 {
			nonzero++
		}
		x := float64(c)
		s1 += x
		s2 += x * x
	}
	if nonzero < minLambdaSamples || s1 == 0 {
		return 0, false
	}
	lam := s2/s1 - 1
	if lam <= 0 || math.IsNaN(lam) || math.IsInf(lam, 0) {
		return 0, false
	}
	return lam, true
}

// mleLambda solves λ/(1−e^(−λ)) = m̄, the score equation of the
// zero-truncated Poisson with m̄ the mean of the nonzero
// observations, by Newton iteration from λ₀ = m̄.
func mleLambda(full []uint32) (float64, bool) {
	nonzero := 0
	var sum float64
	for _, c := range full {
		if c != 0 {
			nonzero++
			sum += float64(c)
		}
	}
	if nonzero < minLambdaSamples {
		return 0, false
	}
	m := sum / float64(nonzero)
	if m <= 1 {
		// The truncated mean approaches 1 as λ→0; no positive root.
		return 0, false
	}

	lam := m
	for range 30 {
		em := math.Exp(-lam)
		denom := 1 - em
		g := lam/denom - m
		deriv := (denom - lam*em) / (denom * denom)
		next := lam - g/deriv
		if next <= 0 {
			next = lam / 2
		}
		if math.Abs(next-lam) < 1e-12 {
			lam = next
			break
		}
		lam = next
	}
	if math.IsNaN(lam) || lam <= 0 {
		return 0, false
	}
	return lam, true
}

// aniFromLambda rescales the containment fraction by the Poisson
// observed mass 1−e^(−λ) and takes the tag-length root. Values above
// one are kept; printing clamps them.
func aniFromLambda(lambda, tagLen float64, full []uint32) (float64, bool) {
	contained := 0
	for _, c := range full {
		if c != 0 {
			contained++
		}
	}
	adj := float64(contained) / (1 - math.Exp(-lambda)) / float64(len(full))
	ani := math.Pow(adj, 1/tagLen)
	if ani < 0 || math.IsNaN(ani) {
		return 0, false
	}
	return ani, true
}

// poissonCDF returns P(X ≤ x) for X ~ Poisson(lambda) by direct
// summation. Callers only reach here with lambda below the damping
// ceiling, where the leading term e^(−λ) is far from underflow.
func poissonCDF(lambda, x float64) float64 {
	if x < 0 {
		return 0
	}
	k := int(math.Floor(x))
	term := math.Exp(-lambda)
	sum := term
	for i := 1; i <= k; i++ {
		term *= lambda / float64(i)
		sum += term
	}
	return math.Min(sum, 1)
}
