// Package toc locates the table of contents at the front of a scanned book.
//
// Detection is a small naive-Bayes model over a handful of per-page text
// features: Bernoulli likelihoods for keyword/numeral presence and a Poisson
// model for the count of lines carrying page numbers. The Scanner walks pages
// from the start of the document and uses the classifier to find the
// contiguous run of TOC pages whose text is handed to the LLM for structuring.
package toc

import (
	"math"
)

// poissonEpsilon is added to Poisson probabilities before taking the log so a
// zero-probability count never produces -Inf.
const poissonEpsilon = 1e-10

// Observation holds the per-page features the classifier consumes.
// Build one with ExtractObservation.
type Observation struct {
	// HasContentsKeyword is true when "contents" appears anywhere in the text.
	HasContentsKeyword bool
	// HasRomanNumerals is true when any line contains a standalone
	// lowercase roman-numeral token.
	HasRomanNumerals bool
	// HasIndexKeyword is true when any line contains the whole word
	// "index", "bibliography", or "references".
	HasIndexKeyword bool
	// PageNumberCount is the number of lines containing at least one run
	// of digits.
	PageNumberCount int
}

// BernoulliLikelihood holds P(feature=true | class) for both classes.
type BernoulliLikelihood struct {
	PTrue  float64 // P(feature=true | TOC page)
	PFalse float64 // P(feature=true | non-TOC page)
}

// PoissonRates holds the Poisson rate parameter for both classes.
type PoissonRates struct {
	LambdaTrue  float64 // expected count on a TOC page
	LambdaFalse float64 // expected count on a non-TOC page
}

// Parameters is the full, immutable parameter set for the classifier.
// The feature set is closed, so each feature gets a named field rather
// than a map keyed by feature name.
type Parameters struct {
	Prior     float64 // P(TOC) before seeing any features, in (0,1)
	Threshold float64 // posterior above which a page is called TOC

	ContentsKeyword BernoulliLikelihood
	RomanNumerals   BernoulliLikelihood
	IndexKeyword    BernoulliLikelihood
	PageNumberCount PoissonRates
}

// DefaultParameters returns the shipped parameter set.
//
// The threshold is deliberately low: a false negative truncates the TOC scan
// early and loses entries, while a false positive only feeds one extra page of
// text to the structuring step. Do not "fix" it upward without retuning.
func DefaultParameters() Parameters {
	return Parameters{
		Prior:           0.5,
		Threshold:       0.05,
		ContentsKeyword: BernoulliLikelihood{PTrue: 0.90, PFalse: 0.0001},
		RomanNumerals:   BernoulliLikelihood{PTrue: 0.65, PFalse: 0.08},
		IndexKeyword:    BernoulliLikelihood{PTrue: 0.95, PFalse: 0.50},
		PageNumberCount: PoissonRates{LambdaTrue: 20, LambdaFalse: 5},
	}
}

// Classifier scores page observations against a fixed parameter set.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	params Parameters
}

// NewClassifier creates a classifier with the given parameters.
func NewClassifier(params Parameters) *Classifier {
	return &Classifier{params: params}
}

// Posterior returns P(page is TOC | observation).
func (c *Classifier) Posterior(obs Observation) float64 {
	pTrue, _ := c.posteriors(obs)
	return pTrue
}

// IsTOC reports whether the posterior exceeds the decision threshold.
func (c *Classifier) IsTOC(obs Observation) bool {
	return c.Posterior(obs) > c.params.Threshold
}

// posteriors computes the normalized class probabilities in log space.
func (c *Classifier) posteriors(obs Observation) (pTrue, pFalse float64) {
	logTrue := math.Log(c.params.Prior)
	logFalse := math.Log(1 - c.params.Prior)

	for _, f := range []struct {
		observed   bool
		likelihood BernoulliLikelihood
	}{
		{obs.HasContentsKeyword, c.params.ContentsKeyword},
		{obs.HasRomanNumerals, c.params.RomanNumerals},
		{obs.HasIndexKeyword, c.params.IndexKeyword},
	} {
		if f.observed {
			logTrue += math.Log(f.likelihood.PTrue)
			logFalse += math.Log(f.likelihood.PFalse)
		} else {
			logTrue += math.Log(1 - f.likelihood.PTrue)
			logFalse += math.Log(1 - f.likelihood.PFalse)
		}
	}

	x := obs.PageNumberCount
	logTrue += math.Log(poissonPMF(x, c.params.PageNumberCount.LambdaTrue) + poissonEpsilon)
	logFalse += math.Log(poissonPMF(x, c.params.PageNumberCount.LambdaFalse) + poissonEpsilon)

	logSum := logAddExp(logTrue, logFalse)
	return math.Exp(logTrue - logSum), math.Exp(logFalse - logSum)
}

// poissonPMF evaluates the Poisson probability mass function at x.
// Computed via the log-PMF (x·lnλ − λ − lnΓ(x+1)) so large counts do not
// overflow a literal factorial; for moderate x this is numerically
// indistinguishable from the exact ratio.
func poissonPMF(x int, lambda float64) float64 {
	if x < 0 {
		return 0
	}
	lgamma, _ := math.Lgamma(float64(x) + 1)
	return math.Exp(float64(x)*math.Log(lambda) - lambda - lgamma)
}

// logAddExp returns ln(e^a + e^b) without overflow.
func logAddExp(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}
