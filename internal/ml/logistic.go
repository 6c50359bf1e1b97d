package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// LinearConfig configures the logistic regression baseline.
type LinearConfig struct {
	C         float64 `yaml:"c" json:"c"`
	MaxIter   int     `yaml:"maxIter" json:"max_iter"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	Balanced  bool    `yaml:"balanced" json:"balanced"`
}

// DefaultLinearConfig returns C=1, 2000 iterations and balanced class weights.
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{C: 1.0, MaxIter: 2000, Tolerance: 1e-6, Balanced: true}
}

// Validate checks the configuration.
func (c LinearConfig) Validate() error {
	if c.C <= 0 {
		return fmt.Errorf("logistic regression C must be positive, got %v", c.C)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("logistic regression maxIter must be positive, got %d", c.MaxIter)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("logistic regression tolerance must be positive, got %v", c.Tolerance)
	}
	return nil
}

// LogisticRegression is a multinomial softmax classifier with L2-penalized
// weights and unpenalized intercepts.
type LogisticRegression struct {
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// Kind implements Classifier.
func (m *LogisticRegression) Kind() Kind { return KindLogistic }

// NumClasses implements Classifier.
func (m *LogisticRegression) NumClasses() int { return len(m.Intercepts) }

// NumFeatures implements Classifier.
func (m *LogisticRegression) NumFeatures() int {
	if len(m.Weights) == 0 {
		return 0
	}
	return len(m.Weights[0])
}

// PredictProba implements Classifier.
func (m *LogisticRegression) PredictProba(x []float64) []float64 {
	z := make([]float64, len(m.Intercepts))
	for c := range z {
		z[c] = m.Intercepts[c] + floats.Dot(m.Weights[c], x)
	}
	return softmax(z)
}

// UnmarshalJSON checks the decoded shape.
func (m *LogisticRegression) UnmarshalJSON(data []byte) error {
	type plain LogisticRegression
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.Intercepts) < 2 || len(p.Weights) != len(p.Intercepts) {
		return fmt.Errorf("logistic regression: %d weight rows for %d classes", len(p.Weights), len(p.Intercepts))
	}
	for _, row := range p.Weights {
		if len(row) != len(p.Weights[0]) {
			return errors.New("logistic regression: ragged weight matrix")
		}
	}
	*m = LogisticRegression(p)
	return nil
}

func softmax(z []float64) []float64 {
	out := make([]float64, len(z))
	maxZ := floats.Max(z)
	sum := 0.0
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	floats.Scale(1/sum, out)
	return out
}

// ClassWeights returns n/(k*n_c) for every class present in y, where k is the
// number of present classes. Absent classes get weight 0.
func ClassWeights(y []int, numClasses int) []float64 {
	counts := make([]int, numClasses)
	for _, c := range y {
		counts[c]++
	}
	present := 0
	for _, n := range counts {
		if n > 0 {
			present++
		}
	}
	w := make([]float64, numClasses)
	for c, n := range counts {
		if n > 0 {
			w[c] = float64(len(y)) / (float64(present) * float64(n))
		}
	}
	return w
}

// lrObjective evaluates the weighted mean cross-entropy plus the L2 penalty
// and its gradient. Parameters are laid out class by class as d weights
// followed by the intercept. The last evaluation is cached because the
// optimizer asks for the value and the gradient at the same point separately.
type lrObjective struct {
	x       [][]float64
	y       []int
	sw      []float64
	k, d    int
	penalty float64

	lastX    []float64
	lastF    float64
	lastGrad []float64
}

func newLRObjective(x [][]float64, y []int, k int, cfg LinearConfig) *lrObjective {
	sw := make([]float64, len(y))
	classW := ClassWeights(y, k)
	total := 0.0
	for i, c := range y {
		if cfg.Balanced {
			sw[i] = classW[c]
		} else {
			sw[i] = 1
		}
		total += sw[i]
	}
	floats.Scale(1/total, sw)
	return &lrObjective{
		x:       x,
		y:       y,
		sw:      sw,
		k:       k,
		d:       len(x[0]),
		penalty: 1 / (cfg.C * total),
	}
}

func (o *lrObjective) evaluate(params []float64) {
	if o.lastX != nil && floats.Equal(o.lastX, params) {
		return
	}
	stride := o.d + 1
	grad := make([]float64, len(params))
	z := make([]float64, o.k)
	f := 0.0

	for i, xi := range o.x {
		for c := 0; c < o.k; c++ {
			w := params[c*stride : c*stride+o.d]
			z[c] = params[c*stride+o.d] + floats.Dot(w, xi)
		}
		maxZ := floats.Max(z)
		lse := 0.0
		for _, v := range z {
			lse += math.Exp(v - maxZ)
		}
		lse = maxZ + math.Log(lse)
		f += o.sw[i] * (lse - z[o.y[i]])

		for c := 0; c < o.k; c++ {
			r := math.Exp(z[c] - lse)
			if c == o.y[i] {
				r--
			}
			r *= o.sw[i]
			floats.AddScaled(grad[c*stride:c*stride+o.d], r, xi)
			grad[c*stride+o.d] += r
		}
	}

	for c := 0; c < o.k; c++ {
		w := params[c*stride : c*stride+o.d]
		f += 0.5 * o.penalty * floats.Dot(w, w)
		floats.AddScaled(grad[c*stride:c*stride+o.d], o.penalty, w)
	}

	o.lastX = slices.Clone(params)
	o.lastF = f
	o.lastGrad = grad
}

func (o *lrObjective) Func(params []float64) float64 {
	o.evaluate(params)
	return o.lastF
}

func (o *lrObjective) Grad(grad, params []float64) {
	o.evaluate(params)
	copy(grad, o.lastGrad)
}

// FitLogistic trains a multinomial logistic regression with L-BFGS. x must be
// non-empty and rectangular; y holds class indices below numClasses.
func FitLogistic(x [][]float64, y []int, numClasses int, cfg LinearConfig) (*LogisticRegression, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("logistic regression: %d rows for %d labels", len(x), len(y))
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("logistic regression needs at least 2 classes, got %d", numClasses)
	}

	obj := newLRObjective(x, y, numClasses, cfg)
	problem := optimize.Problem{Func: obj.Func, Grad: obj.Grad}
	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIter,
		GradientThreshold: cfg.Tolerance,
	}
	init := make([]float64, numClasses*(obj.d+1))

	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("logistic regression optimization failed: %w", err)
	}
	converged := err == nil && result.Status != optimize.IterationLimit
	if !converged {
		log.Warn().
			Err(err).
			Str("status", result.Status.String()).
			Int("iterations", result.MajorIterations).
			Msg("Logistic regression stopped before convergence, keeping best point")
	}

	m := &LogisticRegression{
		Weights:    make([][]float64, numClasses),
		Intercepts: make([]float64, numClasses),
		Iterations: result.MajorIterations,
		Converged:  converged,
	}
	stride := obj.d + 1
	for c := 0; c < numClasses; c++ {
		m.Weights[c] = slices.Clone(result.X[c*stride : c*stride+obj.d])
		m.Intercepts[c] = result.X[c*stride+obj.d]
	}

	log.Debug().
		Int("iterations", m.Iterations).
		Float64("loss", result.F).
		Bool("converged", converged).
		Msg("Logistic regression fitted")
	return m, nil
}
