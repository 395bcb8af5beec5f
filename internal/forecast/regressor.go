package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ridgeLambda is the L2 penalty relative to the sample count.
const ridgeLambda = 1e-3

// ridge is a linear regression fitted on standardized features. Features with
// zero variance in the training data keep a zero coefficient.
type ridge struct {
	Means     []float64 `json:"means"`
	Scales    []float64 `json:"scales"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func fitRidge(x [][]float64, y []float64, lambda float64) (ridge, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return ridge{}, fmt.Errorf("ridge fit needs matching rows, got %d features and %d targets", n, len(y))
	}
	p := len(x[0])

	r := ridge{
		Means:     make([]float64, p),
		Scales:    make([]float64, p),
		Coef:      make([]float64, p),
		Intercept: stat.Mean(y, nil),
	}

	col := make([]float64, n)
	var active []int
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		r.Means[j] = mean
		if std > 1e-12 {
			r.Scales[j] = std
			active = append(active, j)
		}
	}
	if len(active) == 0 {
		return r, nil
	}

	z := mat.NewDense(n, len(active), nil)
	for i := range x {
		for a, j := range active {
			z.Set(i, a, (x[i][j]-r.Means[j])/r.Scales[j])
		}
	}
	centered := mat.NewVecDense(n, nil)
	for i, v := range y {
		centered.SetVec(i, v-r.Intercept)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, z.T())
	for a := range active {
		gram.SetSym(a, a, gram.At(a, a)+lambda*float64(n))
	}

	var rhs mat.VecDense
	rhs.MulVec(z.T(), centered)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return ridge{}, fmt.Errorf("ridge system is not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return ridge{}, fmt.Errorf("failed to solve ridge system: %w", err)
	}

	for a, j := range active {
		r.Coef[j] = beta.AtVec(a)
	}
	return r, nil
}

func (r ridge) predict(values []float64) float64 {
	out := r.Intercept
	for j, v := range values {
		if r.Scales[j] == 0 {
			continue
		}
		out += r.Coef[j] * (v - r.Means[j]) / r.Scales[j]
	}
	return out
}

func (r ridge) valid(features int) bool {
	return len(r.Means) == features && len(r.Scales) == features && len(r.Coef) == features
}

// importance normalizes absolute standardized coefficients to sum to 1.
func (r ridge) importance(names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	total := 0.0
	for _, c := range r.Coef {
		total += math.Abs(c)
	}
	for j, name := range names {
		if total == 0 {
			out[name] = 1 / float64(len(names))
			continue
		}
		out[name] = math.Abs(r.Coef[j]) / total
	}
	return out
}

// rSquared is the coefficient of determination of predictions against y.
func rSquared(y, predicted []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := stat.Mean(y, nil)
	var ssRes, ssTot float64
	for i, v := range y {
		ssRes += (v - predicted[i]) * (v - predicted[i])
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
