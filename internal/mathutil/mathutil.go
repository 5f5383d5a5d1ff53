package mathutil

import "math"

// Vec is a float64 vector.
type Vec = []float64

// Mat is a 2D float64 matrix stored as row-major [][]float64.
type Mat = [][]float64

// NewVec creates a vector of length n initialized to zero.
func NewVec(n int) Vec {
	return make(Vec, n)
}

// NewMat creates a rows x cols matrix backed by one contiguous allocation.
func NewMat(rows, cols int) Mat {
	m := make(Mat, rows)
	data := make([]float64, rows*cols)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols]
	}
	return m
}

// Concat returns a new vector holding a followed by b.
func Concat(a, b Vec) Vec {
	out := make(Vec, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}

// DotVec returns the dot product of a and b.
func DotVec(a, b Vec) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// ArgMax returns the index of the largest element of v (-1 for empty v).
func ArgMax(v Vec) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Softmax writes softmax(src) into dst using the max-shift trick.
// dst and src may alias.
func Softmax(dst, src Vec) {
	maxVal := math.Inf(-1)
	for _, v := range src {
		if v > maxVal {
			maxVal = v
		}
	}
	sumExp := 0.0
	for i, v := range src {
		e := math.Exp(v - maxVal)
		dst[i] = e
		sumExp += e
	}
	for i := range dst {
		dst[i] /= sumExp
	}
}

// LogSoftmax writes log-softmax(src) into dst. dst and src may alias.
func LogSoftmax(dst, src Vec) {
	lse := LogSumExp(src)
	for i, v := range src {
		dst[i] = v - lse
	}
}

// LogSumExp returns log(sum(exp(v))) in a numerically stable way.
func LogSumExp(v Vec) float64 {
	maxVal := math.Inf(-1)
	for _, x := range v {
		if x > maxVal {
			maxVal = x
		}
	}
	if math.IsInf(maxVal, -1) {
		return maxVal
	}
	sumExp := 0.0
	for _, x := range v {
		sumExp += math.Exp(x - maxVal)
	}
	return maxVal + math.Log(sumExp)
}

// Sigmoid returns 1/(1+exp(-x)).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Mean returns the arithmetic mean of v. Panics on empty input;
// callers guard with their own degenerate-aggregation checks.
func Mean(v Vec) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// SampleVariance returns the unbiased sample variance of v
// (n-1 denominator). A single observation has variance 0.
func SampleVariance(v Vec) float64 {
	n := len(v)
	if n < 2 {
		return 0.0
	}
	m := Mean(v)
	sum := 0.0
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return sum / float64(n-1)
}
