package blas

// Dgemv computes y = A*x + beta*y for a row-major [m × n] matrix A.
// If trans is true, y = A^T*x + beta*y (x has length m, y length n).
func Dgemv(trans bool, m, n int, a []float64, x []float64, beta float64, y []float64) {
	if trans {
		for j := 0; j < n; j++ {
			y[j] *= beta
		}
		for i := 0; i < m; i++ {
			xi := x[i]
			if xi == 0 {
				continue
			}
			row := a[i*n : (i+1)*n]
			for j, v := range row {
				y[j] += xi * v
			}
		}
		return
	}
	for i := 0; i < m; i++ {
		row := a[i*n : (i+1)*n]
		sum := 0.0
		for j, v := range row {
			sum += v * x[j]
		}
		y[i] = sum + beta*y[i]
	}
}

// Dgemm performs C = op(A)*op(B) + beta*C in pure Go.
// All matrices are row-major; op(X) = X^T when the corresponding trans flag is set.
// A is [m × k] (or [k × m] transposed), B is [k × n] (or [n × k]), C is [m × n].
func Dgemm(transA, transB bool, m, n, k int, a []float64, lda int, b []float64, ldb int, beta float64, c []float64, ldc int) {
	for i := 0; i < m; i++ {
		cRow := c[i*ldc : i*ldc+n]
		if beta == 0 {
			for j := range cRow {
				cRow[j] = 0
			}
		} else if beta != 1 {
			for j := range cRow {
				cRow[j] *= beta
			}
		}
		for p := 0; p < k; p++ {
			var aVal float64
			if transA {
				aVal = a[p*lda+i]
			} else {
				aVal = a[i*lda+p]
			}
			if aVal == 0 {
				continue
			}
			if transB {
				for j := 0; j < n; j++ {
					cRow[j] += aVal * b[j*ldb+p]
				}
			} else {
				bRow := b[p*ldb : p*ldb+n]
				for j, bVal := range bRow {
					cRow[j] += aVal * bVal
				}
			}
		}
	}
}
