package distance

// Unreachable marks a pair the remote service could not route. Consumers must
// treat negative costs as unknown, never as zero.
const Unreachable = -1

// Matrix is a cost matrix. Entry [i][j] is the cost from source point i to
// destination point j in the metric's native unit (meters for the local
// metrics, seconds or meters for the remote ones). It is symmetric with a
// zero diagonal when sources equal destinations and the metric is symmetric;
// the remote metrics are directional and generally asymmetric.
type Matrix [][]float64

// NewMatrix allocates a rows×cols matrix backed by a single slice.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	if rows == 0 || cols == 0 {
		return m
	}
	backing := make([]float64, rows*cols)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// Rows returns the number of source points.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the number of destination points.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}
