package ops

import "github.com/born-ml/vision/internal/tensor"

// BatchNorm2DOp is per-channel normalization followed by an affine transform.
// Inputs are x, gamma and beta. The statistics are saved, not differentiated
// as inputs; with batchStats they are treated as functions of x.
type BatchNorm2DOp struct {
	node
	mean, variance *tensor.RawTensor
	eps            float32
	batchStats     bool
}

// NewBatchNorm2DOp records batchnorm(x, gamma, beta) = out.
func NewBatchNorm2DOp(x, gamma, beta, mean, variance, out *tensor.RawTensor, eps float32, batchStats bool) *BatchNorm2DOp {
	return &BatchNorm2DOp{
		node:       newNode(out, x, gamma, beta),
		mean:       mean,
		variance:   variance,
		eps:        eps,
		batchStats: batchStats,
	}
}

// Backward returns gradients for x, gamma and beta.
func (op *BatchNorm2DOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x, gamma := op.inputs[0], op.inputs[1]
	dx, dgamma, dbeta := backend.BatchNorm2DBackward(x, gamma, op.mean, op.variance, g, op.eps, op.batchStats)
	return []*tensor.RawTensor{dx, dgamma, dbeta}
}
