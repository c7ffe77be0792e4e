package visualizer

import "math"

// fft is an in-place radix-2 transform of a fixed size. The tables belong to
// the instance so visualizers never share mutable state.
type fft struct {
	n   int
	rev []int
	cos []float64
	sin []float64
}

func newFFT(n int) *fft {
	if n < 2 || n&(n-1) != 0 {
		panic("visualizer: fft size must be a power of two")
	}
	bits := 0
	for 1<<bits < n {
		bits++
	}

	f := &fft{
		n:   n,
		rev: make([]int, n),
		cos: make([]float64, n/2),
		sin: make([]float64, n/2),
	}
	for i := range f.rev {
		r := 0
		for b := 0; b < bits; b++ {
			if i&(1<<b) != 0 {
				r |= 1 << (bits - 1 - b)
			}
		}
		f.rev[i] = r
	}
	for k := range f.cos {
		a := 2 * math.Pi * float64(k) / float64(n)
		f.cos[k] = math.Cos(a)
		f.sin[k] = math.Sin(a)
	}
	return f
}

// transform runs a forward DFT over re/im, both of length n.
func (f *fft) transform(re, im []float64) {
	n := f.n
	for i, j := range f.rev {
		if j > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				c, s := f.cos[k*step], f.sin[k*step]
				a, b := start+k, start+k+half
				tr := re[b]*c + im[b]*s
				ti := im[b]*c - re[b]*s
				re[b] = re[a] - tr
				im[b] = im[a] - ti
				re[a] += tr
				im[a] += ti
			}
		}
	}
}

// power fills out (length n/2+1) with re²+im². The DC and Nyquist bins are
// not mirrored, so they are scaled down by 4.
func (f *fft) power(re, im, out []float64) {
	half := f.n / 2
	for k := 0; k <= half; k++ {
		out[k] = re[k]*re[k] + im[k]*im[k]
	}
	out[0] /= 4
	out[half] /= 4
}
