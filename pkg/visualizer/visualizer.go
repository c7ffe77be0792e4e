// Package visualizer turns PCM into smoothed, log-spaced spectrum bars.
package visualizer

import (
	"math"
	"sort"
	"sync"

	"flow-player/pkg/audio"
)

const (
	// WindowSize is the number of frames per transform.
	WindowSize = 512
	// BarCount is the number of log-spaced bars.
	BarCount = 32

	// maxPending bounds queued bar frames when nobody steps.
	maxPending = 512
)

// scale maps a full-scale tone to roughly 1.0.
var scale = 1 / math.Log(4096)

// BarFrame is the spectrum of one window.
type BarFrame struct {
	Time float64
	Bars [BarCount]float64
}

// Visualizer consumes audio windows and produces time-stamped bar frames. A
// single lock covers every field: the audio worker produces, the UI steps.
type Visualizer struct {
	mu      sync.Mutex
	fft     *fft
	binBar  []int
	pending []BarFrame
	current BarFrame

	samples []int16
	left    []float64
	right   []float64
	imL     []float64
	imR     []float64
	powL    []float64
	powR    []float64
}

// New allocates a visualizer together with its transform tables.
func New() *Visualizer {
	v := &Visualizer{
		fft:     newFFT(WindowSize),
		binBar:  make([]int, WindowSize/2+1),
		samples: make([]int16, WindowSize*2),
		left:    make([]float64, WindowSize),
		right:   make([]float64, WindowSize),
		imL:     make([]float64, WindowSize),
		imR:     make([]float64, WindowSize),
		powL:    make([]float64, WindowSize/2+1),
		powR:    make([]float64, WindowSize/2+1),
	}
	for k := range v.binBar {
		v.binBar[k] = BarForBin(k)
	}
	return v
}

// BarForBin returns the bar a spectrum bin is accumulated into.
func BarForBin(k int) int {
	if k <= 1 {
		return 0
	}
	b := int(math.Log(float64(k)) / math.Log(WindowSize/2) * BarCount)
	return min(max(b, 0), BarCount-1)
}

// Update transforms every complete window in buf, consuming it.
func (v *Visualizer) Update(buf *audio.Buffer) int {
	format := buf.Format()
	if !format.Valid() {
		return 0
	}
	ch := format.Channels

	v.mu.Lock()
	defer v.mu.Unlock()

	if cap(v.samples) < WindowSize*ch {
		v.samples = make([]int16, WindowSize*ch)
	}
	samples := v.samples[:WindowSize*ch]

	n := 0
	for buf.Available() >= WindowSize {
		start := buf.StartTime()
		if buf.Read(samples) < len(samples) {
			break
		}
		for i := 0; i < WindowSize; i++ {
			l := samples[i*ch]
			r := l
			if ch > 1 {
				r = samples[i*ch+1]
			}
			v.left[i], v.right[i] = float64(l), float64(r)
		}
		v.insert(v.analyse(start))
		n++
	}
	return n
}

func (v *Visualizer) analyse(t float64) BarFrame {
	clear(v.imL)
	clear(v.imR)
	v.fft.transform(v.left, v.imL)
	v.fft.transform(v.right, v.imR)
	v.fft.power(v.left, v.imL, v.powL)
	v.fft.power(v.right, v.imR, v.powR)

	var peak [BarCount]float64
	for k, bar := range v.binBar {
		p := math.Max(v.powL[k], v.powR[k])
		if p > peak[bar] {
			peak[bar] = p
		}
	}

	f := BarFrame{Time: t}
	for i, p := range peak {
		level := int64(math.Sqrt(p)) >> 12
		if level <= 0 {
			continue
		}
		f.Bars[i] = math.Max(0, math.Log(float64(level))*scale)
	}
	return f
}

func (v *Visualizer) insert(f BarFrame) {
	i := sort.Search(len(v.pending), func(i int) bool { return v.pending[i].Time > f.Time })
	v.pending = append(v.pending, BarFrame{})
	copy(v.pending[i+1:], v.pending[i:])
	v.pending[i] = f
	if len(v.pending) > maxPending {
		v.pending = v.pending[len(v.pending)-maxPending:]
	}
}

// Step merges every frame due at now into the current bars and reports
// whether anything changed.
func (v *Visualizer) Step(now float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	due := sort.Search(len(v.pending), func(i int) bool { return v.pending[i].Time > now })
	if due == 0 {
		return false
	}
	for _, f := range v.pending[:due] {
		for i := range v.current.Bars {
			v.current.Bars[i] = (3*v.current.Bars[i] + f.Bars[i]) / 4
		}
		v.current.Time = f.Time
	}
	v.pending = append(v.pending[:0], v.pending[due:]...)
	return true
}

// Clear drops queued and current bars.
func (v *Visualizer) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = v.pending[:0]
	v.current = BarFrame{}
}

// Bars returns a copy of the current bars.
func (v *Visualizer) Bars() BarFrame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Pending is the number of frames not yet stepped into the current bars.
func (v *Visualizer) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}
