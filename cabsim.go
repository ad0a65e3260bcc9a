package cabsim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-cabsim/dsp/biquad"
	"github.com/cwbudde/algo-cabsim/dsp/convolve"
	"github.com/cwbudde/algo-cabsim/dsp/core"
	"github.com/cwbudde/algo-cabsim/ir"
	"github.com/cwbudde/algo-cabsim/selector"
	"github.com/cwbudde/algo-cabsim/settings"
)

// Config holds every tunable of a Unit. All values are fixed at
// construction; there is no runtime reconfiguration.
type Config struct {
	Proc core.ProcessorConfig

	// Selector geometry.
	Positions        int
	HysteresisMargin float64

	// Selection applied when no valid persisted record exists.
	DefaultIndex int

	// Dry/wet blend levels applied after the convolution stage.
	DryLevel float64
	WetLevel float64

	// Bass-boost tone stage; a gain of 0 disables the filter entirely.
	ToneBoostDB float64
	ToneFreqHz  float64

	// Kernels at least this long are convolved with the FFT block path
	// instead of the direct form. 0 disables the FFT path.
	FFTKernelThreshold int
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig matches the target hardware: 48 kHz, 48-sample blocks, a
// 12-position selector, full wet output, and the FFT path engaged for
// kernels of 512 taps and up.
func DefaultConfig() Config {
	return Config{
		Proc:               core.DefaultProcessorConfig(),
		Positions:          12,
		HysteresisMargin:   0.02,
		DefaultIndex:       0,
		DryLevel:           0,
		WetLevel:           1,
		ToneBoostDB:        0,
		ToneFreqHz:         120,
		FFTKernelThreshold: 512,
	}
}

// WithSampleRate sets the audio sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		core.WithSampleRate(sampleRate)(&cfg.Proc)
	}
}

// WithBlockSize sets the audio block size.
func WithBlockSize(blockSize int) Option {
	return func(cfg *Config) {
		core.WithBlockSize(blockSize)(&cfg.Proc)
	}
}

// WithPositions sets the number of physical selector positions.
func WithPositions(n int) Option {
	return func(cfg *Config) {
		if n >= 2 {
			cfg.Positions = n
		}
	}
}

// WithHysteresisMargin sets the selector hysteresis margin.
func WithHysteresisMargin(margin float64) Option {
	return func(cfg *Config) {
		if margin > 0 {
			cfg.HysteresisMargin = margin
		}
	}
}

// WithDefaultIndex sets the selection used when no valid record persists.
func WithDefaultIndex(index int) Option {
	return func(cfg *Config) {
		if index >= 0 {
			cfg.DefaultIndex = index
		}
	}
}

// WithMix sets the dry and wet blend levels. Values are clamped to [0, 1].
func WithMix(dry, wet float64) Option {
	return func(cfg *Config) {
		cfg.DryLevel = core.Clamp(dry, 0, 1)
		cfg.WetLevel = core.Clamp(wet, 0, 1)
	}
}

// WithToneBoost enables the bass-boost shelf with the given gain in dB.
func WithToneBoost(gainDB float64) Option {
	return func(cfg *Config) {
		cfg.ToneBoostDB = gainDB
	}
}

// WithFFTKernelThreshold sets the kernel length at which the FFT block
// path takes over from direct convolution. 0 keeps everything direct.
func WithFFTKernelThreshold(taps int) Option {
	return func(cfg *Config) {
		if taps >= 0 {
			cfg.FFTKernelThreshold = taps
		}
	}
}

// Unit is the explicit context object owning all mutable state of the
// cabinet simulator. Create one per audio stream; no package-level state
// exists.
type Unit struct {
	cfg Config

	engine    *convolve.Engine
	bank      *ir.Bank
	debouncer *selector.Debouncer
	store     *settings.Store
	path      *SignalPath
}

// New builds a Unit for the given kernel catalog and settings storage.
// The persisted selection is loaded and applied; if it does not map to a
// catalog entry the unit starts bypassed.
func New(catalog *ir.Catalog, storage settings.Storage, opts ...Option) (*Unit, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	engine, err := convolve.NewEngine(convolve.MaxKernelLength)
	if err != nil {
		return nil, fmt.Errorf("cabsim: %w", err)
	}

	deb, err := selector.New(cfg.Positions, cfg.HysteresisMargin)
	if err != nil {
		return nil, fmt.Errorf("cabsim: %w", err)
	}

	u := &Unit{
		cfg:       cfg,
		engine:    engine,
		bank:      ir.NewBank(catalog, engine),
		debouncer: deb,
		store:     settings.NewStore(storage, cfg.DefaultIndex),
	}

	var tone *biquad.Section
	if cfg.ToneBoostDB != 0 {
		tone = biquad.NewSection(biquad.LowShelf(cfg.Proc.SampleRate, cfg.ToneFreqHz, cfg.ToneBoostDB, 1))
	}

	u.path = &SignalPath{
		engine: engine,
		bank:   u.bank,
		tone:   tone,
		dry:    cfg.DryLevel,
		wet:    cfg.WetLevel,
		wetBuf: make([]float64, cfg.Proc.BlockSize),
	}

	rec := u.store.Load()
	u.applySelection(int(rec.SelectedIndex))

	logrus.WithFields(logrus.Fields{
		"sample_rate": cfg.Proc.SampleRate,
		"block_size":  cfg.Proc.BlockSize,
		"entries":     catalog.Len(),
		"selected":    u.bank.ActiveIndex(),
		"bypassed":    u.bank.Bypassed(),
	}).Info("cabsim: unit initialized")

	return u, nil
}

// ProcessBlock processes one audio block from in to out. Audio-rate entry
// point: hard deadline, no allocation, no I/O. Both slices must have the
// same length, at most the configured block size.
func (u *Unit) ProcessBlock(out, in []float64) {
	u.path.ProcessBlock(out, in)
}

// ControlTick advances the control loop with one selector reading in
// [0, 1]: debounce, switch the kernel on an unambiguous band change, and
// flush pending settings. Best-effort entry point; storage errors are
// retried on the next tick.
func (u *Unit) ControlTick(raw float64) {
	band, changed := u.debouncer.Update(raw)
	if changed {
		u.applySelection(band)
	}

	// Error already logged by the store; the dirty flag stays set and the
	// write is retried next tick.
	_ = u.store.FlushIfDirty()
}

// applySelection switches the active kernel to the given band. Selection
// failures force bypass inside the bank and are not persisted.
func (u *Unit) applySelection(band int) {
	err := u.bank.Select(band)
	if err != nil {
		logrus.WithError(err).WithField("band", band).Warn("cabsim: selection failed")
		return
	}

	if band != u.store.Selected() {
		u.store.MarkDirty(band)
	}

	u.refreshWetPath(band)
}

// refreshWetPath installs the FFT block convolver when the newly active
// kernel is long enough, otherwise reverts to the direct form.
func (u *Unit) refreshWetPath(band int) {
	kernel := u.bank.Catalog().Kernel(band)
	if kernel == nil {
		u.path.setFFT(nil)
		return
	}

	if u.cfg.FFTKernelThreshold <= 0 || len(kernel.Taps) < u.cfg.FFTKernelThreshold {
		u.path.setFFT(nil)
		return
	}

	sos, err := convolve.NewStreamingOverlapSave(kernel.Taps, u.cfg.Proc.BlockSize)
	if err != nil {
		logrus.WithError(err).Warn("cabsim: FFT convolver unavailable, using direct form")
		u.path.setFFT(nil)
		return
	}

	u.path.setFFT(sos)
}

// Reset clears all per-stream processing state (history, filter state,
// overlap buffers) while keeping the active kernel and selection.
func (u *Unit) Reset() {
	u.path.reset()
}

// Bypassed reports whether the convolution stage is currently bypassed.
func (u *Unit) Bypassed() bool {
	return u.bank.Bypassed()
}

// ActiveIndex returns the index of the active kernel, or -1 if none was
// ever selected.
func (u *Unit) ActiveIndex() int {
	return u.bank.ActiveIndex()
}

// Config returns the unit's configuration.
func (u *Unit) Config() Config {
	return u.cfg
}
