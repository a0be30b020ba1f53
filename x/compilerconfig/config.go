// Package compilerconfig holds the compile pipeline's tunables: buffer-pool
// aging and size-bucket ceilings, the loop-unrolling threshold, and the
// default fill used when a shape dimension cannot be resolved statically.
// Package transform reads LoopUnrollThreshold and DefaultShapeFill; the two
// buffer-pool fields are not read by buffer.Pool or tensormem.Manager.
// Loadable from YAML, the way this repo's other packages read their
// settings, and layered with functional options from x/options for
// programmatic overrides (tests, cmd/tfcdemo flags).
package compilerconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tensorfrost-go/tfcore/x/compiler/shapealg"
	"github.com/tensorfrost-go/tfcore/x/options"
)

// Config holds the compile pipeline's tunables.
type Config struct {
	// AgingThresholdTicks is how many UpdateTick calls an idle buffer
	// survives before becoming eligible for removal. buffer.Pool does not
	// read it; the pool uses its own constant buffer.MaxUnusedTicks.
	AgingThresholdTicks int `yaml:"aging_threshold_ticks"`
	// BufferFactorCeiling bounds how much larger than requested a reused
	// buffer may be, mirroring buffer.Pool's "8x" rule. The pool does not
	// read it and always uses a factor of 8.
	BufferFactorCeiling int `yaml:"buffer_factor_ceiling"`
	// LoopUnrollThreshold is the maximum trip count transform.UnrollLoops
	// will unroll inline rather than leave as a loop.
	LoopUnrollThreshold int `yaml:"loop_unroll_threshold"`
	// DefaultShapeFill is the heuristic size used for a dimension with no
	// statically known value; transform.InsertAlgorithmicPrimitives uses it
	// as a dot's loop trip count.
	DefaultShapeFill int `yaml:"default_shape_fill"`
}

// Default returns the built-in tunables, matching TensorFrost's compiled
// constants (MAX_UNUSED_TIME=512, the 8x buffer ceiling, a 256 default
// shape fill).
func Default() Config {
	return Config{
		AgingThresholdTicks: 512,
		BufferFactorCeiling: 8,
		LoopUnrollThreshold: 8,
		DefaultShapeFill:    shapealg.DefaultFill,
	}
}

// Option customises a Config produced by New or Load.
type Option = options.Option

// WithAgingThresholdTicks overrides AgingThresholdTicks.
func WithAgingThresholdTicks(ticks int) Option {
	return func(c interface{}) { c.(*Config).AgingThresholdTicks = ticks }
}

// WithBufferFactorCeiling overrides BufferFactorCeiling.
func WithBufferFactorCeiling(factor int) Option {
	return func(c interface{}) { c.(*Config).BufferFactorCeiling = factor }
}

// WithLoopUnrollThreshold overrides LoopUnrollThreshold.
func WithLoopUnrollThreshold(threshold int) Option {
	return func(c interface{}) { c.(*Config).LoopUnrollThreshold = threshold }
}

// WithDefaultShapeFill overrides DefaultShapeFill.
func WithDefaultShapeFill(fill int) Option {
	return func(c interface{}) { c.(*Config).DefaultShapeFill = fill }
}

// New returns Default with opts applied on top.
func New(opts ...Option) Config {
	cfg := Default()
	options.ApplyOptions(&cfg, opts...)
	return cfg
}

// Load reads a YAML config file, starting from Default and applying opts
// after the file so callers can still override specific fields
// programmatically.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("compilerconfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("compilerconfig: parsing %s: %w", path, err)
	}
	options.ApplyOptions(&cfg, opts...)
	return cfg, nil
}
