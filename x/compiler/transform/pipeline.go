package transform

import (
	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compilerconfig"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
)

// CompileIR runs every compile pass over g in the order a correct
// compilation requires: reorder and hoist before optimizing, optimize
// and forward stores before unrolling (so unrolled copies are already
// simplified), autodiff before fusion (gradient nodes need to see the
// original ungrouped graph), fusion before memory-boundary insertion,
// and dead-code elimination last so every earlier pass's leftovers are
// swept up in one pass.
func CompileIR(g *ir.Graph, cfg compilerconfig.Config) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"ReorderOperations", func() error { return ReorderOperations(g) }},
		{"MoveShapeOutsideKernels", func() error { return MoveShapeOutsideKernels(g) }},
		{"OptimizeOperations", func() error { return OptimizeOperations(g) }},
		{"TryReplaceModificationsWithVersions", func() error { return TryReplaceModificationsWithVersions(g) }},
		{"UnrollLoops", func() error { return UnrollLoops(g, cfg) }},
		{"ComputeAutodiff", func() error { return ComputeAutodiff(g) }},
		{"InsertAlgorithmicPrimitives", func() error { return InsertAlgorithmicPrimitives(g, cfg) }},
		{"SeparateOperationsIntoKernels", func() error { return SeparateOperationsIntoKernels(g) }},
		{"AddKernelGlobalLoadOperations", func() error { return AddKernelGlobalLoadOperations(g) }},
		{"AddKernelGlobalStoreOperations", func() error { return AddKernelGlobalStoreOperations(g) }},
		{"AddMemoryOpIndices", func() error { return AddMemoryOpIndices(g) }},
		{"FinalizeMemoryIndexing", func() error { return FinalizeMemoryIndexing(g) }},
		{"CheckKernelShapes", func() error { return CheckKernelShapes(g) }},
		{"AddMemoryDeallocation", func() error { return AddMemoryDeallocation(g) }},
		{"RemoveUnusedOperations", func() error { return RemoveUnusedOperations(g) }},
		{"RemoveUnusedKernels", func() error { return RemoveUnusedKernels(g) }},
	}

	for _, step := range steps {
		tflog.Log.Debug().Str("pass", step.name).Msg("running compile pass")
		if err := step.run(); err != nil {
			return newError(step.name, "compile pass failed", err)
		}
	}

	stats := ComputeStatistics(g)
	tflog.Log.Info().
		Int("nodes", stats.NodeCount).
		Int("kernels", stats.KernelCount).
		Int("cost", stats.TotalCost).
		Msg("compiled IR")
	return nil
}
