package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tensorfrost-go/tfcore/internal/tflog"
	"github.com/tensorfrost-go/tfcore/x/compilerconfig"
	"github.com/tensorfrost-go/tfcore/x/compiler/dtype"
	"github.com/tensorfrost-go/tfcore/x/compiler/ir"
	"github.com/tensorfrost-go/tfcore/x/compiler/transform"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable debug-level pass tracing")
	unrollThreshold := flag.Int("unroll-threshold", 8, "maximum constant loop trip count to unroll")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	g, err := buildDotProductGraph()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building graph: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("-- before compilation --")
	fmt.Print(g.Listing())

	cfg := compilerconfig.New(compilerconfig.WithLoopUnrollThreshold(*unrollThreshold))
	if err := transform.CompileIR(g, cfg); err != nil {
		tflog.Log.Error().Err(err).Msg("compilation failed")
		os.Exit(1)
	}

	fmt.Println("-- after compilation --")
	fmt.Print(g.Listing())
	fmt.Printf("inputs=%d outputs=%d temps=%d operations=%d\n",
		g.InputCount(), g.OutputCount(), g.TempCount(), g.GetOperationCount())
}

// buildDotProductGraph constructs a tiny toy program: two input vectors
// fed through a reduction, with the result written to an output buffer.
// It exists to give CompileIR a graph that exercises algorithmic
// primitive expansion, kernel fusion and memory indexing in one pass.
func buildDotProductGraph() (*ir.Graph, error) {
	g := ir.New()

	a, err := g.AddNode("memory", dtype.Float, 0, nil, "a")
	if err != nil {
		return nil, err
	}
	g.DeclareInput(a)
	b, err := g.AddNode("memory", dtype.Float, 0, nil, "b")
	if err != nil {
		return nil, err
	}
	g.DeclareInput(b)
	dot, err := g.AddNode("dot", dtype.Float, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}: a,
		{Role: ir.RoleInput, Slot: 1}: b,
	}, "dot")
	if err != nil {
		return nil, err
	}
	out, err := g.AddNode("memory", dtype.Float, 0, nil, "out")
	if err != nil {
		return nil, err
	}
	g.DeclareOutput(out)
	idx, err := g.AddNode("dim_id", dtype.None, 0, nil, "i")
	if err != nil {
		return nil, err
	}
	_, err = g.AddNode("store", dtype.None, 0, map[ir.ArgID]*ir.Node{
		{Role: ir.RoleInput, Slot: 0}:  dot,
		{Role: ir.RoleMemory, Slot: 0}: out,
		{Role: ir.RoleIndex, Slot: 0}:  idx,
	}, "write_out")
	if err != nil {
		return nil, err
	}

	return g, nil
}
