// modelinfo prints the inputs and outputs of an ONNX model and checks
// them against the chest detector grid.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-breathe/internal/config"
	"github.com/teslashibe/go-breathe/pkg/detection"
)

func main() {
	env, _ := config.Load()
	model := flag.String("model", env.ModelPath, "Path to the ONNX model")
	ortLib := flag.String("ort-lib", env.ORTLibPath, "Path to the onnxruntime shared library")
	flag.Parse()

	if err := detection.InitRuntime(*ortLib); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer detection.ShutdownRuntime()

	info, err := detection.Inspect(*model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model: %s\n", info.Path)
	fmt.Println("Inputs:")
	for _, in := range info.Inputs {
		fmt.Printf("  %s\n", in)
	}
	fmt.Println("Outputs:")
	for _, out := range info.Outputs {
		fmt.Printf("  %s\n", out)
	}

	grid := detection.DefaultConfig().Grid
	if len(info.Outputs) > 0 {
		n := 1
		for _, d := range info.Outputs[0].Shape {
			if d > 0 {
				n *= int(d)
			}
		}
		status := "ok"
		if n < grid.Len() {
			status = "too small"
		}
		fmt.Printf("Grid: %d slots x %d values needs %d, output holds %d (%s)\n",
			grid.Slots, grid.Stride(), grid.Len(), n, status)
	}
}
