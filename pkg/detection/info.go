package detection

import (
	"fmt"
	"strings"
)

// TensorInfo names one model input or output.
type TensorInfo struct {
	Name  string  `json:"name"`
	Shape []int64 `json:"shape"`
}

func (t TensorInfo) String() string {
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		if d < 0 {
			dims[i] = "?"
		} else {
			dims[i] = fmt.Sprint(d)
		}
	}
	return fmt.Sprintf("%s[%s]", t.Name, strings.Join(dims, "x"))
}

// ModelInfo summarizes a loaded model.
type ModelInfo struct {
	Backend string       `json:"backend"`
	Path    string       `json:"path"`
	Inputs  []TensorInfo `json:"inputs"`
	Outputs []TensorInfo `json:"outputs"`
}

// InputNames returns the formatted inputs, for logging.
func (m ModelInfo) InputNames() []string {
	return tensorStrings(m.Inputs)
}

// OutputNames returns the formatted outputs, for logging.
func (m ModelInfo) OutputNames() []string {
	return tensorStrings(m.Outputs)
}

func tensorStrings(ts []TensorInfo) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

// elements returns the product of shape, treating unknown dims as 1.
func elements(shape []int64) int {
	n := 1
	for _, d := range shape {
		if d > 0 {
			n *= int(d)
		}
	}
	return n
}

// concrete replaces unknown dims with 1. The bool is false when any dim
// past the batch axis was unknown.
func concrete(shape []int64) ([]int64, bool) {
	out := make([]int64, len(shape))
	ok := true
	for i, d := range shape {
		if d <= 0 {
			out[i] = 1
			if i > 0 {
				ok = false
			}
			continue
		}
		out[i] = d
	}
	return out, ok
}
