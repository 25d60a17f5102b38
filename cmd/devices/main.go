// devices lists the capture devices go-breathe can open.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-breathe/pkg/camera"
)

func main() {
	asJSON := flag.Bool("json", false, "Print JSON")
	flag.Parse()

	devices, err := camera.Devices()
	if errors.Is(err, camera.ErrNoDevice) {
		fmt.Fprintln(os.Stderr, "no capture devices found")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "list devices: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(devices)
		return
	}

	for _, d := range devices {
		fmt.Printf("%d\t%s\t%s\n", d.Index, d.Path, d.Name)
	}
}
