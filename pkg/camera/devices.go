package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// Device describes one capture device.
type Device struct {
	Index int    `json:"index"`
	Path  string `json:"path,omitempty"`
	Name  string `json:"name"`
}

// MaxProbe is how many device indices are probed when the platform has no
// device listing.
const MaxProbe = 8

var (
	// sysfsRoot lists V4L2 devices on Linux.
	sysfsRoot = "/sys/class/video4linux"

	// probeIndex reports whether a device index can be opened.
	probeIndex = func(i int) bool {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			return false
		}
		defer vc.Close()
		return vc.IsOpened()
	}
)

// Devices lists the available capture devices, ordered by index.
// It returns ErrNoDevice when there are none.
func Devices() ([]Device, error) {
	devices := listSysfs(sysfsRoot)
	if len(devices) == 0 {
		for i := 0; i < MaxProbe; i++ {
			if probeIndex(i) {
				devices = append(devices, Device{Index: i, Name: fmt.Sprintf("video%d", i)})
			}
		}
	}

	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	return devices, nil
}

// FindDevice looks a device up by name or path. Matching on name is
// case-insensitive.
func FindDevice(name string) (Device, error) {
	devices, err := Devices()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Path == name || strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("camera: device %q not found", name)
}

func listSysfs(root string) []Device {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var devices []Device
	for _, e := range entries {
		idx, ok := strings.CutPrefix(e.Name(), "video")
		if !ok {
			continue
		}
		i, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}

		name := e.Name()
		if data, err := os.ReadFile(filepath.Join(root, e.Name(), "name")); err == nil {
			if n := strings.TrimSpace(string(data)); n != "" {
				name = n
			}
		}

		devices = append(devices, Device{
			Index: i,
			Path:  "/dev/" + e.Name(),
			Name:  name,
		})
	}

	sort.Slice(devices, func(a, b int) bool {
		return devices[a].Index < devices[b].Index
	})
	return devices
}
