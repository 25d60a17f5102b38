package camera

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func withSysfs(t *testing.T, names map[string]string) {
	t.Helper()
	root := t.TempDir()
	for dir, name := range names {
		p := filepath.Join(root, dir)
		if err := os.MkdirAll(p, 0755); err != nil {
			t.Fatal(err)
		}
		if name != "" {
			if err := os.WriteFile(filepath.Join(p, "name"), []byte(name+"\n"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}

	oldRoot, oldProbe := sysfsRoot, probeIndex
	sysfsRoot = root
	probeIndex = func(int) bool { return false }
	t.Cleanup(func() {
		sysfsRoot, probeIndex = oldRoot, oldProbe
	})
}

func TestDevices_Sysfs(t *testing.T) {
	withSysfs(t, map[string]string{
		"video2":   "USB Camera",
		"video0":   "Integrated Webcam",
		"video1":   "",
		"vbi0":     "ignored",
		"videoabc": "ignored",
	})

	devices, err := Devices()
	if err != nil {
		t.Fatalf("Devices failed: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("Expected 3 devices, got %d: %+v", len(devices), devices)
	}

	if devices[0].Index != 0 || devices[0].Name != "Integrated Webcam" || devices[0].Path != "/dev/video0" {
		t.Errorf("device 0: got %+v", devices[0])
	}
	if devices[1].Name != "video1" {
		t.Errorf("nameless device should fall back to node name, got %q", devices[1].Name)
	}

	d, err := FindDevice("usb camera")
	if err != nil || d.Index != 2 {
		t.Errorf("FindDevice: got %+v, %v", d, err)
	}
}

func TestDevices_NoneFound(t *testing.T) {
	withSysfs(t, nil)

	_, err := Devices()
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestDevices_ProbeFallback(t *testing.T) {
	withSysfs(t, nil)
	probeIndex = func(i int) bool { return i == 1 }

	devices, err := Devices()
	if err != nil {
		t.Fatalf("Devices failed: %v", err)
	}
	if len(devices) != 1 || devices[0].Index != 1 {
		t.Errorf("Expected only index 1, got %+v", devices)
	}
}

func TestReplaySource(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png"} {
		writePNG(t, filepath.Join(dir, name), 32, 24)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644)

	src, err := NewReplaySource(dir, false)
	if err != nil {
		t.Fatalf("NewReplaySource failed: %v", err)
	}
	defer src.Close()

	if src.Len() != 2 {
		t.Fatalf("Expected 2 images, got %d", src.Len())
	}

	for i := 0; i < 2; i++ {
		f, err := src.Capture()
		if err != nil {
			t.Fatalf("Capture %d failed: %v", i, err)
		}
		if f.Width != 32 || f.Height != 24 {
			t.Errorf("Capture %d: got %dx%d", i, f.Width, f.Height)
		}
	}

	if _, err := src.Capture(); !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted after last image, got %v", err)
	}
}

func TestReplaySource_Loop(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 20, 20)

	src, err := NewReplaySource(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := src.Capture(); err != nil {
			t.Fatalf("looping capture %d failed: %v", i, err)
		}
	}
}

func TestReplaySource_EmptyDir(t *testing.T) {
	_, err := NewReplaySource(t.TempDir(), false)
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice for empty dir, got %v", err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}
