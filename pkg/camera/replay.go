package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// ReplaySource serves still images from a directory as frames, in file
// name order. It loops when loop is set, otherwise Capture returns
// ErrExhausted after the last image.
type ReplaySource struct {
	dir   string
	files []string
	loop  bool

	mu     sync.Mutex
	next   int
	seq    uint64
	closed bool
}

var replayExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true, ".tif": true, ".tiff": true,
}

// NewReplaySource indexes the images found in dir.
func NewReplaySource(dir string, loop bool) (*ReplaySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("camera: read replay dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !replayExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("camera: no images in %s: %w", dir, ErrNoDevice)
	}
	sort.Strings(files)

	return &ReplaySource{dir: dir, files: files, loop: loop}, nil
}

// Capture decodes the next image.
func (r *ReplaySource) Capture() (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.next >= len(r.files) {
		if !r.loop {
			return nil, ErrExhausted
		}
		r.next = 0
	}

	path := r.files[r.next]
	r.next++

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("camera: decode %s: %w", path, err)
	}

	f := FromImage(img)
	if !f.Ready() {
		return nil, ErrNotReady
	}
	r.seq++
	f.Seq = r.seq
	f.Captured = time.Now()
	return f, nil
}

// Len returns the number of images in the replay.
func (r *ReplaySource) Len() int {
	return len(r.files)
}

// Name returns "replay:<dir>".
func (r *ReplaySource) Name() string {
	return "replay:" + r.dir
}

// Close stops the replay.
func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

var _ Source = (*ReplaySource)(nil)
