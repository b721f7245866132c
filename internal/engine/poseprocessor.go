package engine

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sensord-project/sensord/internal/ring"
	"github.com/sensord-project/sensord/internal/sample"
	"github.com/sensord-project/sensord/internal/xerror"
)

// xyzProcessor implements adaptor.SampleProcessor for sysfs attribute files
// holding a comma-separated "x,y,z" triple, the raw-vector counterpart of
// scalarProcessor feeding a pose-producing filter chain instead of a bare
// current-value cell.
type xyzProcessor struct {
	rings  map[int]*ring.RingBuffer[sample.Xyz]
	notify map[int]func()
}

func newXyzProcessor() *xyzProcessor {
	return &xyzProcessor{
		rings:  make(map[int]*ring.RingBuffer[sample.Xyz]),
		notify: make(map[int]func()),
	}
}

func (p *xyzProcessor) addRing(pathID int, r *ring.RingBuffer[sample.Xyz], notify func()) {
	p.rings[pathID] = r
	p.notify[pathID] = notify
}

// ProcessSample reads one "x,y,z" line of decimal text from fd and pushes
// it as a timestamped Xyz sample.
func (p *xyzProcessor) ProcessSample(pathID int, fd int) error {
	r, ok := p.rings[pathID]
	if !ok {
		return nil
	}

	buf := make([]byte, 64)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return err
	}

	parts := strings.Split(strings.TrimSpace(string(buf[:n])), ",")
	if len(parts) != 3 {
		return xerror.New(xerror.DeviceRead, "path id %d: expected 3 comma-separated axes, got %d", pathID, len(parts))
	}

	axes := make([]int32, 3)
	for i, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return err
		}
		axes[i] = int32(v)
	}

	r.Write([]sample.Sample[sample.Xyz]{
		sample.New(time.Now().UnixMicro(), sample.Xyz{X: axes[0], Y: axes[1], Z: axes[2]}),
	})

	if notify := p.notify[pathID]; notify != nil {
		notify()
	}
	return nil
}
