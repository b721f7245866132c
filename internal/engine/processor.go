package engine

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sensord-project/sensord/internal/ring"
	"github.com/sensord-project/sensord/internal/sample"
)

// scalarProcessor implements adaptor.SampleProcessor for plain-text sysfs
// attribute files holding one decimal integer, writing each read into
// whichever ring buffer is registered for that path id and then running
// that channel's bin cycle — the readiness edge of spec.md §5 collapsed
// into a direct call, since one producer thread feeds exactly one bin per
// path id here.
type scalarProcessor struct {
	rings  map[int]*ring.RingBuffer[sample.Scalar]
	notify map[int]func()
}

func newScalarProcessor() *scalarProcessor {
	return &scalarProcessor{
		rings:  make(map[int]*ring.RingBuffer[sample.Scalar]),
		notify: make(map[int]func()),
	}
}

func (p *scalarProcessor) addRing(pathID int, r *ring.RingBuffer[sample.Scalar], notify func()) {
	p.rings[pathID] = r
	p.notify[pathID] = notify
}

// ProcessSample reads at most one line of decimal text from fd and pushes
// it as a timestamped Scalar sample. Parse failures are reported so the
// adaptor's reader loop can log and move on without blocking on a
// malformed reading.
func (p *scalarProcessor) ProcessSample(pathID int, fd int) error {
	r, ok := p.rings[pathID]
	if !ok {
		return nil
	}

	buf := make([]byte, 32)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(string(buf[:n]))
	value, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return err
	}

	r.Write([]sample.Sample[sample.Scalar]{
		sample.New(time.Now().UnixMicro(), sample.Scalar{Value: uint32(value)}),
	})

	if notify := p.notify[pathID]; notify != nil {
		notify()
	}
	return nil
}
