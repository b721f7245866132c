// Package adaptor implements the SysfsAdaptor producer of spec.md §4.5: a
// device producer thread that watches multiple file descriptors in either
// interrupt-driven (readiness-notify) or interval-polled mode and pushes
// samples into the pipeline.
//
// Grounded in original_source/core/sysfsadaptor.h's state machine and
// method contracts, re-expressed with a goroutine + golang.org/x/sys/unix
// readiness multiplexing instead of a QThread + Qt event loop.
package adaptor

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gobwas/glob"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/sensord-project/sensord/internal/xerror"
)

// PollMode selects how the reader thread waits for new data.
type PollMode int

const (
	// SelectMode waits for readiness on the monitored fds before reading.
	SelectMode PollMode = iota
	// IntervalMode reads on a fixed schedule regardless of readiness.
	IntervalMode
)

func (m PollMode) String() string {
	if m == IntervalMode {
		return "IntervalMode"
	}
	return "SelectMode"
}

// PathConfig names one file to monitor, either as a literal sysfs path or
// as a glob pattern expanded at open time (spec.md §4.5 expansion: real
// sysfs trees enumerate device instances by glob).
type PathConfig struct {
	Path   string
	PathID int
}

// SampleProcessor is the pure-virtual processSample contract of spec.md
// §4.5, supplied by the concrete adaptor: read bytes from fd, parse,
// timestamp, and write samples into an owned ring buffer. This is the only
// producer-thread work permitted inside the engine.
type SampleProcessor interface {
	ProcessSample(pathID int, fd int) error
}

type lifecycleState int

const (
	stateClosed lifecycleState = iota
	stateOpened
	stateRunning
	stateStandby
)

type openFd struct {
	fd     int
	pathID int
	path   string
}

// SysfsAdaptor drives the reader thread and reference-counted
// open/start/stop/close state machine of spec.md §4.5.
type SysfsAdaptor struct {
	id              string
	mode            PollMode
	seek            bool
	intervalMs      uint32
	paths           []PathConfig
	processor       SampleProcessor
	log             *zap.SugaredLogger
	maxOpenAttempts uint

	mu         sync.Mutex
	state      lifecycleState
	startCount int
	fds        []openFd
	wakeupR    int
	wakeupW    int

	readerWg   sync.WaitGroup
	runningRef bool // guarded by mu; readerLoop polls this to decide whether to exit
}

// New builds a SysfsAdaptor. maxOpenAttempts bounds the exponential-backoff
// retry budget for openFds; 0 means "try once" (no retry).
func New(id string, mode PollMode, seek bool, intervalMs uint32, processor SampleProcessor, log *zap.SugaredLogger, maxOpenAttempts uint) *SysfsAdaptor {
	return &SysfsAdaptor{
		id:              id,
		mode:            mode,
		seek:            seek,
		intervalMs:      intervalMs,
		processor:       processor,
		log:             log.With("adaptor", id),
		maxOpenAttempts: maxOpenAttempts,
		state:           stateClosed,
	}
}

// AddPath adds a file device for monitoring. pattern may be a literal path
// or a glob pattern (e.g. "/sys/bus/iio/devices/iio:device*/in_accel_raw");
// glob patterns are expanded against the filesystem when openFds runs. The
// adaptor must be restarted to pick up a newly added path (spec.md §4.5).
func (a *SysfsAdaptor) AddPath(pattern string, pathID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, PathConfig{Path: pattern, PathID: pathID})
}

// IsRunning reports whether the adaptor has any active start reference.
func (a *SysfsAdaptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == stateRunning || a.state == stateStandby
}

// StartAdaptor increments the start count. Only the 0→1 transition opens
// file descriptors and launches the reader thread (spec.md §4.5).
func (a *SysfsAdaptor) StartAdaptor() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.startCount++
	if a.startCount > 1 {
		return nil
	}

	if err := a.openFdsWithRetryLocked(); err != nil {
		a.startCount--
		return err
	}
	a.state = stateOpened

	if err := a.startReaderThreadLocked(); err != nil {
		a.closeAllFdsLocked()
		a.state = stateClosed
		a.startCount--
		return err
	}
	a.state = stateRunning
	return nil
}

// StopAdaptor decrements the start count. Only the 1→0 transition stops
// the reader thread and closes file descriptors.
func (a *SysfsAdaptor) StopAdaptor() error {
	a.mu.Lock()
	if a.startCount == 0 {
		a.mu.Unlock()
		return nil
	}
	a.startCount--
	if a.startCount > 0 {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	a.stopReaderThread()

	a.mu.Lock()
	a.closeAllFdsLocked()
	a.state = stateClosed
	a.mu.Unlock()
	return nil
}

// Standby transitions RUNNING → STANDBY, calling the device-specific
// standby hook is the caller's (NodeBase's) responsibility — this method
// only updates the adaptor's own state machine. Idempotent: already being
// in STANDBY is success, not failure, since setStandby hooks may be called
// more than once for the same effective state.
func (a *SysfsAdaptor) Standby() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stateStandby {
		return true
	}
	if a.state != stateRunning {
		return false
	}
	a.state = stateStandby
	return true
}

// Resume transitions STANDBY → RUNNING. Idempotent like Standby.
func (a *SysfsAdaptor) Resume() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stateRunning {
		return true
	}
	if a.state != stateStandby {
		return false
	}
	a.state = stateRunning
	return true
}

func (a *SysfsAdaptor) openFdsWithRetryLocked() error {
	if a.maxOpenAttempts <= 1 {
		return a.openFdsLocked()
	}

	runBackoff := backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         time.Second,
	}
	runBackoff.Reset()

	var lastErr error
	for attempt := uint(1); attempt <= a.maxOpenAttempts; attempt++ {
		if err := a.openFdsLocked(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == a.maxOpenAttempts {
			break
		}
		a.log.Warnw("retrying adaptor open after failure", "attempt", attempt, "error", lastErr)
		time.Sleep(runBackoff.NextBackOff())
	}
	return xerror.Wrap(xerror.DeviceOpen, lastErr, "failed to open adaptor %q after %d attempts", a.id, a.maxOpenAttempts)
}

// openFdsLocked opens every configured path, expanding glob patterns.
// Open failure on any configured path aborts the whole operation and
// closes all partially opened descriptors (spec.md §4.5).
func (a *SysfsAdaptor) openFdsLocked() error {
	var opened []openFd

	for _, cfg := range a.paths {
		matches, err := expandPath(cfg.Path)
		if err != nil {
			closeAll(opened)
			return xerror.Wrap(xerror.DeviceOpen, err, "failed to expand path %q", cfg.Path)
		}
		for _, path := range matches {
			fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
			if err != nil {
				closeAll(opened)
				return xerror.Wrap(xerror.DeviceOpen, err, "failed to open %q", path)
			}
			opened = append(opened, openFd{fd: fd, pathID: cfg.PathID, path: path})
		}
	}

	a.fds = opened
	return nil
}

// expandPath treats path as a glob pattern if it contains glob
// metacharacters, otherwise returns it unchanged as a single literal path
// (spec.md §4.5 expansion, grounded in common/go/numa's sysfs-tree
// enumeration style).
func expandPath(path string) ([]string, error) {
	if !containsGlobMeta(path) {
		return []string{path}, nil
	}
	g, err := glob.Compile(path, '/')
	if err != nil {
		return nil, err
	}
	return globMatches(g, path)
}

func containsGlobMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func (a *SysfsAdaptor) closeAllFdsLocked() {
	closeAll(a.fds)
	a.fds = nil
}

func closeAll(fds []openFd) {
	for _, f := range fds {
		_ = unix.Close(f.fd)
	}
}

func (a *SysfsAdaptor) startReaderThreadLocked() error {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK); err != nil {
		return xerror.Wrap(xerror.DeviceOpen, err, "failed to create wakeup pipe for adaptor %q", a.id)
	}
	a.wakeupR, a.wakeupW = fds[0], fds[1]
	a.runningRef = true

	a.readerWg.Add(1)
	go a.readerLoop()
	return nil
}

// stopReaderThread writes one byte to the wakeup pipe, which must cause
// the reader loop to exit its blocking call within one poll/sleep
// iteration (spec.md §4.5/§5).
func (a *SysfsAdaptor) stopReaderThread() {
	a.mu.Lock()
	a.runningRef = false
	wakeupW := a.wakeupW
	a.mu.Unlock()

	if wakeupW != 0 {
		_, _ = unix.Write(wakeupW, []byte{0})
	}
	a.readerWg.Wait()

	a.mu.Lock()
	_ = unix.Close(a.wakeupR)
	_ = unix.Close(a.wakeupW)
	a.wakeupR, a.wakeupW = 0, 0
	a.mu.Unlock()
}

func (a *SysfsAdaptor) readerLoop() {
	defer a.readerWg.Done()

	switch a.mode {
	case IntervalMode:
		a.readerLoopInterval()
	default:
		a.readerLoopSelect()
	}
}

func (a *SysfsAdaptor) isRunningRef() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runningRef
}

func (a *SysfsAdaptor) snapshotFds() ([]openFd, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fds := make([]openFd, len(a.fds))
	copy(fds, a.fds)
	return fds, a.wakeupR
}

// readerLoopSelect implements the SelectMode main loop of spec.md §4.5:
// wait for readiness on any monitored fd or the wakeup pipe, with a
// timeout equal to the configured interval (or infinite if 0).
func (a *SysfsAdaptor) readerLoopSelect() {
	for a.isRunningRef() {
		fds, wakeupR := a.snapshotFds()

		pollFds := make([]unix.PollFd, 0, len(fds)+1)
		for _, f := range fds {
			pollFds = append(pollFds, unix.PollFd{Fd: int32(f.fd), Events: unix.POLLIN})
		}
		wakeIdx := len(pollFds)
		pollFds = append(pollFds, unix.PollFd{Fd: int32(wakeupR), Events: unix.POLLIN})

		timeout := -1
		if a.intervalMs > 0 {
			timeout = int(a.intervalMs)
		}

		n, err := unix.Poll(pollFds, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			a.log.Warnw("poll failed", "error", err)
			continue
		}
		if n == 0 {
			continue
		}

		if pollFds[wakeIdx].Revents&unix.POLLIN != 0 {
			buf := make([]byte, 1)
			_, _ = unix.Read(wakeupR, buf)
			continue
		}

		for i, f := range fds {
			if i == wakeIdx {
				continue
			}
			if pollFds[i].Revents&unix.POLLIN == 0 {
				continue
			}
			if a.seek {
				_, _ = unix.Seek(f.fd, 0, unix.SEEK_SET)
			}
			if err := a.processor.ProcessSample(f.pathID, f.fd); err != nil {
				a.log.Debugw("transient read failure", "path_id", f.pathID, "error", err)
			}
		}
	}
}

// readerLoopInterval implements the IntervalMode main loop of spec.md
// §4.5: sleep for the configured interval (interruptible by the wakeup
// pipe), then iterate every fd and call processSample.
func (a *SysfsAdaptor) readerLoopInterval() {
	for a.isRunningRef() {
		fds, wakeupR := a.snapshotFds()

		pollFds := []unix.PollFd{{Fd: int32(wakeupR), Events: unix.POLLIN}}
		timeout := int(a.intervalMs)
		if timeout <= 0 {
			timeout = 1
		}

		n, err := unix.Poll(pollFds, timeout)
		if err != nil && err != unix.EINTR {
			a.log.Warnw("poll failed", "error", err)
		}
		if n > 0 && pollFds[0].Revents&unix.POLLIN != 0 {
			buf := make([]byte, 1)
			_, _ = unix.Read(wakeupR, buf)
			continue
		}
		if !a.isRunningRef() {
			return
		}

		for _, f := range fds {
			if a.seek {
				_, _ = unix.Seek(f.fd, 0, unix.SEEK_SET)
			}
			if err := a.processor.ProcessSample(f.pathID, f.fd); err != nil {
				a.log.Debugw("transient read failure", "path_id", f.pathID, "error", err)
			}
		}
	}
}
