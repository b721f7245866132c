// Package engine is the composition root that turns a config.Config into
// a running set of adaptors, bins, chains, and sensor channels, and ties
// per-session requests to the session registry's teardown sweep.
//
// Grounded in modules/balancer/controlplane's NewBalancerModule-style
// constructor (build every owned component up front, fail fast on a bad
// config) and common/go/xcmd's interrupt-driven run loop.
package engine

import (
	"fmt"
	"sync"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"

	"github.com/sensord-project/sensord/config"
	"github.com/sensord-project/sensord/internal/adaptor"
	"github.com/sensord-project/sensord/internal/bin"
	"github.com/sensord-project/sensord/internal/chain"
	"github.com/sensord-project/sensord/internal/filters/coordalign"
	"github.com/sensord-project/sensord/internal/filters/orientation"
	"github.com/sensord-project/sensord/internal/node"
	"github.com/sensord-project/sensord/internal/pipeline"
	"github.com/sensord-project/sensord/internal/ring"
	"github.com/sensord-project/sensord/internal/sample"
	"github.com/sensord-project/sensord/internal/session"
	"github.com/sensord-project/sensord/internal/xerror"
)

// currentValue holds the most recent sample a channel has observed, for
// property reads (spec.md §6 "current value").
type currentValue struct {
	mu    sync.Mutex
	value sample.Scalar
	valid bool
}

func (c *currentValue) accept(samples []sample.Sample[sample.Scalar]) {
	if len(samples) == 0 {
		return
	}
	c.mu.Lock()
	c.value = samples[len(samples)-1].Value
	c.valid = true
	c.mu.Unlock()
}

// Get returns the last observed value and whether one has arrived yet.
func (c *currentValue) Get() (sample.Scalar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.valid
}

// poseValue is currentValue's Pose counterpart, fed by the orientation
// filter's Output() source instead of a bare ring reader.
type poseValue struct {
	mu    sync.Mutex
	value sample.Pose
	valid bool
}

func (c *poseValue) accept(samples []sample.Sample[sample.Pose]) {
	if len(samples) == 0 {
		return
	}
	c.mu.Lock()
	c.value = samples[len(samples)-1].Value
	c.valid = true
	c.mu.Unlock()
}

// Get returns the last observed pose and whether one has arrived yet.
func (c *poseValue) Get() (sample.Pose, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.valid
}

// adaptorProducer adapts a SysfsAdaptor's StartAdaptor/StopAdaptor pair to
// the bin.Producer Open/Close contract.
type adaptorProducer struct {
	a *adaptor.SysfsAdaptor
}

func (p adaptorProducer) Open() error  { return p.a.StartAdaptor() }
func (p adaptorProducer) Close() error { return p.a.StopAdaptor() }

// Engine owns every component built from a config.Config and exposes the
// channel-level operations a session boundary would route RPC calls into.
type Engine struct {
	log      *zap.SugaredLogger
	Sessions *session.Registry

	adaptors map[string]*adaptor.SysfsAdaptor
	channels map[string]*chain.SensorChannel
	values   map[string]*currentValue
	poses    map[string]*poseValue
}

// New builds an Engine from cfg: one SysfsAdaptor per AdaptorConfig, and
// one ring buffer + bin + chain + SensorChannel per ChannelConfig, wired
// to the named adaptor's matching path id.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Engine, error) {
	e := &Engine{
		log:      log,
		Sessions: session.New(log),
		adaptors: make(map[string]*adaptor.SysfsAdaptor),
		channels: make(map[string]*chain.SensorChannel),
		values:   make(map[string]*currentValue),
		poses:    make(map[string]*poseValue),
	}

	scalarProcessors := make(map[string]*scalarProcessor)
	xyzProcessors := make(map[string]*xyzProcessor)
	for _, ac := range cfg.Adaptors {
		mode := adaptor.SelectMode
		if ac.Mode == "interval" {
			mode = adaptor.IntervalMode
		}

		var processor adaptor.SampleProcessor
		if channelKindForAdaptor(cfg, ac.Name) == "pose" {
			proc := newXyzProcessor()
			xyzProcessors[ac.Name] = proc
			processor = proc
		} else {
			proc := newScalarProcessor()
			scalarProcessors[ac.Name] = proc
			processor = proc
		}

		a := adaptor.New(ac.Name, mode, ac.Seek, ac.IntervalMs, processor, log, ac.MaxOpenAttempts)
		for _, pc := range ac.Paths {
			a.AddPath(pc.Path, pc.PathID)
		}
		e.adaptors[ac.Name] = a
	}

	for _, cc := range cfg.Channels {
		a, ok := e.adaptors[cc.Adaptor]
		if !ok {
			return nil, fmt.Errorf("channel %q references unknown adaptor %q", cc.Name, cc.Adaptor)
		}

		size := datasize.ByteSize(4 * 1024)
		if cc.RingBufferSize != "" {
			if err := size.UnmarshalText([]byte(cc.RingBufferSize)); err != nil {
				return nil, fmt.Errorf("channel %q: invalid ring_buffer_size %q: %w", cc.Name, cc.RingBufferSize, err)
			}
		}

		b := bin.New(cc.Name)
		b.AddProducer(adaptorProducer{a: a})

		if cc.Kind == "pose" {
			proc, ok := xyzProcessors[cc.Adaptor]
			if !ok {
				return nil, fmt.Errorf("channel %q: adaptor %q was not built for pose channels", cc.Name, cc.Adaptor)
			}

			rb := ring.New[sample.Xyz](size)

			value := &poseValue{}
			e.poses[cc.Name] = value

			align := coordalign.New(coordalign.Identity)
			orient := orientation.New(cc.OrientationThresholdMg)
			align.Output().Connect(pipeline.SinkFunc[sample.Xyz](orient.Process))
			orient.Output().Connect(pipeline.SinkFunc[sample.Pose](value.accept))

			reader := pipeline.NewBufferReader(rb, 64, align.Process)
			b.AddStage(reader)

			proc.addRing(cc.PathID, rb, func() { _, _ = b.Cycle() })
		} else {
			proc, ok := scalarProcessors[cc.Adaptor]
			if !ok {
				return nil, fmt.Errorf("channel %q: adaptor %q was not built for scalar channels", cc.Name, cc.Adaptor)
			}

			rb := ring.New[sample.Scalar](size)

			value := &currentValue{}
			e.values[cc.Name] = value

			reader := pipeline.NewBufferReader(rb, 64, value.accept)
			b.AddStage(reader)

			proc.addRing(cc.PathID, rb, func() { _, _ = b.Cycle() })
		}

		n := node.New(cc.Description, nil, func(ms uint32, sessionID int) bool {
			return true // sysfs interval is governed by the adaptor's own poll period
		}, func(override bool) bool {
			if override {
				return a.Standby()
			}
			return a.Resume()
		}, log)

		c := chain.New(cc.Name, n, log)
		c.AddComponent(b)

		channel := chain.NewSensorChannel(cc.Name, n, log, c)
		e.channels[cc.Name] = channel
	}

	return e, nil
}

// channelKindForAdaptor looks up whether any channel referencing adaptorName
// is a "pose" channel, so the matching SampleProcessor can be built before
// the channel loop runs (an adaptor's processor type is fixed at build time,
// since it owns the per-path-id ring map).
func channelKindForAdaptor(cfg *config.Config, adaptorName string) string {
	for _, cc := range cfg.Channels {
		if cc.Adaptor == adaptorName && cc.Kind == "pose" {
			return "pose"
		}
	}
	return ""
}

// Channel returns the named sensor channel.
func (e *Engine) Channel(name string) (*chain.SensorChannel, error) {
	c, ok := e.channels[name]
	if !ok {
		return nil, xerror.New(xerror.InvalidCursor, "unknown channel %q", name)
	}
	return c, nil
}

// CurrentValue returns the latest observed value for the named channel.
func (e *Engine) CurrentValue(name string) (sample.Scalar, bool, error) {
	v, ok := e.values[name]
	if !ok {
		return sample.Scalar{}, false, xerror.New(xerror.InvalidCursor, "unknown channel %q", name)
	}
	value, valid := v.Get()
	return value, valid, nil
}

// CurrentPose returns the latest interpreted orientation for the named pose
// channel.
func (e *Engine) CurrentPose(name string) (sample.Pose, bool, error) {
	v, ok := e.poses[name]
	if !ok {
		return sample.Pose{}, false, xerror.New(xerror.InvalidCursor, "unknown pose channel %q", name)
	}
	value, valid := v.Get()
	return value, valid, nil
}

// Start subscribes sessionID to the named channel and records the
// subscription in the session registry, so Teardown reaches it later.
func (e *Engine) Start(sessionID int, channelName string) error {
	c, err := e.Channel(channelName)
	if err != nil {
		return err
	}
	if err := c.Start(sessionID); err != nil {
		return err
	}
	e.Sessions.Touch(sessionID, c)
	return nil
}

// Stop unsubscribes sessionID from the named channel.
func (e *Engine) Stop(sessionID int, channelName string) error {
	c, err := e.Channel(channelName)
	if err != nil {
		return err
	}
	return c.Stop(sessionID)
}

// TeardownSession removes every request sessionID has made across every
// channel it has touched (spec.md §5/§8 property 4).
func (e *Engine) TeardownSession(sessionID int) {
	e.Sessions.Teardown(sessionID)
}
