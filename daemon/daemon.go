package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sshlog/agent/bus"
	"github.com/sshlog/agent/config"
	"github.com/sshlog/agent/daemon/metrics"
	"github.com/sshlog/agent/event"
	"github.com/sshlog/agent/internal/errs"
	"github.com/sshlog/agent/ipc"
	"github.com/sshlog/agent/ipc/handler"
	"github.com/sshlog/agent/logger"
	"github.com/sshlog/agent/plugin"
	"github.com/sshlog/agent/session"
	"github.com/sshlog/agent/streamlease"
	"github.com/sshlog/agent/wire"
)

// metricsTickInterval controls how often Run refreshes gauges that
// have no natural event to update on (ActiveWatchLeases).
const metricsTickInterval = 2 * time.Second

// Options configures a Daemon at construction. SessionInjectionEnabled
// is read through a func rather than a plain bool so SendKeys always
// observes the latest value (e.g. if a future config reload flips it).
type Options struct {
	Config                  config.Daemon
	Log                     logger.Logger
	Registry                *plugin.Registry
	SessionInjectionEnabled func() bool

	// MetricsRegisterer receives the daemon's prometheus collectors.
	// Defaults to prometheus.DefaultRegisterer; pass
	// prometheus.NewRegistry() from tests to avoid collisions across
	// Daemon instances in the same process.
	MetricsRegisterer prometheus.Registerer

	// LoadRules re-reads the plugin config directory and returns a
	// fresh rule set. If set, Run calls it on every fsnotify event
	// under Config.PluginDir and feeds the result to Runtime.Reload —
	// the hot-reload SPEC_FULL.md adds on top of spec.md's plugin
	// engine. If nil, Run skips watching PluginDir entirely (rules
	// passed to Run still apply once, just without reload-on-edit).
	LoadRules func() ([]plugin.Rule, error)
}

// Daemon wires C1-C8 into one running process: the event bus, session
// tracker, active-streams lease table, IPC router with its handlers,
// and the plugin runtime.
type Daemon struct {
	opt     Options
	bus     *bus.Bus
	tracker *session.Tracker
	leases  *streamlease.Table
	router  *ipc.Router
	plugins *plugin.Runtime
	metrics *metrics.Metrics
	pidlock *PIDLockFile
}

// New assembles a Daemon. It does not bind the socket or acquire the
// PID lock yet; call Run for that.
func New(opt Options) *Daemon {
	tracker := session.New()
	b := bus.New(tracker)
	tracker.Attach(b)

	leases := streamlease.New()

	reg := opt.MetricsRegisterer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	d := &Daemon{
		opt:     opt,
		bus:     b,
		tracker: tracker,
		leases:  leases,
		plugins: plugin.New(asPluginLogger(opt.Log)),
		metrics: metrics.New(reg),
	}

	b.Subscribe(func(event.Event) {
		d.metrics.SessionsTracked.Set(float64(len(tracker.List())))
	}, event.All...)

	d.plugins.OnActionExecuted(func(actionName string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		d.metrics.PluginActionsRun.WithLabelValues(actionName, outcome).Inc()
	})

	d.router = ipc.New(ipc.Config{
		SocketPath: opt.Config.Socket.Path,
		GroupPerm:  opt.Config.Socket.GroupPerm,
		Mode:       opt.Config.Socket.Mode.FileMode(),
	}, asIPCLogger(opt.Log))

	d.router.Register(wire.SessionListRequest, d.instrument(wire.SessionListRequest, handler.ListSessions(tracker)))
	d.router.Register(wire.KillSessionRequest, d.instrument(wire.KillSessionRequest, handler.KillSession()))
	d.router.Register(wire.EventWatchRequest, d.instrument(wire.EventWatchRequest, handler.Watch(b, leases, func() bool { return true })))
	d.router.Register(wire.ShellSendKeysRequest, d.instrument(wire.ShellSendKeysRequest, handler.SendKeys(tracker, asHandlerLogger(opt.Log), opt.SessionInjectionEnabled)))

	return d
}

// instrument wraps h so every dispatch increments RequestsDispatched
// under pt's label, without ipc itself needing to know about metrics.
func (d *Daemon) instrument(pt wire.PayloadType, h ipc.HandlerFunc) ipc.HandlerFunc {
	return func(ctx context.Context, p *ipc.Peer, env wire.Envelope) {
		d.metrics.RequestsDispatched.WithLabelValues(pt.String()).Inc()
		h(ctx, p, env)
	}
}

// Run performs startup preflight (root check, PID lock, kernel
// version warning), loads plugin rules, binds the socket, and blocks
// serving requests until ctx is canceled. Shutdown order matches
// spec.md §5: router drains, handler threads exit, then the action
// pool stops.
func (d *Daemon) Run(ctx context.Context, pidFilePath string, rules []plugin.Rule) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("%w: sshlogd must run as root", errs.ErrFatalStartup)
	}

	d.pidlock = NewPIDLockFile(pidFilePath)
	if err := d.pidlock.Acquire(d.opt.Config.PIDLockTimeout.Time()); err != nil {
		return err
	}
	defer d.pidlock.Release()

	if release, ok, err := CheckKernelVersion(); err != nil {
		d.logWarning("daemon: could not determine kernel version", err)
	} else if !ok {
		d.logWarning("daemon: kernel older than the validated minimum", release)
	}

	if errsList := d.plugins.Start(d.bus, rules); len(errsList) > 0 {
		return fmt.Errorf("%w: %v", errs.ErrConfig, errsList)
	}

	defer d.plugins.Shutdown(d.bus)

	if d.opt.LoadRules != nil && d.opt.Config.PluginDir != "" {
		stopWatch, err := config.WatchPluginDir(d.opt.Config.PluginDir, func(string) {
			d.reloadPlugins()
		})
		if err != nil {
			d.logWarning("daemon: plugin directory hot-reload unavailable", err)
		} else {
			defer stopWatch()
		}
	}

	go d.trackActiveLeases(ctx)

	return d.router.Listen(ctx)
}

// reloadPlugins re-reads the plugin config directory through
// opt.LoadRules and swaps the running rule set. A reload that fails
// validation leaves the previously running rules untouched — a config
// mistake under conf.d/ never takes the daemon down.
func (d *Daemon) reloadPlugins() {
	rules, err := d.opt.LoadRules()
	if err != nil {
		d.logWarning("daemon: plugin config reload failed", err)
		return
	}
	if errsList := d.plugins.Reload(d.bus, rules); len(errsList) > 0 {
		d.logWarning("daemon: plugin config reload rejected", errsList)
	}
}

// trackActiveLeases periodically refreshes ActiveWatchLeases, since
// streamlease.Table has no event hook to update it from directly.
func (d *Daemon) trackActiveLeases(ctx context.Context) {
	ticker := time.NewTicker(metricsTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.metrics.ActiveWatchLeases.Set(float64(d.leases.Count()))
		}
	}
}

// Shutdown stops the router (draining in-flight requests per spec.md
// §5) without waiting for Run's caller to cancel ctx.
func (d *Daemon) Shutdown(ctx context.Context) error {
	return d.router.Shutdown(ctx)
}

// Bus exposes the event bus so a native ingest loop (out of scope
// here; spec.md §2's "native source") can publish onto it.
func (d *Daemon) Bus() *bus.Bus {
	return d.bus
}

func (d *Daemon) logWarning(msg string, data interface{}) {
	if d.opt.Log != nil {
		d.opt.Log.Warning(msg, data)
	}
}

// asIPCLogger/asPluginLogger/asHandlerLogger adapt logger.Logger to
// each package's narrower duck-typed Logger interface; a nil
// logger.Logger yields a nil interface value so downstream nil checks
// still work.
func asIPCLogger(l logger.Logger) ipc.Logger {
	if l == nil {
		return nil
	}
	return l
}

func asPluginLogger(l logger.Logger) plugin.Logger {
	if l == nil {
		return nil
	}
	return l
}

func asHandlerLogger(l logger.Logger) handler.Logger {
	if l == nil {
		return nil
	}
	return l
}
