// Package dispatcher routes an action token on a registered entry to
// one of four execution strategies (systemctl, script runner, opaque
// exec, postmulti), enforcing argument syntax and appending settle-time
// and status verification where the strategy calls for it.
package dispatcher

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/cmx/apierror"
	"github.com/kraklabs/cmx/exec2"
	"github.com/kraklabs/cmx/registry"
)

const (
	defaultTimeout = 30 * time.Second
	settleTime     = 600 * time.Millisecond
)

var forbiddenSubcommands = map[string]bool{"poweroff": true, "reboot": true, "halt": true}

var scriptRunnerPattern = regexp.MustCompile(`^(bash|sh|perl|exec):(/.+)$`)

// Config carries the boot-time systemctl binary location and flags.
type Config struct {
	SystemctlBin   string
	SystemctlFlags []string
}

// Dispatcher is the ActionDispatcher component.
type Dispatcher struct {
	exec *exec2.Executor
	cfg  Config
}

// New builds a Dispatcher over executor using cfg for the systemctl
// invocation shape.
func New(executor *exec2.Executor, cfg Config) *Dispatcher {
	if cfg.SystemctlBin == "" {
		cfg.SystemctlBin = "/usr/bin/systemctl"
	}
	return &Dispatcher{exec: executor, cfg: cfg}
}

func (d *Dispatcher) systemctlArgv(extra ...string) []string {
	argv := make([]string, 0, 1+len(d.cfg.SystemctlFlags)+len(extra))
	argv = append(argv, d.cfg.SystemctlBin)
	argv = append(argv, d.cfg.SystemctlFlags...)
	argv = append(argv, extra...)
	return argv
}

// Dispatch enforces the action-table precondition (token declared,
// extras syntactically valid) and runs the selected strategy.
func (d *Dispatcher) Dispatch(ctx context.Context, entry registry.Entry, token string) (map[string]interface{}, error) {
	extras, declared := entry.Actions[token]
	if !declared {
		return nil, apierror.ActionPolicy("Aktion nicht erlaubt")
	}
	for _, a := range extras {
		if !registry.ValidArgToken(a) {
			return nil, apierror.ActionPolicy("Aktion nicht erlaubt")
		}
	}

	switch {
	case entry.Service == "exec:/usr/sbin/postmulti":
		return d.postmulti(ctx, entry, token, extras)
	case token == "daemon-reload":
		return d.directSystemctl(ctx, "daemon-reload", nil)
	case scriptRunnerPattern.MatchString(entry.Service):
		return d.scriptRunner(ctx, entry, extras)
	case entry.Service == "systemctl":
		if forbiddenSubcommands[token] {
			return nil, apierror.ActionPolicy("Aktion nicht erlaubt")
		}
		return d.directSystemctl(ctx, token, extras)
	default:
		return d.unitControl(ctx, entry.Service, token, extras)
	}
}

func (d *Dispatcher) directSystemctl(ctx context.Context, subcommand string, extras []string) (map[string]interface{}, error) {
	argv := append([]string{subcommand}, extras...)
	res := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv(argv...)...)
	return map[string]interface{}{
		"ok":     res.RC == 0,
		"action": subcommand,
		"rc":     res.RC,
		"output": res.Out,
	}, nil
}

// unitControl runs the systemctl call(s) for token against unit, then
// verifies with "is-active". ok is true when the unit is running,
// except for "stop", where ok is true when it is NOT running; so
// "stop_start" reports ok only if the unit is running afterwards.
func (d *Dispatcher) unitControl(ctx context.Context, unit, token string, extras []string) (map[string]interface{}, error) {
	var primaryRC int

	switch token {
	case "stop_start":
		<-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv("stop", unit)...)
		r := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv("start", unit)...)
		primaryRC = r.RC
	case "restart":
		r := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv("restart", unit)...)
		primaryRC = r.RC
	case "reload":
		check := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv("is-active", unit)...)
		if check.RC != 0 {
			return nil, apierror.Transient("Dienst ist nicht aktiv: " + unit)
		}
		r := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv("reload", unit)...)
		primaryRC = r.RC
	case "start", "stop":
		r := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv(token, unit)...)
		primaryRC = r.RC
	default:
		argv := append([]string{token}, extras...)
		argv = append(argv, unit)
		r := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv(argv...)...)
		primaryRC = r.RC
	}

	verify := <-d.exec.Capture(ctx, defaultTimeout, d.systemctlArgv("is-active", unit)...)
	running := verify.RC == 0
	status := "stopped"
	if running {
		status = "running"
	}

	ok := running
	if token == "stop" {
		ok = !running
	}

	return map[string]interface{}{
		"ok":     ok,
		"action": token,
		"status": status,
		"rc":     primaryRC,
	}, nil
}

func (d *Dispatcher) scriptRunner(ctx context.Context, entry registry.Entry, extras []string) (map[string]interface{}, error) {
	m := scriptRunnerPattern.FindStringSubmatch(entry.Service)
	kind, script := m[1], m[2]

	var prefix []string
	switch kind {
	case "perl":
		prefix = []string{"/usr/bin/perl", script}
	case "bash":
		prefix = []string{"/bin/bash", script}
	case "sh":
		prefix = []string{"/bin/sh", script}
	default: // exec
		prefix = []string{script}
		if strings.HasSuffix(script, "/systemctl") && len(extras) > 0 && forbiddenSubcommands[extras[0]] {
			return nil, apierror.ActionPolicy("Aktion nicht erlaubt")
		}
	}

	argv := append(append([]string{}, prefix...), extras...)
	res := <-d.exec.Capture(ctx, defaultTimeout, argv...)

	if len(extras) > 0 && extras[0] == "is-active" {
		status := "stopped"
		if res.RC == 0 {
			status = "running"
		}
		return map[string]interface{}{"ok": true, "status": status}, nil
	}

	return map[string]interface{}{"ok": res.RC == 0, "rc": res.RC, "output": res.Out}, nil
}

func (d *Dispatcher) postmulti(ctx context.Context, entry registry.Entry, token string, extras []string) (map[string]interface{}, error) {
	primary := <-d.exec.Capture(ctx, defaultTimeout, append([]string{"/usr/sbin/postmulti"}, extras...)...)

	switch token {
	case "stop", "start", "reload", "restart":
		time.Sleep(settleTime)
	}

	statusArgs := entry.Status
	if len(statusArgs) == 0 {
		statusArgs = []string{"-i", entry.Name, "-p", "status"}
	}
	statusRes := <-d.exec.Capture(ctx, defaultTimeout, append([]string{"/usr/sbin/postmulti"}, statusArgs...)...)

	state := parsePostmultiState(statusRes.Out, statusRes.RC)

	ok := state == "running"
	switch token {
	case "stop":
		ok = state == "stopped"
	case "status":
		ok = true
	}

	return map[string]interface{}{
		"ok":     ok,
		"action": token,
		"status": state,
		"state":  state,
		"rc":     primary.RC,
		"output": statusRes.Out,
	}, nil
}

var (
	postmultiRunningPID = regexp.MustCompile(`pid:\s*\d+`)
	postmultiRunningTag = regexp.MustCompile(`:\s*(the postfix mail system is\s+)?running`)
)

// parsePostmultiState classifies a postmulti status capture, per the
// textual (not exit-coded) status reporting of the postfix multi-
// instance manager.
func parsePostmultiState(output string, rc int) string {
	lower := strings.ToLower(output)

	if strings.Contains(lower, "not running") || strings.Contains(lower, "inactive") || strings.Contains(lower, "stopped") {
		return "stopped"
	}
	if strings.Contains(lower, "is running") || postmultiRunningPID.MatchString(lower) || postmultiRunningTag.MatchString(lower) {
		return "running"
	}

	switch rc {
	case 0:
		return "running"
	case 1:
		return "stopped"
	default:
		return "unknown"
	}
}
