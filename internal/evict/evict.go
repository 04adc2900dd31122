// Package evict implements single-instance enforcement: before the server
// binds its well-known port, it probes the port's /health endpoint and, if a
// prior instance answers, terminates it — graceful signal first, forceful
// after a grace period. "Newest process wins" is acceptable here because the
// process model is one authoritative daemon per port per machine.
package evict

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"
)

// ProcessController abstracts the two-phase shutdown request so tests (and
// environments without POSIX signals) can inject a cooperative
// implementation.
type ProcessController interface {
	// Terminate requests a graceful shutdown of pid.
	Terminate(pid int) error
	// Kill forcefully stops pid.
	Kill(pid int) error
}

// signalController delivers OS signals.
type signalController struct{}

func (signalController) Terminate(pid int) error { return signalPID(pid, syscall.SIGTERM) }
func (signalController) Kill(pid int) error      { return signalPID(pid, syscall.SIGKILL) }

func signalPID(pid int, sig syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}

// Evictor probes and, when necessary, terminates a prior instance.
type Evictor struct {
	SelfPID      int
	Grace        time.Duration
	ProbeTimeout time.Duration
	Proc         ProcessController
	Client       *http.Client
	Logger       *slog.Logger
}

// New creates an Evictor backed by OS signals and the current process's pid.
func New(logger *slog.Logger, grace, probeTimeout time.Duration) *Evictor {
	return &Evictor{
		SelfPID:      os.Getpid(),
		Grace:        grace,
		ProbeTimeout: probeTimeout,
		Proc:         signalController{},
		Client:       &http.Client{},
		Logger:       logger,
	}
}

// Evict probes healthURL and escalates against whatever answers: graceful
// signal, wait, re-probe, forceful signal, wait. It is best-effort and never
// fails the start on its own — if the port is still occupied afterwards, the
// subsequent bind reports the definitive failure.
func (e *Evictor) Evict(ctx context.Context, healthURL string) {
	pid, alive := e.probe(ctx, healthURL)
	if !alive {
		return
	}
	if pid == e.SelfPID {
		e.Logger.Debug("evict: prior instance is this process, skipping")
		return
	}

	e.Logger.Info("evict: terminating prior instance", "pid", pid)
	if err := e.Proc.Terminate(pid); err != nil {
		e.Logger.Warn("evict: graceful signal failed", "pid", pid, "error", err)
	}
	if !e.wait(ctx) {
		return
	}

	if _, alive := e.probe(ctx, healthURL); !alive {
		return
	}

	e.Logger.Warn("evict: prior instance still alive, escalating", "pid", pid)
	if err := e.Proc.Kill(pid); err != nil {
		e.Logger.Warn("evict: forceful signal failed", "pid", pid, "error", err)
	}
	e.wait(ctx)
}

// probe performs a short-timeout health check and extracts the answering
// process's pid. Any failure — refused connection, timeout, non-200,
// unparseable body — means no live prior instance.
func (e *Evictor) probe(ctx context.Context, healthURL string) (int, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return 0, false
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return 0, false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, false
	}

	var health struct {
		Status string `json:"status"`
		PID    int    `json:"pid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return 0, false
	}
	return health.PID, true
}

// wait sleeps for the grace period; false means the context was cancelled.
func (e *Evictor) wait(ctx context.Context) bool {
	timer := time.NewTimer(e.Grace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
