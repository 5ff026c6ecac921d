// Package engine implements the Process Engine Facade (spec §4.8 "Process
// Engine Facade (C8)"): the single entry point cmd/gateway and cmd/engine
// call, binding process.Scheduler/process.Executor to worldstore.Store,
// resources and effects so that no caller outside this package ever touches
// the scheduler, executor or store directly.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/techmad220/hackerexperience-go/domain/cursor"
	domainnetwork "github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/effects"
	"github.com/techmad220/hackerexperience-go/events"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
	"github.com/techmad220/hackerexperience-go/infrastructure/metrics"
	"github.com/techmad220/hackerexperience-go/mechanics"
	"github.com/techmad220/hackerexperience-go/process"
	"github.com/techmad220/hackerexperience-go/worldstore"
)

func newID() string { return uuid.NewString() }

// minDDoSViruses is the §4.10 DDoSHit precondition's eligibility floor (spec
// scenario S5: "2 running ddos viruses... gets InvalidInput; with 3,
// submission succeeds").
const minDDoSViruses = 3

// Engine is the C8 facade.
type Engine struct {
	store    worldstore.Store
	executor *process.Executor
	applier  *effects.Applier
	pub      events.Publisher
	cfg      mechanics.Config
	log      *logging.Logger
	metrics  *metrics.Metrics
}

// New builds an Engine. cfg must already have passed Validate (spec §4.9
// "refuses to start otherwise") — callers are expected to call cfg.Validate
// themselves before wiring, typically in cmd/engine's main. m may be nil to
// skip metrics recording (tests typically pass nil).
func New(store worldstore.Store, cfg mechanics.Config, pub events.Publisher, log *logging.Logger, m *metrics.Metrics) *Engine {
	scheduler := process.NewScheduler(cfg.StarvationThreshold)
	executor := process.NewExecutor(scheduler, cfg.PerOwnerConcurrency, cfg.PerServerConcurrency, log)
	return &Engine{
		store:    store,
		executor: executor,
		applier:  effects.New(log, pub),
		pub:      pub,
		cfg:      cfg,
		log:      log,
		metrics:  m,
	}
}

// RegisterServer seeds the executor's free-resource pool for id at its
// current effective hardware; callers must register every server the
// engine will run processes on before submitting work against it.
func (e *Engine) RegisterServer(id server.ID, effective server.HardwareSpec) {
	e.executor.RegisterServer(id, effective)
}

// ServerView returns the current persisted view of a server (spec §6
// "GetServerView") — the only read of server.Server state cmd/gateway is
// allowed, kept behind the facade rather than letting the transport reach
// into worldstore directly.
func (e *Engine) ServerView(ctx context.Context, id server.ID) (server.Server, error) {
	return e.store.GetServer(ctx, id)
}

// PlayerView returns the current persisted Player entity for external
// display, mirroring ServerView.
func (e *Engine) PlayerView(ctx context.Context, id player.ID) (player.Player, error) {
	return e.store.GetPlayer(ctx, id)
}

// RegisterPlayer creates a new Player in the World Store. World generation
// and account provisioning are out of this facade's core scope (spec §1
// Non-goals), but cmd/gateway's illustrative registration endpoint needs a
// way to create the backing Player record without reaching into worldstore
// itself.
func (e *Engine) RegisterPlayer(ctx context.Context, p player.Player) error {
	return e.store.CreatePlayer(ctx, p)
}

// SubmitRequest is the external-facing shape of spec §6's SubmitProcess.
type SubmitRequest struct {
	OwnerID    player.ID
	Kind       domainprocess.Kind
	SourceID   server.ID
	TargetID   server.ID // zero value: no target
	TargetFile string
	TunnelID   domainnetwork.TunnelID // required when TargetID is set
	Priority   domainprocess.Priority

	ResourcesRequired server.HardwareSpec
	BaseTime          time.Duration
	Complexity        float64

	Effect domainprocess.CompletionEffect
}

// Submit validates req against the World Store (owner exists, source
// exists, target reachable via an established tunnel, no duplicate
// Running-or-Queued process for the same dedup key — spec §3), computes the
// process's time estimate via the C1 formulas, persists it Queued, and
// hands it to the executor's submit buffer.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (domainprocess.Process, error) {
	if _, err := e.store.GetPlayer(ctx, req.OwnerID); err != nil {
		return domainprocess.Process{}, err
	}
	source, err := e.store.GetServer(ctx, req.SourceID)
	if err != nil {
		return domainprocess.Process{}, err
	}

	if req.TargetID != "" {
		if _, err := e.store.GetServer(ctx, req.TargetID); err != nil {
			return domainprocess.Process{}, err
		}
		tunnel, err := e.store.GetTunnel(ctx, req.TunnelID)
		if err != nil {
			return domainprocess.Process{}, domainerrors.InvalidRoute("no established tunnel to target")
		}
		if tunnel.Gateway != req.SourceID || tunnel.Target != req.TargetID {
			return domainprocess.Process{}, domainerrors.InvalidRoute("tunnel does not connect source to target")
		}
	}

	// S5: DDoS eligibility is checked at submission time, not at completion —
	// the attacker either has the running botnet to launch with or doesn't.
	if req.Kind == domainprocess.KindDDoS && source.CountRunning(server.SoftwareDDoS) < minDDoSViruses {
		return domainprocess.Process{}, domainerrors.InvalidInput("viruses", "need ≥ 3")
	}

	p := domainprocess.Process{
		Kind:              req.Kind,
		OwnerID:           string(req.OwnerID),
		SourceID:          req.SourceID,
		TargetID:          req.TargetID,
		TargetFile:        req.TargetFile,
		Priority:          req.Priority,
		State:             domainprocess.StateQueued,
		ResourcesRequired: req.ResourcesRequired,
		Effect:            req.Effect,
	}

	if existing, found, err := e.store.FindRunningOrQueued(ctx, p.Key()); err != nil {
		return domainprocess.Process{}, err
	} else if found {
		return domainprocess.Process{}, domainerrors.DuplicateProcess(string(existing.ID))
	}

	eff := source.EffectiveHardware()
	estimate, err := mechanics.ProcessTime(req.BaseTime, req.Complexity, eff.CPU, eff.RAM, e.cfg.OptimizationFloor)
	if err != nil {
		return domainprocess.Process{}, err
	}
	p.TimeEstimated = estimate
	p.TimeRemaining = estimate

	p.ID = domainprocess.ID(newID())
	p.QueuedAt = time.Now()
	if err := e.store.CreateProcess(ctx, p); err != nil {
		return domainprocess.Process{}, err
	}
	e.executor.Submit(p)
	return p, nil
}

// Pause transitions a Running process to Paused, freezing progress (spec
// invariant 5), and mirrors the new state into the World Store.
func (e *Engine) Pause(ctx context.Context, id domainprocess.ID) error {
	if err := e.executor.Pause(id); err != nil {
		return err
	}
	return e.syncProcess(ctx, id)
}

// Resume transitions a Paused process back to Running.
func (e *Engine) Resume(ctx context.Context, id domainprocess.ID) error {
	if err := e.executor.Resume(id); err != nil {
		return err
	}
	return e.syncProcess(ctx, id)
}

// Cancel cancels a process regardless of whether it is Queued or
// Running/Paused (spec §5's two cancellation paths), persisting the
// terminal state and emitting ProcessFailed for the Running/Paused case.
func (e *Engine) Cancel(ctx context.Context, id domainprocess.ID) error {
	if p, ok := e.executor.Status(id); ok {
		if err := e.executor.CancelRunning(id); err != nil {
			return err
		}
		p.State = domainprocess.StateCancelled
		p.FailureReason = "cancelled by owner"
		if err := e.store.UpdateProcess(ctx, p); err != nil {
			return err
		}
		if e.pub != nil {
			e.pub.Publish(ctx, events.ProcessFailed(p, time.Now()))
		}
		return nil
	}

	p, ok := e.executor.CancelQueued(id)
	if !ok {
		return domainerrors.NotFound("process", string(id))
	}
	p.FailureReason = "cancelled by owner"
	if err := e.store.UpdateProcess(ctx, p); err != nil {
		return err
	}
	if e.pub != nil {
		e.pub.Publish(ctx, events.ProcessFailed(p, time.Now()))
	}
	return nil
}

// Status returns the live view of a process: the executor's in-memory
// record when it's Running/Paused, falling back to the World Store's
// persisted record for Queued/terminal states.
func (e *Engine) Status(ctx context.Context, id domainprocess.ID) (domainprocess.Process, error) {
	if p, ok := e.executor.Status(id); ok {
		return p, nil
	}
	return e.store.GetProcess(ctx, id)
}

// ListFor returns a cursor-paginated page of owner's processes (spec §6
// "QueryProcesses").
func (e *Engine) ListFor(ctx context.Context, owner player.ID, c cursor.Cursor, limit int) (cursor.Page[domainprocess.Process], error) {
	return e.store.QueryProcessesForOwner(ctx, owner, c, limit)
}

// Tick advances the simulation by elapsed and applies completion effects
// for every process that finished, persisting terminal state transitions
// into the World Store. cmd/engine is the sole caller, driving this from a
// time.Ticker (spec §4.7's driving-goroutine note).
func (e *Engine) Tick(ctx context.Context, elapsed time.Duration, now time.Time) (process.TickResult, error) {
	wallStart := time.Now()
	result := e.executor.Tick(elapsed, now)
	if e.metrics != nil {
		e.metrics.RecordTick(time.Since(wallStart))
		e.metrics.SetQueueDepths(e.executor.QueuedCount(), e.executor.RunningCount())
	}

	for _, p := range result.Completed {
		if err := e.store.UpdateProcess(ctx, p); err != nil {
			return result, err
		}
		if err := e.applier.Apply(ctx, e.store, p, now); err != nil {
			if e.log != nil {
				e.log.WithContext(ctx).WithField("process_id", p.ID).WithField("error", err).
					Error("engine: effect application failed")
			}
			// §4.10: a failed precondition at apply time fails the process —
			// no partial effect is visible, since Apply ran inside its own
			// rolled-back transaction.
			p.State = domainprocess.StateFailed
			p.FailureReason = err.Error()
			if updErr := e.store.UpdateProcess(ctx, p); updErr != nil {
				return result, updErr
			}
			if e.metrics != nil {
				e.metrics.RecordFinished("failed")
			}
			if e.pub != nil {
				e.pub.Publish(ctx, events.ProcessFailed(p, now))
			}
			continue
		}
		if e.metrics != nil {
			e.metrics.RecordFinished("completed")
		}
		if e.pub != nil {
			e.pub.Publish(ctx, events.ProcessCompleted(p, now))
		}
	}
	for _, p := range result.Cancelled {
		if err := e.store.UpdateProcess(ctx, p); err != nil {
			return result, err
		}
		if e.metrics != nil {
			e.metrics.RecordFinished("cancelled")
		}
	}
	return result, nil
}

// SweepExpiredWars archives every active clan war whose End time is at or
// before now (spec §9's war-ending sweep), applying the same idempotent
// bounty-distribution-and-archive logic Submit(KindWarEnd) uses. Wars are
// ordinarily ended by a player-submitted KindWarEnd process, but a war
// nobody bothers to formally end must still close on schedule — cmd/engine
// drives this from a calendar-based cron entry rather than the simulation
// tick, since "did we cross a wall-clock deadline" is a calendar concern,
// not a per-tick one.
func (e *Engine) SweepExpiredWars(ctx context.Context, now time.Time) error {
	wars, err := e.store.ListActiveWarsEndingBy(ctx, now)
	if err != nil {
		return err
	}
	for _, war := range wars {
		synthetic := domainprocess.Process{
			Kind: domainprocess.KindWarEnd,
			Effect: domainprocess.CompletionEffect{
				Kind: domainprocess.KindWarEnd,
				Data: map[string]string{"war_id": string(war.ID)},
			},
		}
		if err := e.applier.Apply(ctx, e.store, synthetic, now); err != nil {
			if e.log != nil {
				e.log.WithContext(ctx).WithField("war_id", war.ID).WithField("error", err).
					Error("engine: expired war sweep failed")
			}
			continue
		}
	}
	return nil
}

func (e *Engine) syncProcess(ctx context.Context, id domainprocess.ID) error {
	p, ok := e.executor.Status(id)
	if !ok {
		return domainerrors.NotFound("process", string(id))
	}
	return e.store.UpdateProcess(ctx, p)
}
