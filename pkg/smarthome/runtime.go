package smarthome

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcplabs/foundations/pkg/logging"
)

// DefaultTickInterval paces the simulation the way the agents expect:
// consumption accumulation assumes roughly one tick per second.
const DefaultTickInterval = time.Second

// Runtime drives a set of agents: each runs its own loop draining inbox
// messages and ticking on the shared interval until the context ends.
type Runtime struct {
	bus      *Bus
	interval time.Duration
	logger   logging.Logger

	agents  []Agent
	inboxes map[string]<-chan Message
}

// NewRuntime creates a runtime around the given bus. A zero interval uses
// DefaultTickInterval.
func NewRuntime(bus *Bus, interval time.Duration, logger logging.Logger) *Runtime {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runtime{
		bus:      bus,
		interval: interval,
		logger:   logger.WithFields(logging.String("component", "runtime")),
		inboxes:  make(map[string]<-chan Message),
	}
}

// Add registers the agent on the bus. Agents must be added before Run.
func (r *Runtime) Add(agent Agent) error {
	inbox, err := r.bus.Register(agent.Name())
	if err != nil {
		return fmt.Errorf("failed to add agent: %w", err)
	}
	r.agents = append(r.agents, agent)
	r.inboxes[agent.Name()] = inbox
	return nil
}

// Run drives all agents until the context is cancelled or its deadline
// passes, then returns each agent's final status keyed by name. Context
// expiry is the normal way to end the simulation and is not an error.
func (r *Runtime) Run(ctx context.Context) (map[string]map[string]interface{}, error) {
	g, gctx := errgroup.WithContext(ctx)

	for _, agent := range r.agents {
		agent := agent
		inbox := r.inboxes[agent.Name()]
		g.Go(func() error {
			return r.runAgent(gctx, agent, inbox)
		})
	}

	err := g.Wait()
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return nil, err
	}

	final := make(map[string]map[string]interface{}, len(r.agents))
	for _, agent := range r.agents {
		final[agent.Name()] = agent.Status()
	}
	return final, nil
}

func (r *Runtime) runAgent(ctx context.Context, agent Agent, inbox <-chan Message) error {
	r.logger.Info("agent started",
		logging.String("agent", agent.Name()),
		logging.String("kind", agent.Kind()))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("agent stopped", logging.String("agent", agent.Name()))
			return ctx.Err()
		case msg := <-inbox:
			if err := agent.HandleMessage(ctx, msg); err != nil {
				r.logger.Warn("message handling failed",
					logging.String("agent", agent.Name()),
					logging.ErrorField(err))
			}
		case <-ticker.C:
			if err := agent.Tick(ctx); err != nil {
				return fmt.Errorf("agent %s tick failed: %w", agent.Name(), err)
			}
		}
	}
}
