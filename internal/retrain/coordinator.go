package retrain

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Policy - что делать с запросом на обучение, пока идёт другое.
type Policy string

const (
	PolicyReject Policy = "reject" // отказать
	PolicyQueue  Policy = "queue"  // запомнить один повторный запуск
)

type StartResult int

const (
	Started StartResult = iota
	AlreadyRunning
	Queued
)

func (r StartResult) String() string {
	switch r {
	case Started:
		return "started"
	case AlreadyRunning:
		return "already_running"
	case Queued:
		return "queued"
	}
	return "unknown"
}

// RunFunc - одна итерация обучения.
type RunFunc func(ctx context.Context) error

// Coordinator гарантирует, что одновременно идёт не больше одного обучения.
// TryStart никогда не блокирует вызывающего.
type Coordinator struct {
	ctx    context.Context
	policy Policy
	run    RunFunc
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	pending bool
	runs    int
	lastErr error
	wg      sync.WaitGroup
}

func NewCoordinator(ctx context.Context, policy Policy, run RunFunc, logger zerolog.Logger) *Coordinator {
	if policy != PolicyQueue {
		policy = PolicyReject
	}
	return &Coordinator{ctx: ctx, policy: policy, run: run, logger: logger}
}

func (c *Coordinator) TryStart() StartResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		c.running = true
		c.wg.Add(1)
		go c.loop()
		return Started
	}
	if c.policy == PolicyQueue {
		// повторные запросы схлопываются в один отложенный запуск
		c.pending = true
		return Queued
	}
	return AlreadyRunning
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	for {
		start := time.Now()
		err := c.run(c.ctx)
		if err != nil {
			c.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("retrain failed")
		} else {
			c.logger.Info().Dur("elapsed", time.Since(start)).Msg("retrain done")
		}

		c.mu.Lock()
		c.runs++
		c.lastErr = err
		if c.pending && c.ctx.Err() == nil {
			c.pending = false
			c.mu.Unlock()
			continue
		}
		c.pending = false
		c.running = false
		c.mu.Unlock()
		return
	}
}

// Running - идёт ли обучение сейчас.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stats - число завершённых запусков и ошибка последнего.
func (c *Coordinator) Stats() (runs int, lastErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs, c.lastErr
}

// Wait ждёт завершения текущего запуска (для остановки сервиса и тестов).
func (c *Coordinator) Wait() { c.wg.Wait() }
