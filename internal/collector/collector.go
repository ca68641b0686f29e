package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"hilofarm/internal/config"
	"hilofarm/internal/session"
)

// Event types written by the collector.
const (
	EventCollect       = "collect"
	EventCollectFailed = "collect_failed"
	EventTickets       = "collect_tickets"
	EventTicketsFailed = "collect_tickets_failed"
)

// EventLog stores collection events and answers when one last happened.
type EventLog interface {
	RecordEvent(ctx context.Context, sessionID, eventType, details string) error
	LastEvent(ctx context.Context, eventType string) (time.Time, bool, error)
}

// Collector claims the rewards the table hands out: a balance refill between
// sessions and, at most once per ticket interval, tickets during play.
type Collector struct {
	rewards session.Replenisher
	tickets session.TicketSource
	events  EventLog
	cfg     config.CollectorConfig
	now     func() time.Time

	mu           sync.Mutex
	total        float64
	ticketsTotal int
}

// NewCollector creates a collector. Either source may be nil.
func NewCollector(rewards session.Replenisher, tickets session.TicketSource, events EventLog, cfg config.CollectorConfig) *Collector {
	return &Collector{
		rewards: rewards,
		tickets: tickets,
		events:  events,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Collect claims one refill and journals it as a "collect" event.
func (c *Collector) Collect(ctx context.Context) (float64, error) {
	if c.rewards == nil {
		return 0, nil
	}
	amount, err := c.rewards.Collect(ctx)
	if err != nil {
		c.record(ctx, EventCollectFailed, err.Error())
		return 0, fmt.Errorf("collecting reward: %w", err)
	}

	c.mu.Lock()
	c.total += amount
	total := c.total
	c.mu.Unlock()

	details := "amount=" + strconv.FormatFloat(amount, 'f', -1, 64)
	if b, ok := c.rewards.(interface {
		Balance(ctx context.Context) (float64, error)
	}); ok {
		if balance, err := b.Balance(ctx); err == nil {
			details += "; balance=" + strconv.FormatFloat(balance, 'f', -1, 64)
		}
	}
	c.record(ctx, EventCollect, details)

	slog.Info("collection complete", "amount", amount, "collected_total", total)
	return amount, nil
}

// CollectTickets claims tickets when the last claim recorded in the event
// log is older than the ticket interval. It reports whether a claim was made.
func (c *Collector) CollectTickets(ctx context.Context) (bool, error) {
	interval := c.cfg.TicketInterval.Duration
	if c.tickets == nil || interval <= 0 {
		return false, nil
	}

	last, ok, err := c.events.LastEvent(ctx, EventTickets)
	if err != nil {
		return false, fmt.Errorf("reading last ticket claim: %w", err)
	}
	if ok && c.now().Sub(last) <= interval {
		return false, nil
	}

	n, err := c.tickets.ClaimTickets(ctx)
	if err != nil {
		c.record(ctx, EventTicketsFailed, err.Error())
		return false, fmt.Errorf("claiming tickets: %w", err)
	}

	c.mu.Lock()
	c.ticketsTotal += n
	c.mu.Unlock()

	c.record(ctx, EventTickets, "tickets="+strconv.Itoa(n))
	slog.Info("tickets collected", "tickets", n)
	return true, nil
}

// Total is the balance collected since start.
func (c *Collector) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Tickets is the number of tickets claimed since start.
func (c *Collector) Tickets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticketsTotal
}

func (c *Collector) record(ctx context.Context, eventType, details string) {
	if err := c.events.RecordEvent(ctx, "", eventType, details); err != nil {
		slog.Warn("failed to record collector event", "type", eventType, "error", err)
	}
}
