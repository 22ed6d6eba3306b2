package app

import (
	"context"
	"errors"
	"time"
)

// defaultPollInterval applies when the poller is given no interval.
const defaultPollInterval = 5 * time.Second

// Poller refreshes a Service on a fixed interval until its context ends.
type Poller struct {
	svc       *Service
	interval  time.Duration
	onRefresh func(Refresh, error)
}

// NewPoller constructs a poller; onRefresh may be nil.
func NewPoller(svc *Service, interval time.Duration, onRefresh func(Refresh, error)) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{svc: svc, interval: interval, onRefresh: onRefresh}
}

// Interval returns the poll interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run refreshes immediately and then once per interval. It returns nil when ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll runs one refresh and reports it.
func (p *Poller) poll(ctx context.Context) {
	result, err := p.svc.Refresh(ctx)
	if err != nil && errors.Is(err, ctx.Err()) {
		return
	}
	if err != nil {
		p.svc.logger.Error("snapshot refresh failed", "err", err)
	}
	if p.onRefresh != nil {
		p.onRefresh(result, err)
	}
}
