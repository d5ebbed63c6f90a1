package sensors

import "time"

// pacer spaces reads at a fixed interval. When a read falls more than one
// interval behind, the schedule restarts from now instead of bursting.
type pacer struct {
	interval time.Duration
	next     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, now: time.Now, sleep: time.Sleep}
}

func (p *pacer) wait() {
	if p.interval <= 0 {
		return
	}
	now := p.now()
	if p.next.IsZero() || now.Sub(p.next) > p.interval {
		p.next = now
	}
	if d := p.next.Sub(now); d > 0 {
		p.sleep(d)
	}
	p.next = p.next.Add(p.interval)
}
