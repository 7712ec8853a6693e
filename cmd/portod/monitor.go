package main

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	porto "github.com/werat/porto"
)

// monitor is the background ticker named in §4.8: it polls every running
// container's derived memory_usage data and logs a warning when it crosses
// the container's configured "memory_limit" property. There is no metrics
// sink here — logging is the whole of this revision's monitoring story.
type monitor struct {
	holder   *porto.Holder
	interval time.Duration
}

func newMonitor(holder *porto.Holder, interval time.Duration) *monitor {
	return &monitor{holder: holder, interval: interval}
}

func secondsOrDefault(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 15
	}
	return time.Duration(seconds) * time.Second
}

func (m *monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce()
		}
	}
}

func (m *monitor) pollOnce() {
	for _, name := range m.holder.List() {
		c, err := m.holder.Find(name)
		if err != nil {
			continue
		}
		if c.Status() != porto.Running {
			continue
		}
		m.checkMemory(c)
	}
}

func (m *monitor) checkMemory(c *porto.Container) {
	limitRaw, err := c.GetProperty("memory_limit")
	if err != nil || limitRaw == "" {
		return
	}
	limit, err := strconv.ParseUint(limitRaw, 10, 64)
	if err != nil || limit == 0 {
		return
	}

	usageRaw, err := c.GetData("memory_usage")
	if err != nil {
		return
	}
	usage, err := strconv.ParseUint(usageRaw, 10, 64)
	if err != nil {
		return
	}

	if usage >= limit {
		logrus.WithFields(logrus.Fields{
			"container": c.Name(),
			"usage":     usage,
			"limit":     limit,
		}).Warn("container memory usage crossed configured limit")
	}
}
