package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultBlacklistRefreshInterval = time.Hour

var (
	blacklistRefreshInterval   atomic.Value
	blacklistIntervalListeners []chan time.Duration
	listenersMu                sync.Mutex
)

func SetBetweenTime() {
	setBlacklistRefreshInterval(calculateBlacklistRefreshInterval(GetConfig()))
}

// CalculateBetweenTime converts timer to a duration of at least one second.
func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMilliseconds(timer)

	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMilliseconds(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

// IsZero reports whether no field of the timer is set.
func (t Timer) IsZero() bool {
	return t.Days == 0 && t.Hours == 0 && t.Minutes == 0 && t.Seconds == 0
}

// DurationOr returns the timer as a duration, or fallback when it is unset.
func DurationOr(timer Timer, fallback time.Duration) time.Duration {
	if timer.IsZero() {
		return fallback
	}
	return time.Duration(CalculateMilliseconds(timer)) * time.Millisecond
}

func setBlacklistRefreshInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultBlacklistRefreshInterval
	}

	current := GetBlacklistRefreshInterval()
	if current == interval {
		return
	}

	blacklistRefreshInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range blacklistIntervalListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}

func GetBlacklistRefreshInterval() time.Duration {
	return blacklistRefreshInterval.Load().(time.Duration)
}

// BlacklistIntervalUpdates returns a channel that receives the current
// interval immediately and every later change.
func BlacklistIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	blacklistIntervalListeners = append(blacklistIntervalListeners, ch)
	listenersMu.Unlock()

	ch <- GetBlacklistRefreshInterval()
	return ch
}

func calculateBlacklistRefreshInterval(cfg Config) time.Duration {
	timer := cfg.Blacklist.RefreshTimer
	if timer.IsZero() {
		return defaultBlacklistRefreshInterval
	}
	return CalculateBetweenTime(timer)
}
