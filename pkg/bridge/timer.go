package bridge

import (
	"fmt"
	"sync"
	"time"
)

// TimerManager arms the auto-disable timers behind BridgeRule.Timeout.
// Unlike pkg/timer's polled call-FSM timers, these fire asynchronously
// via time.AfterFunc: the bridge layer is already driven from multiple
// goroutines, so a callback deactivating a rule is safe here.
type TimerManager struct {
	timers map[string]*time.Timer
	mu     sync.RWMutex
}

// NewTimerManager creates an empty manager.
func NewTimerManager() *TimerManager {
	return &TimerManager{
		timers: make(map[string]*time.Timer),
	}
}

// ruleKey generates a unique key for a rule.
func ruleKey(rule *BridgeRule) string {
	return fmt.Sprintf("%s:%d:%d", rule.System, rule.TGID, rule.Timeslot)
}

// SetTimeout arms a rule's auto-disable: after Timeout minutes the rule
// deactivates itself. Arming an already-armed rule restarts its window.
// Rules without a configured Timeout are left alone.
func (tm *TimerManager) SetTimeout(rule *BridgeRule) {
	if rule.Timeout <= 0 {
		return
	}

	duration := time.Duration(rule.Timeout) * time.Minute
	tm.SetTimeoutWithCallback(rule, duration, func(r *BridgeRule) {
		r.Deactivate()
	})
}

// SetTimeoutWithCallback arms a timer with a custom expiry action.
func (tm *TimerManager) SetTimeoutWithCallback(rule *BridgeRule, duration time.Duration, callback func(*BridgeRule)) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	key := ruleKey(rule)

	if existingTimer, exists := tm.timers[key]; exists {
		existingTimer.Stop()
	}

	timer := time.AfterFunc(duration, func() {
		callback(rule)
		tm.mu.Lock()
		delete(tm.timers, key)
		tm.mu.Unlock()
	})

	tm.timers[key] = timer
}

// ClearTimeout cancels a rule's pending auto-disable, if any.
func (tm *TimerManager) ClearTimeout(rule *BridgeRule) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	key := ruleKey(rule)
	if timer, exists := tm.timers[key]; exists {
		timer.Stop()
		delete(tm.timers, key)
	}
}

// HasTimer reports whether a rule has a pending auto-disable.
func (tm *TimerManager) HasTimer(rule *BridgeRule) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	key := ruleKey(rule)
	_, exists := tm.timers[key]
	return exists
}

// StopAll cancels every pending timer, for shutdown.
func (tm *TimerManager) StopAll() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, timer := range tm.timers {
		timer.Stop()
	}

	tm.timers = make(map[string]*time.Timer)
}
