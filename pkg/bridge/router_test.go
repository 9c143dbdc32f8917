package bridge

import (
	"testing"
)

func TestRouter_New(t *testing.T) {
	router := NewRouter()
	if router == nil {
		t.Fatal("NewRouter returned nil")
	}
}

func TestRouter_AddBridge(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	router.AddBridge(bridge)

	if len(router.bridges) != 1 {
		t.Errorf("Expected 1 bridge, got %d", len(router.bridges))
	}
}

func TestRouter_GetBridge(t *testing.T) {
	router := NewRouter()

	bridge1 := NewBridgeRuleSet("NATIONWIDE")
	bridge2 := NewBridgeRuleSet("REGIONAL")

	router.AddBridge(bridge1)
	router.AddBridge(bridge2)

	result := router.GetBridge("NATIONWIDE")
	if result == nil {
		t.Fatal("GetBridge returned nil for NATIONWIDE")
	}
	if result.Name != "NATIONWIDE" {
		t.Errorf("Expected bridge name NATIONWIDE, got %s", result.Name)
	}

	result = router.GetBridge("NONEXISTENT")
	if result != nil {
		t.Error("GetBridge should return nil for non-existent bridge")
	}
}

func TestRouter_RoutePacket(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule1 := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true}
	rule2 := &BridgeRule{System: "SYSTEM2", TGID: 3100, Timeslot: 1, Active: true}
	bridge.AddRule(rule1)
	bridge.AddRule(rule2)
	router.AddBridge(bridge)

	packet := RoutablePacket{DestinationID: 3100, Timeslot: 1, StreamID: 12345}

	targets := router.RoutePacket(packet, "SYSTEM1")

	if len(targets) != 1 {
		t.Fatalf("Expected 1 target, got %d", len(targets))
	}
	if targets[0] != "SYSTEM2" {
		t.Errorf("Expected target SYSTEM2, got %s", targets[0])
	}
}

func TestRouter_RoutePacket_NoMatch(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true}
	bridge.AddRule(rule)
	router.AddBridge(bridge)

	packet := RoutablePacket{DestinationID: 9999, Timeslot: 1, StreamID: 12345}

	targets := router.RoutePacket(packet, "SYSTEM1")

	if len(targets) != 0 {
		t.Errorf("Expected 0 targets, got %d", len(targets))
	}
}

func TestRouter_RoutePacket_DuplicateStream(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule1 := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true}
	rule2 := &BridgeRule{System: "SYSTEM2", TGID: 3100, Timeslot: 1, Active: true}
	bridge.AddRule(rule1)
	bridge.AddRule(rule2)
	router.AddBridge(bridge)

	packet := RoutablePacket{DestinationID: 3100, Timeslot: 1, StreamID: 12345}

	targets := router.RoutePacket(packet, "SYSTEM1")
	if len(targets) != 1 {
		t.Fatalf("Expected 1 target on first route, got %d", len(targets))
	}

	targets = router.RoutePacket(packet, "SYSTEM1")
	if len(targets) != 0 {
		t.Errorf("Expected 0 targets on duplicate, got %d", len(targets))
	}
}

func TestRouter_RoutePacket_StreamTerminator(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule1 := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true}
	rule2 := &BridgeRule{System: "SYSTEM2", TGID: 3100, Timeslot: 1, Active: true}
	bridge.AddRule(rule1)
	bridge.AddRule(rule2)
	router.AddBridge(bridge)

	packet := RoutablePacket{DestinationID: 3100, Timeslot: 1, StreamID: 12345}

	targets := router.RoutePacket(packet, "SYSTEM1")
	if len(targets) != 1 {
		t.Fatalf("Expected 1 target for header, got %d", len(targets))
	}

	packet.IsTerminator = true
	targets = router.RoutePacket(packet, "SYSTEM1")
	if len(targets) != 0 {
		t.Errorf("Expected 0 targets for duplicate in same call, got %d", len(targets))
	}

	if router.streamTracker.IsActive(12345) {
		t.Error("Stream should not be active after terminator")
	}
}

func TestRouter_ProcessActivation(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: false, On: []int{3100}}
	bridge.AddRule(rule)
	router.AddBridge(bridge)

	activated := router.ProcessActivation(3100)

	if len(activated) == 0 {
		t.Error("Expected some rules to be activated")
	}
	if !rule.Active {
		t.Error("Rule should be activated")
	}
}

func TestRouter_ProcessDeactivation(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true, Off: []int{3101}}
	bridge.AddRule(rule)
	router.AddBridge(bridge)

	deactivated := router.ProcessDeactivation(3101)

	if len(deactivated) == 0 {
		t.Error("Expected some rules to be deactivated")
	}
	if rule.Active {
		t.Error("Rule should be deactivated")
	}
}

func TestRouter_ApplyControl(t *testing.T) {
	router := NewRouter()
	defer router.Stop()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule := &BridgeRule{
		System:   "SYSTEM1",
		TGID:     3100,
		Timeslot: 1,
		Active:   false,
		On:       []int{3101},
		Off:      []int{3102},
		Timeout:  5,
	}
	bridge.AddRule(rule)
	router.AddBridge(bridge)

	// A call to the On code activates the rule and arms its auto-disable.
	router.ApplyControl(3101)
	if !rule.Matches(3100, 1) {
		t.Error("rule should be active after ApplyControl with its On TGID")
	}
	if !router.timers.HasTimer(rule) {
		t.Error("activated rule with Timeout should have an auto-disable timer")
	}

	// A call to the Off code deactivates it and cancels the timer.
	router.ApplyControl(3102)
	if rule.Matches(3100, 1) {
		t.Error("rule should be inactive after ApplyControl with its Off TGID")
	}
	if router.timers.HasTimer(rule) {
		t.Error("deactivated rule should have no pending auto-disable timer")
	}

	// Unrelated TGIDs change nothing.
	router.ApplyControl(9999)
	if rule.Matches(3100, 1) {
		t.Error("unrelated TGID should not toggle the rule")
	}
}

func TestRouter_GetActiveBridges(t *testing.T) {
	router := NewRouter()

	bridge1 := NewBridgeRuleSet("NATIONWIDE")
	bridge2 := NewBridgeRuleSet("REGIONAL")

	rule1 := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true}
	rule2 := &BridgeRule{System: "SYSTEM2", TGID: 3200, Timeslot: 1, Active: false}

	bridge1.AddRule(rule1)
	bridge2.AddRule(rule2)

	router.AddBridge(bridge1)
	router.AddBridge(bridge2)

	active := router.GetActiveBridges()

	if len(active) != 1 {
		t.Fatalf("Expected 1 active bridge, got %d", len(active))
	}
	if active[0].Name != "NATIONWIDE" {
		t.Errorf("Expected NATIONWIDE bridge, got %s", active[0].Name)
	}
}

func TestRouter_CleanupStreams(t *testing.T) {
	router := NewRouter()

	bridge := NewBridgeRuleSet("NATIONWIDE")
	rule := &BridgeRule{System: "SYSTEM1", TGID: 3100, Timeslot: 1, Active: true}
	bridge.AddRule(rule)
	router.AddBridge(bridge)

	packet := RoutablePacket{DestinationID: 3100, Timeslot: 1, StreamID: 12345}

	router.RoutePacket(packet, "SYSTEM1")

	if !router.streamTracker.IsActive(12345) {
		t.Error("Stream should be active")
	}

	router.CleanupStreams(0)

	if router.streamTracker.IsActive(12345) {
		t.Error("Stream should be cleaned up")
	}
}
