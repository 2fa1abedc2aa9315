package presence

import "testing"

func TestStateSeverityOrder(t *testing.T) {
	order := []State{StateExecuting, StateActive, StateIdle, StateOffline}
	for i := 1; i < len(order); i++ {
		if order[i-1].Severity() >= order[i].Severity() {
			t.Errorf("%s severity %d not below %s severity %d",
				order[i-1], order[i-1].Severity(), order[i], order[i].Severity())
		}
	}
	if State("bogus").Severity() != StateOffline.Severity() {
		t.Error("unknown states should sort with offline")
	}
}

func TestStateDisplayMapping(t *testing.T) {
	tests := []struct {
		state   State
		color   string
		pulse   bool
		healthy bool
	}{
		{StateExecuting, "blue", true, true},
		{StateActive, "green", true, true},
		{StateIdle, "amber", false, false},
		{StateOffline, "gray", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.ColorClass(); got != tt.color {
				t.Errorf("ColorClass() = %q, want %q", got, tt.color)
			}
			if got := tt.state.Pulse(); got != tt.pulse {
				t.Errorf("Pulse() = %v, want %v", got, tt.pulse)
			}
			if got := tt.state.IsHealthy(); got != tt.healthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.healthy)
			}
		})
	}
}
