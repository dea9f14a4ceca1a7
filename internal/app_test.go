package internal

import "testing"

func TestRunOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    RunOptions
		wantErr bool
	}{
		{"defaults", RunOptions{}, false},
		{"simulation live", RunOptions{Env: "SIMULATION", Mode: ModeLive}, false},
		{"production backtest", RunOptions{Env: "PRODUCTION", Mode: ModeBacktest}, false},
		{"bad env", RunOptions{Env: "prod"}, true},
		{"bad mode", RunOptions{Mode: "paper"}, true},
	}
	for _, tc := range tests {
		err := tc.opts.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
