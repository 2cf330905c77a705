package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
login_provider: sac
hut_name: Capanna Cristallina
check_in: "2026-03-06"
check_out: "2026-03-08"
party_size: 4
half_board: true
accept_terms: true
allow_alternative_dates: true
allow_waitlist: true
auto_poll_if_full: true
vegetarian_count: 2
contact:
  first_name: Anna
  last_name: Rossi
  email: anna@example.org
  phone: "+41791234567"
  address_line1: Via Nassa 5
  city: Lugano
  postal_code: "6900"
  country: Switzerland
preferences:
  room_type: dorm
  remarks: near the window if possible
poll:
  interval_seconds: 120
  jitter_seconds: 15
  max_attempts: 10
mode:
  dry_run: true
  pause_seconds: 30
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LoginProvider != ProviderSAC {
		t.Errorf("provider = %q", cfg.LoginProvider)
	}
	if cfg.Stay.HutName != "Capanna Cristallina" || cfg.Stay.PartySize != 4 {
		t.Errorf("stay = %+v", cfg.Stay)
	}
	if got := cfg.Stay.CheckIn.Format("2006-01-02"); got != "2026-03-06" {
		t.Errorf("check_in = %s", got)
	}
	if cfg.Stay.Nights() != 2 {
		t.Errorf("nights = %d, want 2", cfg.Stay.Nights())
	}
	if !cfg.Policy.AllowAlternativeDates || !cfg.Policy.AllowWaitlist || !cfg.Policy.AutoPollIfFull {
		t.Errorf("policy = %+v", cfg.Policy)
	}
	if cfg.Poll.Interval != 120*time.Second || cfg.Poll.Jitter != 15*time.Second || cfg.Poll.MaxAttempts != 10 {
		t.Errorf("poll = %+v", cfg.Poll)
	}
	if !cfg.Mode.DryRun || cfg.Mode.Pause != 30*time.Second {
		t.Errorf("mode = %+v", cfg.Mode)
	}
	if cfg.Party.Vegetarians != 2 {
		t.Errorf("party = %+v", cfg.Party)
	}
	if cfg.Remarks != "near the window if possible" {
		t.Errorf("remarks = %q", cfg.Remarks)
	}
}

func TestParseDefaults(t *testing.T) {
	minimal := strings.NewReplacer(
		"login_provider: sac\n", "",
		"poll:\n  interval_seconds: 120\n  jitter_seconds: 15\n  max_attempts: 10\n", "",
		"mode:\n  dry_run: true\n  pause_seconds: 30\n", "",
	).Replace(validYAML)

	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LoginProvider != ProviderDefault {
		t.Errorf("provider = %q, want default", cfg.LoginProvider)
	}
	if cfg.Poll.Interval != 300*time.Second || cfg.Poll.Jitter != 30*time.Second || cfg.Poll.MaxAttempts != 0 {
		t.Errorf("poll defaults = %+v", cfg.Poll)
	}
	if cfg.Mode.DryRun || cfg.Mode.Pause != 60*time.Second {
		t.Errorf("mode defaults = %+v", cfg.Mode)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func(string) string
		wantErr string
	}{
		{
			"checkout before checkin",
			func(s string) string { return strings.Replace(s, `check_out: "2026-03-08"`, `check_out: "2026-03-05"`, 1) },
			"check_out must be after check_in",
		},
		{
			"terms not accepted",
			func(s string) string { return strings.Replace(s, "accept_terms: true", "accept_terms: false", 1) },
			"accept_terms",
		},
		{
			"terms missing",
			func(s string) string { return strings.Replace(s, "accept_terms: true\n", "", 1) },
			"accept_terms",
		},
		{
			"half_board missing",
			func(s string) string { return strings.Replace(s, "half_board: true\n", "", 1) },
			"half_board",
		},
		{
			"zero party",
			func(s string) string { return strings.Replace(s, "party_size: 4", "party_size: 0", 1) },
			"party_size",
		},
		{
			"bad provider",
			func(s string) string { return strings.Replace(s, "login_provider: sac", "login_provider: google", 1) },
			"login_provider",
		},
		{
			"bad date format",
			func(s string) string { return strings.Replace(s, `check_in: "2026-03-06"`, `check_in: "06.03.2026"`, 1) },
			"YYYY-MM-DD",
		},
		{
			"missing contact email",
			func(s string) string { return strings.Replace(s, "  email: anna@example.org\n", "", 1) },
			"contact.email",
		},
		{
			"negative jitter",
			func(s string) string { return strings.Replace(s, "jitter_seconds: 15", "jitter_seconds: -1", 1) },
			"jitter_seconds",
		},
		{
			"negative children",
			func(s string) string { return s + "\nchildren_count: -2\n" },
			"children_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mangle(validYAML)))
			if err == nil {
				t.Fatal("Parse accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
