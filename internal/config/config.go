package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/hutbook/internal/domain/booking"
)

const (
	ProviderDefault = "default"
	ProviderSAC     = "sac"

	defaultIntervalSeconds = 300
	defaultJitterSeconds   = 30
	defaultPauseSeconds    = 60
)

// RunConfig is the validated, immutable configuration for one run. Loaded
// once per process; never mutated afterwards.
type RunConfig struct {
	LoginProvider string

	Stay    booking.Stay
	Party   booking.Party
	Contact booking.Contact
	Remarks string

	Policy booking.Policy
	Poll   PollConfig
	Mode   ModeConfig
}

// PollConfig governs the retry scheduler.
type PollConfig struct {
	Interval    time.Duration
	Jitter      time.Duration
	MaxAttempts int // 0 = unbounded
}

// ModeConfig carries the execution-mode flags. The CLI may override any of
// them before the first attempt.
type ModeConfig struct {
	DryRun         bool
	ConfirmSubmit  bool
	PauseAtPayment bool
	Pause          time.Duration
}

type fileConfig struct {
	LoginProvider string `yaml:"login_provider"`
	HutName       string `yaml:"hut_name"`
	CheckIn       string `yaml:"check_in"`
	CheckOut      string `yaml:"check_out"`
	PartySize     int    `yaml:"party_size"`
	HalfBoard     *bool  `yaml:"half_board"`
	AcceptTerms   *bool  `yaml:"accept_terms"`

	AllowAlternativeDates bool `yaml:"allow_alternative_dates"`
	AllowWaitlist         bool `yaml:"allow_waitlist"`
	AutoPollIfFull        bool `yaml:"auto_poll_if_full"`

	ChildrenCount   int    `yaml:"children_count"`
	GuidesCount     int    `yaml:"guides_count"`
	VegetarianCount int    `yaml:"vegetarian_count"`
	LunchPackages   int    `yaml:"lunch_packages"`
	GroupName       string `yaml:"group_name"`
	AccessToHut     string `yaml:"access_to_hut"`
	Allergies       string `yaml:"allergies"`
	Comments        string `yaml:"comments"`

	Contact struct {
		FirstName    string `yaml:"first_name"`
		LastName     string `yaml:"last_name"`
		Email        string `yaml:"email"`
		Phone        string `yaml:"phone"`
		AddressLine1 string `yaml:"address_line1"`
		City         string `yaml:"city"`
		PostalCode   string `yaml:"postal_code"`
		Country      string `yaml:"country"`
	} `yaml:"contact"`

	Preferences struct {
		RoomType string `yaml:"room_type"`
		Remarks  string `yaml:"remarks"`
	} `yaml:"preferences"`

	Poll struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		JitterSeconds   int `yaml:"jitter_seconds"`
		MaxAttempts     int `yaml:"max_attempts"`
	} `yaml:"poll"`

	Mode struct {
		DryRun         bool `yaml:"dry_run"`
		ConfirmSubmit  bool `yaml:"confirm_submit"`
		PauseAtPayment bool `yaml:"pause_at_payment"`
		PauseSeconds   int  `yaml:"pause_seconds"`
	} `yaml:"mode"`
}

// Load reads and validates a stay configuration file.
func Load(path string) (RunConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse validates raw YAML into a RunConfig.
func Parse(b []byte) (RunConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return RunConfig{}, fmt.Errorf("parse config: %w", err)
	}

	provider := fc.LoginProvider
	if provider == "" {
		provider = ProviderDefault
	}
	if provider != ProviderDefault && provider != ProviderSAC {
		return RunConfig{}, fmt.Errorf("login_provider must be %q or %q", ProviderDefault, ProviderSAC)
	}

	if err := requireStr("hut_name", fc.HutName); err != nil {
		return RunConfig{}, err
	}
	checkIn, err := parseDate("check_in", fc.CheckIn)
	if err != nil {
		return RunConfig{}, err
	}
	checkOut, err := parseDate("check_out", fc.CheckOut)
	if err != nil {
		return RunConfig{}, err
	}
	if !checkOut.After(checkIn) {
		return RunConfig{}, fmt.Errorf("check_out must be after check_in")
	}
	if fc.PartySize < 1 {
		return RunConfig{}, fmt.Errorf("party_size must be >= 1")
	}
	if fc.HalfBoard == nil {
		return RunConfig{}, fmt.Errorf("half_board is required")
	}
	if fc.AcceptTerms == nil || !*fc.AcceptTerms {
		return RunConfig{}, fmt.Errorf("accept_terms must be explicitly true to proceed")
	}

	for _, c := range []struct {
		key string
		val int
	}{
		{"children_count", fc.ChildrenCount},
		{"guides_count", fc.GuidesCount},
		{"vegetarian_count", fc.VegetarianCount},
		{"lunch_packages", fc.LunchPackages},
	} {
		if c.val < 0 {
			return RunConfig{}, fmt.Errorf("%s must be >= 0", c.key)
		}
	}

	for _, c := range []struct {
		key string
		val string
	}{
		{"contact.first_name", fc.Contact.FirstName},
		{"contact.last_name", fc.Contact.LastName},
		{"contact.email", fc.Contact.Email},
		{"contact.phone", fc.Contact.Phone},
		{"contact.address_line1", fc.Contact.AddressLine1},
		{"contact.city", fc.Contact.City},
		{"contact.postal_code", fc.Contact.PostalCode},
		{"contact.country", fc.Contact.Country},
	} {
		if err := requireStr(c.key, c.val); err != nil {
			return RunConfig{}, err
		}
	}

	interval := fc.Poll.IntervalSeconds
	if interval == 0 {
		interval = defaultIntervalSeconds
	}
	if interval < 1 {
		return RunConfig{}, fmt.Errorf("poll.interval_seconds must be >= 1")
	}
	jitter := fc.Poll.JitterSeconds
	if jitter == 0 {
		jitter = defaultJitterSeconds
	}
	if jitter < 0 {
		return RunConfig{}, fmt.Errorf("poll.jitter_seconds must be >= 0")
	}
	if fc.Poll.MaxAttempts < 0 {
		return RunConfig{}, fmt.Errorf("poll.max_attempts must be >= 0")
	}
	pauseSec := fc.Mode.PauseSeconds
	if pauseSec == 0 {
		pauseSec = defaultPauseSeconds
	}
	if pauseSec < 0 {
		return RunConfig{}, fmt.Errorf("mode.pause_seconds must be >= 0")
	}

	cfg := RunConfig{
		LoginProvider: provider,
		Stay: booking.Stay{
			HutName:   fc.HutName,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			PartySize: fc.PartySize,
			RoomType:  fc.Preferences.RoomType,
			HalfBoard: *fc.HalfBoard,
		},
		Party: booking.Party{
			Children:      fc.ChildrenCount,
			Guides:        fc.GuidesCount,
			Vegetarians:   fc.VegetarianCount,
			LunchPackages: fc.LunchPackages,
			GroupName:     fc.GroupName,
			AccessRoute:   fc.AccessToHut,
			Allergies:     fc.Allergies,
			Comments:      fc.Comments,
		},
		Contact: booking.Contact{
			FirstName:    fc.Contact.FirstName,
			LastName:     fc.Contact.LastName,
			Email:        fc.Contact.Email,
			Phone:        fc.Contact.Phone,
			AddressLine1: fc.Contact.AddressLine1,
			City:         fc.Contact.City,
			PostalCode:   fc.Contact.PostalCode,
			Country:      fc.Contact.Country,
		},
		Remarks: fc.Preferences.Remarks,
		Policy: booking.Policy{
			AllowAlternativeDates: fc.AllowAlternativeDates,
			AllowWaitlist:         fc.AllowWaitlist,
			AutoPollIfFull:        fc.AutoPollIfFull,
		},
		Poll: PollConfig{
			Interval:    time.Duration(interval) * time.Second,
			Jitter:      time.Duration(jitter) * time.Second,
			MaxAttempts: fc.Poll.MaxAttempts,
		},
		Mode: ModeConfig{
			DryRun:         fc.Mode.DryRun,
			ConfirmSubmit:  fc.Mode.ConfirmSubmit,
			PauseAtPayment: fc.Mode.PauseAtPayment,
			Pause:          time.Duration(pauseSec) * time.Second,
		},
	}
	return cfg, nil
}

// Request assembles the gateway submission request from the config.
func (c RunConfig) Request() booking.Request {
	return booking.Request{
		Stay:    c.Stay,
		Party:   c.Party,
		Contact: c.Contact,
		Remarks: c.Remarks,
	}
}

func requireStr(key, val string) error {
	if val == "" {
		return fmt.Errorf("%s is required", key)
	}
	return nil
}

func parseDate(key, val string) (time.Time, error) {
	if val == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be in YYYY-MM-DD format", key)
	}
	return t, nil
}
