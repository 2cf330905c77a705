// Package hutapi talks to the hut-reservation service. It implements
// booking.Gateway over the service's JSON endpoints plus an inspection of the
// booking-wizard page for the signals the API does not expose (waiting-list
// control, surfaced alternative dates, security challenges).
package hutapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/example/hutbook/internal/domain/booking"
	"github.com/example/hutbook/internal/metrics"
)

const (
	DefaultBaseURL = "https://www.hut-reservation.org"

	defaultTimeout = 15 * time.Second
	defaultUA      = "Mozilla/5.0 (X11; Linux x86_64) hutbook/1.0"

	// How far around the requested check-in to look for alternative dates.
	alternativeWindowDays = 7
)

type Config struct {
	BaseURL  string
	Username string
	Password string

	// Provider selects the login flow: "default" (site login) or "sac"
	// (Swiss Alpine Club OAuth2 password grant).
	Provider string

	Timeout time.Duration
}

// Client is a per-attempt gateway: construct, use, close. It keeps the auth
// token and session cookies for exactly one attempt so a failed login never
// leaks into the next one.
type Client struct {
	hc   *http.Client
	cfg  Config
	base string

	token string

	mu   sync.Mutex
	last snapshotState
}

type snapshotState struct {
	Step   string          `json:"step"`
	Status int             `json:"status,omitempty"`
	Report *booking.Report `json:"report,omitempty"`
	Body   string          `json:"body,omitempty"`
}

var _ booking.Gateway = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("hutapi: username and password are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		hc:   &http.Client{Timeout: timeout, Jar: jar},
		cfg:  cfg,
		base: strings.TrimRight(base, "/"),
	}, nil
}

func (c *Client) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

// Login authenticates and stores the bearer token for the rest of the
// attempt. Challenges (CAPTCHA, second factor) surface as structural
// failures; they are never worth retrying.
func (c *Client) Login(ctx context.Context) error {
	if c.cfg.Provider == "sac" {
		return c.loginSAC(ctx)
	}

	body, _ := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	status, resp, err := c.do(ctx, "login", http.MethodPost, "/api/v1/users/login", "application/json", nil, body)
	if err != nil {
		return booking.Failf("login", booking.ErrOther, "login request: %v", err)
	}
	if challenged(resp) {
		return booking.Failf("login", booking.ErrChallengeRequired, "login response contains a security challenge")
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return booking.Failf("login", booking.ErrLoginFailed, "credentials rejected (status=%d): %s", status, apiMessage(resp))
	default:
		return booking.Failf("login", booking.ErrUnexpectedPage, "unexpected login response (status=%d)", status)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil || parsed.Token == "" {
		return booking.Failf("login", booking.ErrUnexpectedPage, "login response carries no token")
	}
	c.token = parsed.Token
	return nil
}

// CheckAvailability resolves the hut, reads the per-day availability and
// inspects the booking wizard, then reduces everything to a structured
// report. It never returns a plain error for service-side problems: those
// travel inside the report so the classifier sees them.
func (c *Client) CheckAvailability(ctx context.Context, stay booking.Stay) (booking.Report, error) {
	hutID := stay.HutID
	if hutID == "" {
		id, err := c.ResolveHut(ctx, stay.HutName)
		if err != nil {
			return booking.FailureReport("resolve_hut", err), nil
		}
		hutID = id
	}

	days, err := c.fetchAvailability(ctx, hutID)
	if err != nil {
		return booking.FailureReport("check_availability", err), nil
	}

	signals, err := c.inspectWizard(ctx, hutID)
	if err != nil {
		return booking.FailureReport("wizard", err), nil
	}
	if signals.ChallengeRequired {
		return booking.FailureReport("wizard",
			booking.Failf("wizard", booking.ErrChallengeRequired, "booking wizard presented a security challenge")), nil
	}
	if signals.LoginForm {
		return booking.FailureReport("wizard",
			booking.Failf("wizard", booking.ErrUnexpectedPage, "booking wizard bounced back to the login form")), nil
	}

	rep := booking.Report{
		Date:         stay.CheckIn,
		PartySize:    stay.PartySize,
		SpacesFree:   stayCapacity(days, stay.CheckIn, stay.Nights()),
		WaitlistOpen: signals.WaitlistOffered || waitlistFlagged(days, stay.CheckIn, stay.Nights()),
	}
	rep.AlternativeDates = alternativeStarts(days, stay.CheckIn, stay.Nights(), stay.PartySize)
	for _, d := range signals.AlternativeDates {
		if !containsDate(rep.AlternativeDates, d) {
			rep.AlternativeDates = append(rep.AlternativeDates, d)
		}
	}

	c.remember(snapshotState{Step: "check_availability", Report: &rep})
	return rep, nil
}

func (c *Client) SubmitReservation(ctx context.Context, req booking.Request) error {
	hutID := req.Stay.HutID
	if hutID == "" {
		id, err := c.ResolveHut(ctx, req.Stay.HutName)
		if err != nil {
			return err
		}
		hutID = id
	}

	payload := map[string]any{
		"hutId":          hutID,
		"arrival":        req.Stay.CheckIn.Format("2006-01-02"),
		"departure":      req.Stay.CheckOut.Format("2006-01-02"),
		"numberOfPeople": req.Stay.PartySize,
		"halfBoard":      req.Stay.HalfBoard,
		"roomType":       req.Stay.RoomType,
		"children":       req.Party.Children,
		"mountainGuides": req.Party.Guides,
		"vegetarians":    req.Party.Vegetarians,
		"lunchPackages":  req.Party.LunchPackages,
		"groupName":      req.Party.GroupName,
		"accessToHut":    req.Party.AccessRoute,
		"allergies":      req.Party.Allergies,
		"comments":       req.Party.Comments,
		"remarks":        req.Remarks,
		"contact": map[string]string{
			"firstName":  req.Contact.FirstName,
			"lastName":   req.Contact.LastName,
			"email":      req.Contact.Email,
			"phone":      req.Contact.Phone,
			"address":    req.Contact.AddressLine1,
			"city":       req.Contact.City,
			"postalCode": req.Contact.PostalCode,
			"country":    req.Contact.Country,
		},
		"acceptedTerms": true,
	}
	body, _ := json.Marshal(payload)

	status, resp, err := c.do(ctx, "submit", http.MethodPost, "/api/v1/reservation/create", "application/json", nil, body)
	if err != nil {
		return booking.Failf("submit", booking.ErrOther, "submit request: %v", err)
	}
	if challenged(resp) {
		return booking.Failf("submit", booking.ErrChallengeRequired, "submission blocked by a security challenge")
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return booking.Failf("submit", booking.ErrLoginFailed, "session expired during submission")
	default:
		return booking.Failf("submit", booking.ErrOther, "submit rejected (status=%d): %s", status, apiMessage(resp))
	}
}

func (c *Client) JoinWaitlist(ctx context.Context, req booking.Request) error {
	hutID := req.Stay.HutID
	if hutID == "" {
		id, err := c.ResolveHut(ctx, req.Stay.HutName)
		if err != nil {
			return err
		}
		hutID = id
	}

	body, _ := json.Marshal(map[string]any{
		"hutId":          hutID,
		"arrival":        req.Stay.CheckIn.Format("2006-01-02"),
		"departure":      req.Stay.CheckOut.Format("2006-01-02"),
		"numberOfPeople": req.Stay.PartySize,
		"email":          req.Contact.Email,
	})
	status, resp, err := c.do(ctx, "waitlist", http.MethodPost, "/api/v1/reservation/waitingList", "application/json", nil, body)
	if err != nil {
		return booking.Failf("join_waitlist", booking.ErrOther, "waitlist request: %v", err)
	}
	if status < 200 || status >= 300 {
		return booking.Failf("join_waitlist", booking.ErrOther, "waitlist join rejected (status=%d): %s", status, apiMessage(resp))
	}
	return nil
}

// Snapshot dumps the last observed state for the snapshot sink.
func (c *Client) Snapshot(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.MarshalIndent(c.last, "", "  ")
}

// ResolveHut maps the configured hut name to the service's hut ID. An exact
// name match wins; otherwise a unique case-insensitive substring match;
// anything else is ambiguous and fails with the candidate list.
func (c *Client) ResolveHut(ctx context.Context, name string) (string, error) {
	status, resp, err := c.do(ctx, "resolve_hut", http.MethodGet, "/api/v1/reservation/hutsList",
		"", map[string]string{"query": name}, nil)
	if err != nil {
		return "", booking.Failf("resolve_hut", booking.ErrOther, "hut search: %v", err)
	}
	if status != http.StatusOK {
		return "", booking.Failf("resolve_hut", booking.ErrUnexpectedPage, "hut search failed (status=%d)", status)
	}

	var huts []struct {
		ID   json.Number `json:"hutId"`
		Name string      `json:"hutName"`
	}
	if err := json.Unmarshal(resp, &huts); err != nil {
		return "", booking.Failf("resolve_hut", booking.ErrUnexpectedPage, "hut search payload: %v", err)
	}
	if len(huts) == 0 {
		return "", booking.Failf("resolve_hut", booking.ErrUnexpectedPage, "no hut matched %q", name)
	}

	var exact, contains []int
	for i, h := range huts {
		if h.Name == name {
			exact = append(exact, i)
		}
		if strings.Contains(strings.ToLower(h.Name), strings.ToLower(name)) {
			contains = append(contains, i)
		}
	}
	switch {
	case len(exact) == 1:
		return huts[exact[0]].ID.String(), nil
	case len(contains) == 1:
		return huts[contains[0]].ID.String(), nil
	}
	names := make([]string, 0, len(huts))
	for _, h := range huts {
		names = append(names, h.Name)
	}
	return "", booking.Failf("resolve_hut", booking.ErrUnexpectedPage,
		"ambiguous hut selection for %q, candidates: %s", name, strings.Join(names, ", "))
}

// --- availability internals ---

type availabilityDay struct {
	Date             string `json:"date"` // YYYY-MM-DD
	FreeBeds         int    `json:"freeBeds"`
	HutStatus        string `json:"hutStatus"` // SERVICED, UNSERVICED, CLOSED
	WaitingList      bool   `json:"waitingListAvailable"`
	TotalSleepPlaces int    `json:"totalSleepingPlaces"`
}

func (c *Client) fetchAvailability(ctx context.Context, hutID string) ([]availabilityDay, error) {
	status, resp, err := c.do(ctx, "availability", http.MethodGet, "/api/v1/reservation/getHutAvailability",
		"", map[string]string{"hutId": hutID}, nil)
	if err != nil {
		return nil, booking.Failf("check_availability", booking.ErrOther, "availability request: %v", err)
	}
	if status == http.StatusUnauthorized {
		return nil, booking.Failf("check_availability", booking.ErrLoginFailed, "availability requires a fresh login")
	}
	if status != http.StatusOK {
		return nil, booking.Failf("check_availability", booking.ErrUnexpectedPage, "availability failed (status=%d)", status)
	}
	var days []availabilityDay
	if err := json.Unmarshal(resp, &days); err != nil {
		return nil, booking.Failf("check_availability", booking.ErrUnexpectedPage, "availability payload: %v", err)
	}
	return days, nil
}

// stayCapacity is the bottleneck capacity across the stay's nights: the beds
// a party needs every night. Closed or missing days count as zero.
func stayCapacity(days []availabilityDay, checkIn time.Time, nights int) int {
	if nights < 1 {
		nights = 1
	}
	byDate := indexDays(days)
	capacity := -1
	for i := 0; i < nights; i++ {
		d, ok := byDate[dateKey(checkIn.AddDate(0, 0, i))]
		if !ok || d.HutStatus == "CLOSED" {
			return 0
		}
		if capacity < 0 || d.FreeBeds < capacity {
			capacity = d.FreeBeds
		}
	}
	if capacity < 0 {
		return 0
	}
	return capacity
}

func waitlistFlagged(days []availabilityDay, checkIn time.Time, nights int) bool {
	if nights < 1 {
		nights = 1
	}
	byDate := indexDays(days)
	for i := 0; i < nights; i++ {
		if d, ok := byDate[dateKey(checkIn.AddDate(0, 0, i))]; ok && d.WaitingList {
			return true
		}
	}
	return false
}

// alternativeStarts lists other check-in dates near the requested one where
// the whole stay fits.
func alternativeStarts(days []availabilityDay, checkIn time.Time, nights, party int) []time.Time {
	var out []time.Time
	for off := -alternativeWindowDays; off <= alternativeWindowDays; off++ {
		if off == 0 {
			continue
		}
		start := checkIn.AddDate(0, 0, off)
		if stayCapacity(days, start, nights) >= party {
			out = append(out, start)
		}
	}
	return out
}

func indexDays(days []availabilityDay) map[string]availabilityDay {
	m := make(map[string]availabilityDay, len(days))
	for _, d := range days {
		m[d.Date] = d
	}
	return m
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func containsDate(dates []time.Time, d time.Time) bool {
	for _, x := range dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// --- transport ---

func (c *Client) do(ctx context.Context, op, method, path, contentType string, query map[string]string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("user-agent", defaultUA)
	req.Header.Set("accept", "application/json, text/html")
	req.Header.Set("origin", c.base)
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}
	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(op, "error").Inc()
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(op, "error").Inc()
		return res.StatusCode, nil, err
	}
	metrics.GatewayRequestsTotal.WithLabelValues(op, fmt.Sprintf("%dxx", res.StatusCode/100)).Inc()
	c.remember(snapshotState{Step: op, Status: res.StatusCode, Body: clip(string(b), 4096)})
	return res.StatusCode, b, nil
}

func (c *Client) remember(st snapshotState) {
	c.mu.Lock()
	c.last = st
	c.mu.Unlock()
}

func apiMessage(body []byte) string {
	var r struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &r); err == nil && r.Message != "" {
		return r.Message
	}
	return clip(string(body), 200)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
