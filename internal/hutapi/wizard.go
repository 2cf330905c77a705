package hutapi

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/hutbook/internal/domain/booking"
)

// wizardSignals is what the booking-wizard page tells us beyond the JSON
// availability: whether a waiting-list control is offered, whether the page
// surfaces other bookable dates, and whether we hit a challenge or got
// bounced back to the login form.
type wizardSignals struct {
	WaitlistOffered   bool
	AlternativeDates  []time.Time
	ChallengeRequired bool
	LoginForm         bool
}

func (c *Client) inspectWizard(ctx context.Context, hutID string) (wizardSignals, error) {
	status, body, err := c.do(ctx, "wizard", http.MethodGet, "/reservation/book-hut/"+hutID+"/wizard", "", nil, nil)
	if err != nil {
		return wizardSignals{}, booking.Failf("wizard", booking.ErrOther, "wizard request: %v", err)
	}
	if status != http.StatusOK {
		return wizardSignals{}, booking.Failf("wizard", booking.ErrUnexpectedPage, "wizard page failed (status=%d)", status)
	}
	return parseWizard(body)
}

var wizardDatePattern = regexp.MustCompile(`\b(\d{2})\.(\d{2})\.(\d{4})\b`)

func parseWizard(html []byte) (wizardSignals, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return wizardSignals{}, booking.Failf("wizard", booking.ErrUnexpectedPage, "wizard parse: %v", err)
	}

	var s wizardSignals

	s.ChallengeRequired = doc.Find(`.g-recaptcha, iframe[src*="captcha"], [data-test="two-factor"]`).Length() > 0
	s.LoginForm = doc.Find(`input[autocomplete="username"], form[action*="login"]`).Length() > 0

	doc.Find("button, a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		txt := strings.ToLower(strings.TrimSpace(sel.Text()))
		if strings.Contains(txt, "waiting list") || strings.Contains(txt, "warteliste") ||
			strings.Contains(txt, "lista d'attesa") || strings.Contains(txt, "liste d'attente") {
			if dis, ok := sel.Attr("aria-disabled"); !ok || dis != "true" {
				s.WaitlistOffered = true
				return false
			}
		}
		return true
	})

	// Enabled calendar cells carry their date in the class list. Disabled
	// cells are days we cannot start on, so they are skipped.
	doc.Find(`[class*="custom-date"]`).Each(func(_ int, sel *goquery.Selection) {
		if dis, ok := sel.Attr("aria-disabled"); ok && dis == "true" {
			return
		}
		class, _ := sel.Attr("class")
		m := wizardDatePattern.FindStringSubmatch(class)
		if m == nil {
			return
		}
		d, err := time.Parse("02.01.2006", m[0])
		if err != nil {
			return
		}
		if !containsDate(s.AlternativeDates, d) {
			s.AlternativeDates = append(s.AlternativeDates, d)
		}
	})

	return s, nil
}

// challenged spots security challenges in any response body, HTML or JSON.
func challenged(body []byte) bool {
	b := bytes.ToLower(body)
	return bytes.Contains(b, []byte("g-recaptcha")) ||
		bytes.Contains(b, []byte("captcha-challenge")) ||
		bytes.Contains(b, []byte(`"challenge_required"`))
}
