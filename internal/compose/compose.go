// Package compose turns a match decision into channel-specific notification
// intents.
//
// One intent is produced per enabled channel that has its contact field
// configured; a channel without contact details is left out rather than
// treated as an error. A local match that produces an SMS intent also
// produces a web (in-app) intent, whether or not the SMS later sends.
package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"theftalert/internal/domain"
)

// EmailSubject is the fixed subject line for alert emails.
const EmailSubject = "Vehicle Stolen Alert"

// WebTitle is the fixed title of in-app area alerts.
const WebTitle = "Stolen vehicle reported in your area"

const (
	defaultSMSMaxRunes      = 160
	defaultWhatsAppMaxRunes = 1024
	ellipsis                = "…"
)

// Options tunes message rendering.
type Options struct {
	// LinkBaseURL prefixes report links, e.g. https://example.org.
	LinkBaseURL      string
	SMSMaxRunes      int
	WhatsAppMaxRunes int
}

// Composer builds intents. The zero value is usable with relative links.
type Composer struct {
	opts Options
}

// New constructs a composer with defaults applied.
func New(opts Options) *Composer {
	if opts.SMSMaxRunes <= 0 {
		opts.SMSMaxRunes = defaultSMSMaxRunes
	}
	if opts.WhatsAppMaxRunes <= 0 {
		opts.WhatsAppMaxRunes = defaultWhatsAppMaxRunes
	}
	opts.LinkBaseURL = strings.TrimRight(strings.TrimSpace(opts.LinkBaseURL), "/")
	return &Composer{opts: opts}
}

// Compose returns the intents for decision. An unmatched decision yields none.
func (c *Composer) Compose(decision domain.MatchDecision, report domain.VehicleReport, user domain.User) []domain.NotificationIntent {
	if c == nil {
		c = New(Options{})
	}
	if !decision.Matched {
		return nil
	}

	settings := user.Settings
	link := c.ReportLink(report.ID)
	summary := describe(report)

	intents := make([]domain.NotificationIntent, 0, 4)
	base := domain.NotificationIntent{
		UserID:   user.ID,
		ReportID: report.ID,
		Reason:   decision.Reason,
	}

	if settings.Channels.Email && settings.HasEmail() {
		intent := base
		intent.Channel = domain.ChannelEmail
		intent.Payload = domain.Payload{
			Recipient: strings.TrimSpace(settings.Email),
			Subject:   EmailSubject,
			Body:      normalize(fmt.Sprintf("%s has been reported stolen.\n\nView the report: %s", summary, link)),
			Link:      link,
		}
		intents = append(intents, intent)
	}

	smsEligible := settings.Channels.SMS && settings.HasPhone()
	if smsEligible {
		intent := base
		intent.Channel = domain.ChannelSMS
		intent.Payload = domain.Payload{
			Recipient: strings.TrimSpace(settings.PhoneNumber),
			Body:      truncate(normalize(fmt.Sprintf("Stolen vehicle alert: %s. %s", summary, link)), c.opts.SMSMaxRunes),
			Link:      link,
		}
		intents = append(intents, intent)
	}

	if settings.Channels.WhatsApp && settings.HasPhone() {
		intent := base
		intent.Channel = domain.ChannelWhatsApp
		intent.Payload = domain.Payload{
			Recipient: strings.TrimSpace(settings.PhoneNumber),
			Body:      truncate(normalize(fmt.Sprintf("%s: %s. %s", EmailSubject, summary, link)), c.opts.WhatsAppMaxRunes),
			Link:      link,
		}
		intents = append(intents, intent)
	}

	if smsEligible && decision.Reason == domain.ReasonLocal {
		intent := base
		intent.Channel = domain.ChannelWeb
		intent.Payload = domain.Payload{
			Type:  domain.WebNotificationType,
			Title: WebTitle,
			Body:  normalize(summary + " was reported stolen."),
			Link:  link,
		}
		intents = append(intents, intent)
	}

	return intents
}

// ReportLink points at the report's detail view.
func (c *Composer) ReportLink(reportID string) string {
	path := "/reports/" + strings.TrimSpace(reportID)
	if c == nil || c.opts.LinkBaseURL == "" {
		return path
	}
	return c.opts.LinkBaseURL + path
}

// describe renders "<year> <make> <model>, plate <plate>[, near <locality>]".
func describe(report domain.VehicleReport) string {
	var b strings.Builder
	b.WriteString(report.Vehicle())
	if plate := strings.TrimSpace(report.LicensePlate); plate != "" {
		b.WriteString(", plate ")
		b.WriteString(strings.ToUpper(plate))
	}
	if locality := strings.TrimSpace(report.Location.Locality); locality != "" {
		b.WriteString(", near ")
		b.WriteString(locality)
	}
	return b.String()
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes-1]) + ellipsis
}
