package compose_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"theftalert/internal/compose"
	"theftalert/internal/domain"
)

func report() domain.VehicleReport {
	return domain.VehicleReport{
		ID:           "rep-42",
		Make:         "Ford",
		Model:        "Focus",
		Year:         2019,
		LicensePlate: "ab12 cde",
		Status:       domain.StatusActive,
		Location:     domain.Location{Lat: 51.50, Lng: -0.13, Locality: "Westminster"},
	}
}

func channelsOf(intents []domain.NotificationIntent) []domain.Channel {
	out := make([]domain.Channel, 0, len(intents))
	for _, i := range intents {
		out = append(out, i.Channel)
	}
	return out
}

func hasChannel(intents []domain.NotificationIntent, ch domain.Channel) bool {
	for _, i := range intents {
		if i.Channel == ch {
			return true
		}
	}
	return false
}

func TestComposeUnmatchedYieldsNothing(t *testing.T) {
	c := compose.New(compose.Options{})
	user := domain.User{ID: "u", Settings: domain.NotificationSettings{Email: "a@example.org", Channels: domain.ChannelPreferences{Email: true}}}
	if got := c.Compose(domain.MatchDecision{Matched: false}, report(), user); len(got) != 0 {
		t.Fatalf("expected no intents, got %v", channelsOf(got))
	}
}

func TestComposeLocalSMSAddsWeb(t *testing.T) {
	c := compose.New(compose.Options{LinkBaseURL: "https://alerts.example.org/"})
	user := domain.User{ID: "user-a", Settings: domain.NotificationSettings{
		LocalAlerts: true,
		PhoneNumber: "+447700900123",
		Channels:    domain.ChannelPreferences{SMS: true},
	}}
	decision := domain.MatchDecision{UserID: "user-a", ReportID: "rep-42", Matched: true, Reason: domain.ReasonLocal}

	intents := c.Compose(decision, report(), user)
	if len(intents) != 2 || !hasChannel(intents, domain.ChannelSMS) || !hasChannel(intents, domain.ChannelWeb) {
		t.Fatalf("expected sms + web intents, got %v", channelsOf(intents))
	}
	for _, intent := range intents {
		if intent.UserID != "user-a" || intent.ReportID != "rep-42" || intent.Reason != domain.ReasonLocal {
			t.Fatalf("intent not keyed correctly: %+v", intent)
		}
		if intent.Payload.Link != "https://alerts.example.org/reports/rep-42" {
			t.Fatalf("unexpected link %q", intent.Payload.Link)
		}
		if intent.Channel == domain.ChannelWeb {
			if intent.Payload.Type != domain.WebNotificationType {
				t.Fatalf("unexpected web type %q", intent.Payload.Type)
			}
			if intent.Payload.Title != compose.WebTitle {
				t.Fatalf("unexpected web title %q", intent.Payload.Title)
			}
		}
		if !strings.Contains(intent.Payload.Body, "2019 Ford Focus") || !strings.Contains(intent.Payload.Body, "AB12 CDE") {
			t.Fatalf("%s body missing vehicle or plate: %q", intent.Channel, intent.Payload.Body)
		}
	}
}

func TestComposeWebRequiresSMSAndLocal(t *testing.T) {
	c := compose.New(compose.Options{})
	noSMS := domain.User{ID: "u", Settings: domain.NotificationSettings{
		PhoneNumber: "+447700900123",
		Email:       "a@example.org",
		Channels:    domain.ChannelPreferences{Email: true, WhatsApp: true},
	}}
	local := domain.MatchDecision{Matched: true, Reason: domain.ReasonLocal}
	intents := c.Compose(local, report(), noSMS)
	if hasChannel(intents, domain.ChannelWeb) {
		t.Fatalf("web intent must not be produced without sms, got %v", channelsOf(intents))
	}
	if !hasChannel(intents, domain.ChannelEmail) || !hasChannel(intents, domain.ChannelWhatsApp) {
		t.Fatalf("expected email + whatsapp, got %v", channelsOf(intents))
	}

	withSMS := noSMS
	withSMS.Settings.Channels.SMS = true
	national := domain.MatchDecision{Matched: true, Reason: domain.ReasonNational}
	intents = c.Compose(national, report(), withSMS)
	if hasChannel(intents, domain.ChannelWeb) {
		t.Fatalf("national match must not produce web intent, got %v", channelsOf(intents))
	}
	if len(intents) != 3 {
		t.Fatalf("expected email, sms, whatsapp, got %v", channelsOf(intents))
	}
}

func TestComposeMissingContactExcludesChannel(t *testing.T) {
	c := compose.New(compose.Options{})
	user := domain.User{ID: "u", Settings: domain.NotificationSettings{
		LocalAlerts: true,
		Email:       "  ",
		Channels:    domain.ChannelPreferences{Email: true, SMS: true, WhatsApp: true},
	}}
	intents := c.Compose(domain.MatchDecision{Matched: true, Reason: domain.ReasonLocal}, report(), user)
	if len(intents) != 0 {
		t.Fatalf("expected contactless channels to be excluded, got %v", channelsOf(intents))
	}
}

func TestComposeMatchedWithoutChannels(t *testing.T) {
	c := compose.New(compose.Options{})
	user := domain.User{ID: "user-b", Settings: domain.NotificationSettings{NationalAlerts: true}}
	if got := c.Compose(domain.MatchDecision{Matched: true, Reason: domain.ReasonNational}, report(), user); len(got) != 0 {
		t.Fatalf("expected zero intents without channels, got %v", channelsOf(got))
	}
}

func TestComposeEmailSubjectAndRecipient(t *testing.T) {
	c := compose.New(compose.Options{})
	user := domain.User{ID: "u", Settings: domain.NotificationSettings{
		Email:    " owner@example.org ",
		Channels: domain.ChannelPreferences{Email: true},
	}}
	intents := c.Compose(domain.MatchDecision{Matched: true, Reason: domain.ReasonNational}, report(), user)
	if len(intents) != 1 {
		t.Fatalf("expected a single email intent, got %v", channelsOf(intents))
	}
	p := intents[0].Payload
	if p.Subject != "Vehicle Stolen Alert" || p.Recipient != "owner@example.org" {
		t.Fatalf("unexpected email payload %+v", p)
	}
	if p.Link != "/reports/rep-42" {
		t.Fatalf("expected relative link without base url, got %q", p.Link)
	}
}

func TestComposeSMSLengthBounded(t *testing.T) {
	c := compose.New(compose.Options{SMSMaxRunes: 40})
	r := report()
	r.Location.Locality = strings.Repeat("Ünterstraße ", 20)
	user := domain.User{ID: "u", Settings: domain.NotificationSettings{
		PhoneNumber: "+4915112345678",
		Channels:    domain.ChannelPreferences{SMS: true},
	}}
	intents := c.Compose(domain.MatchDecision{Matched: true, Reason: domain.ReasonNational}, r, user)
	if len(intents) != 1 {
		t.Fatalf("expected sms intent, got %v", channelsOf(intents))
	}
	body := intents[0].Payload.Body
	if n := utf8.RuneCountInString(body); n != 40 {
		t.Fatalf("expected body truncated to 40 runes, got %d: %q", n, body)
	}
	if !utf8.ValidString(body) || !strings.HasSuffix(body, "…") {
		t.Fatalf("expected valid truncated body, got %q", body)
	}
}
