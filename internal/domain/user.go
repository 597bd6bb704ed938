package domain

import (
	"strings"

	"theftalert/internal/geo"
)

// ChannelPreferences records which external channels a user opted into.
type ChannelPreferences struct {
	Email    bool `json:"email" yaml:"email"`
	SMS      bool `json:"sms" yaml:"sms"`
	WhatsApp bool `json:"whatsapp" yaml:"whatsapp"`
}

// NotificationSettings is the per-user alerting configuration.
type NotificationSettings struct {
	NationalAlerts bool               `json:"nationalAlerts" yaml:"national_alerts"`
	LocalAlerts    bool               `json:"localAlerts" yaml:"local_alerts"`
	Email          string             `json:"email,omitempty" yaml:"email,omitempty"`
	PhoneNumber    string             `json:"phoneNumber,omitempty" yaml:"phone_number,omitempty"`
	Channels       ChannelPreferences `json:"notificationChannels" yaml:"channels"`
}

// HasEmail reports whether an email address is configured.
func (s NotificationSettings) HasEmail() bool {
	return strings.TrimSpace(s.Email) != ""
}

// HasPhone reports whether a phone number is configured.
func (s NotificationSettings) HasPhone() bool {
	return strings.TrimSpace(s.PhoneNumber) != ""
}

// GeofenceRegion is a named region owned by a user. The name is unique per
// user.
type GeofenceRegion struct {
	Name string `json:"name" yaml:"name"`
	geo.Region `yaml:",inline"`
}

// User is one directory entry as seen by the engine.
type User struct {
	ID          string               `json:"id" yaml:"id"`
	DisplayName string               `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	Settings    NotificationSettings `json:"settings" yaml:"settings"`
	Regions     []GeofenceRegion     `json:"regions,omitempty" yaml:"regions,omitempty"`
}
