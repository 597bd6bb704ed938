package domain

import (
	"fmt"
	"time"
)

// Channel names a notification delivery path.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// Channels lists every channel in a stable order.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelWeb}

// WebNotificationType tags in-app records created for area alerts.
const WebNotificationType = "VEHICLE_SIGHTING_AREA"

// Payload is the channel-specific content of an intent.
type Payload struct {
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body"`
	Link      string `json:"link,omitempty"`
	Type      string `json:"type,omitempty"`
}

// NotificationIntent is a composed, not yet executed notification.
type NotificationIntent struct {
	UserID   string  `json:"userId"`
	ReportID string  `json:"reportId"`
	Channel  Channel `json:"channel"`
	Reason   Reason  `json:"reason"`
	Payload  Payload `json:"payload"`
}

// Key returns the idempotency key for the intent.
func (i NotificationIntent) Key() Key {
	return Key{ReportID: i.ReportID, UserID: i.UserID, Channel: i.Channel}
}

// Key identifies one unit of externally visible work.
type Key struct {
	ReportID string
	UserID   string
	Channel  Channel
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ReportID, k.UserID, k.Channel)
}

// WebNotification is the persisted in-app record for a web intent.
type WebNotification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ReportID  string    `json:"reportId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
