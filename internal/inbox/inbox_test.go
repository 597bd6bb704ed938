package inbox_test

import (
	"context"
	"testing"

	"theftalert/internal/domain"
	"theftalert/internal/inbox"
	"theftalert/internal/testsupport"
)

func webIntent(reportID, userID string) domain.NotificationIntent {
	return domain.NotificationIntent{
		UserID:   userID,
		ReportID: reportID,
		Channel:  domain.ChannelWeb,
		Reason:   domain.ReasonLocal,
		Payload: domain.Payload{
			Title: "Stolen vehicle reported in your area",
			Body:  "2019 Ford Focus, plate AB12 CDE, near Charing Cross",
			Link:  "https://alerts.example.test/reports/" + reportID,
			Type:  domain.WebNotificationType,
		},
	}
}

func TestNotificationIDIsStable(t *testing.T) {
	a := inbox.NotificationID(domain.Key{ReportID: "r-1", UserID: "u-1", Channel: domain.ChannelWeb})
	b := inbox.NotificationID(domain.Key{ReportID: "r-1", UserID: "u-1", Channel: domain.ChannelWeb})
	c := inbox.NotificationID(domain.Key{ReportID: "r-1", UserID: "u-2", Channel: domain.ChannelWeb})
	if a != b {
		t.Fatalf("ids differ for same key: %s vs %s", a, b)
	}
	if a == c {
		t.Fatal("ids collide for different users")
	}
}

func TestInboxDeliverIsIdempotent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	box := inbox.New(st)
	ctx := context.Background()

	created, err := box.Deliver(ctx, webIntent("r-1", "u-1"))
	if err != nil || !created {
		t.Fatalf("first deliver = %v, %v", created, err)
	}
	created, err = box.Deliver(ctx, webIntent("r-1", "u-1"))
	if err != nil || created {
		t.Fatalf("second deliver = %v, %v", created, err)
	}

	items, err := box.List(ctx, "u-1", false, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	got := items[0]
	if got.Type != domain.WebNotificationType || got.IsRead {
		t.Fatalf("notification = %+v", got)
	}
	if got.Link != "https://alerts.example.test/reports/r-1" {
		t.Fatalf("link = %q", got.Link)
	}

	if ok, err := box.MarkRead(ctx, got.ID); err != nil || !ok {
		t.Fatalf("MarkRead = %v, %v", ok, err)
	}
	unread, _ := box.List(ctx, "u-1", true, 0)
	if len(unread) != 0 {
		t.Fatalf("unread = %d", len(unread))
	}
}

func TestDeliverRejectsOtherChannels(t *testing.T) {
	intent := webIntent("r-1", "u-1")
	intent.Channel = domain.ChannelSMS
	if _, err := inbox.NewMemory().Deliver(context.Background(), intent); err == nil {
		t.Fatal("expected error for non-web intent")
	}
}

func TestMemoryDeduplicates(t *testing.T) {
	m := inbox.NewMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := m.Deliver(ctx, webIntent("r-1", "u-1")); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}
	if _, err := m.Deliver(ctx, webIntent("r-1", "u-2")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	all := m.All()
	if len(all) != 2 || all[0].UserID != "u-1" || all[1].UserID != "u-2" {
		t.Fatalf("all = %+v", all)
	}
}
