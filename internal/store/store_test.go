package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"theftalert/internal/domain"
	"theftalert/internal/geo"
	"theftalert/internal/store"
	"theftalert/internal/testsupport"
)

func testKey(channel domain.Channel) domain.Key {
	return domain.Key{ReportID: "r-1", UserID: "u-1", Channel: channel}
}

func TestOpenReopensExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	if reopened.Path() != cfg.DatabasePath() {
		t.Fatalf("path = %q, want %q", reopened.Path(), cfg.DatabasePath())
	}
	if err := reopened.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	version, err := reopened.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 1 {
		t.Fatalf("schema version = %d, want 1", version)
	}
}

func TestConcurrentOpenOfFreshDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := store.OpenPath(cfg.DatabasePath())
			if err != nil {
				errs <- err
				return
			}
			errs <- st.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent open: %v", err)
		}
	}
}

func TestClaimCompleteDuplicate(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	key := testKey(domain.ChannelSMS)

	status, token, err := st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}
	if status != store.ClaimAcquired || token == "" {
		t.Fatalf("first claim = %s/%q", status, token)
	}

	status, _, err = st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}
	if status != store.ClaimInFlight {
		t.Fatalf("second claim = %s, want in_flight", status)
	}

	if err := st.CompleteKey(ctx, key, token, "sent"); err != nil {
		t.Fatalf("CompleteKey: %v", err)
	}
	status, _, err = st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}
	if status != store.ClaimDuplicate {
		t.Fatalf("claim after complete = %s, want duplicate", status)
	}

	rec, err := st.GetKey(ctx, key)
	if err != nil || rec == nil {
		t.Fatalf("GetKey: %v %v", rec, err)
	}
	if rec.State != "completed" || rec.Result != "sent" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestReleaseAllowsReclaim(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	key := testKey(domain.ChannelEmail)

	_, token, err := st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}
	if err := st.ReleaseKey(ctx, key, token); err != nil {
		t.Fatalf("ReleaseKey: %v", err)
	}
	status, _, err := st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}
	if status != store.ClaimAcquired {
		t.Fatalf("claim after release = %s", status)
	}
}

func TestExpiredLeaseIsReclaimable(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	key := testKey(domain.ChannelWhatsApp)

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	now := base
	st.SetClock(func() time.Time { return now })

	_, staleToken, err := st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}

	now = base.Add(2 * time.Minute)
	status, freshToken, err := st.ClaimKey(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}
	if status != store.ClaimAcquired {
		t.Fatalf("claim after lease expiry = %s", status)
	}

	if err := st.CompleteKey(ctx, key, staleToken, "sent"); !errors.Is(err, store.ErrClaimLost) {
		t.Fatalf("stale completion err = %v, want ErrClaimLost", err)
	}
	if err := st.CompleteKey(ctx, key, freshToken, "sent"); err != nil {
		t.Fatalf("fresh completion: %v", err)
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	key := testKey(domain.ChannelSMS)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := st.ClaimKey(ctx, key, time.Minute)
			if err != nil {
				t.Errorf("ClaimKey: %v", err)
				return
			}
			if status == store.ClaimAcquired {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
}

func TestLedgerStatsAndPrune(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := base
	st.SetClock(func() time.Time { return now })

	for i, result := range []string{"sent", "sent", "failed"} {
		key := domain.Key{ReportID: "r-old", UserID: fmt.Sprintf("u-%d", i), Channel: domain.ChannelEmail}
		_, token, err := st.ClaimKey(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("ClaimKey: %v", err)
		}
		if err := st.CompleteKey(ctx, key, token, result); err != nil {
			t.Fatalf("CompleteKey: %v", err)
		}
	}
	if _, _, err := st.ClaimKey(ctx, domain.Key{ReportID: "r-old", UserID: "u-9", Channel: domain.ChannelSMS}, time.Minute); err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}

	now = base.Add(48 * time.Hour)
	if _, _, err := st.ClaimKey(ctx, domain.Key{ReportID: "r-new", UserID: "u-1", Channel: domain.ChannelSMS}, time.Minute); err != nil {
		t.Fatalf("ClaimKey: %v", err)
	}

	stats, err := st.LedgerStats(ctx)
	if err != nil {
		t.Fatalf("LedgerStats: %v", err)
	}
	if stats.Total != 5 || stats.Claimed != 2 || stats.Expired != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Results["sent"] != 2 || stats.Results["failed"] != 1 {
		t.Fatalf("results = %v", stats.Results)
	}

	removed, err := st.PruneKeys(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("PruneKeys: %v", err)
	}
	if removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}
}

func TestWebNotificationsInsertOnce(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	n := domain.WebNotification{
		ID:       "n-1",
		UserID:   "u-1",
		ReportID: "r-1",
		Type:     domain.WebNotificationType,
		Title:    "Stolen vehicle reported in your area",
		Message:  "2019 Ford Focus",
		Link:     "https://alerts.example.test/reports/r-1",
	}
	created, err := st.InsertWebNotification(ctx, n)
	if err != nil || !created {
		t.Fatalf("first insert = %v, %v", created, err)
	}
	created, err = st.InsertWebNotification(ctx, n)
	if err != nil || created {
		t.Fatalf("second insert = %v, %v", created, err)
	}

	count, err := st.CountWebNotifications(ctx, "r-1")
	if err != nil || count != 1 {
		t.Fatalf("count = %d, %v", count, err)
	}

	list, err := st.ListWebNotifications(ctx, store.NotificationFilter{UserID: "u-1", UnreadOnly: true})
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}
	if list[0].Type != domain.WebNotificationType || list[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected notification %+v", list[0])
	}

	found, err := st.MarkWebNotificationRead(ctx, "n-1")
	if err != nil || !found {
		t.Fatalf("mark read = %v, %v", found, err)
	}
	list, err = st.ListWebNotifications(ctx, store.NotificationFilter{UserID: "u-1", UnreadOnly: true})
	if err != nil || len(list) != 0 {
		t.Fatalf("unread after mark = %v, %v", list, err)
	}
	if found, _ := st.MarkWebNotificationRead(ctx, "missing"); found {
		t.Fatal("expected missing notification to report false")
	}
}

func TestScanUsersStreamsRegions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	poly := domain.GeofenceRegion{Name: "work", Region: geo.Polygon(
		geo.Point{Lat: 51.50, Lng: -0.14},
		geo.Point{Lat: 51.50, Lng: -0.11},
		geo.Point{Lat: 51.52, Lng: -0.11},
	)}
	local := testsupport.LocalUser("u-b")
	local.Regions = append(local.Regions, poly)
	testsupport.SeedUsers(t, st, testsupport.NationalUser("u-a"), local)

	var got []domain.User
	if err := st.ScanUsers(ctx, func(u domain.User) error {
		got = append(got, u)
		return nil
	}); err != nil {
		t.Fatalf("ScanUsers: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u-a" || got[1].ID != "u-b" {
		t.Fatalf("users = %+v", got)
	}
	if !got[0].Settings.NationalAlerts || len(got[0].Regions) != 0 {
		t.Fatalf("national user = %+v", got[0])
	}
	b := got[1]
	if !b.Settings.Channels.SMS || !b.Settings.Channels.Email || b.Settings.PhoneNumber == "" {
		t.Fatalf("local user settings = %+v", b.Settings)
	}
	if len(b.Regions) != 2 || b.Regions[0].Name != "home" || b.Regions[1].Name != "work" {
		t.Fatalf("regions = %+v", b.Regions)
	}
	if b.Regions[0].Shape != geo.ShapeCircle || b.Regions[0].RadiusMeters != 2000 {
		t.Fatalf("circle = %+v", b.Regions[0])
	}
	if len(b.Regions[1].Vertices) != 3 {
		t.Fatalf("polygon vertices = %+v", b.Regions[1].Vertices)
	}
}

func TestScanUsersPagesAndStops(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	const total = 300
	for i := 0; i < total; i++ {
		testsupport.SeedUsers(t, st, testsupport.LocalUser(fmt.Sprintf("u-%04d", i)))
	}

	seen := 0
	if err := st.ScanUsers(ctx, func(u domain.User) error {
		seen++
		if len(u.Regions) != 1 {
			t.Fatalf("user %s regions = %d", u.ID, len(u.Regions))
		}
		return nil
	}); err != nil {
		t.Fatalf("ScanUsers: %v", err)
	}
	if seen != total {
		t.Fatalf("seen = %d, want %d", seen, total)
	}

	stop := errors.New("stop")
	seen = 0
	err := st.ScanUsers(ctx, func(domain.User) error {
		seen++
		if seen == 10 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 10 {
		t.Fatalf("early stop = %v after %d", err, seen)
	}
}

func TestUpsertReplacesRegionsAndDelete(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	user := testsupport.LocalUser("u-1")
	testsupport.SeedUsers(t, st, user)
	user.Regions = nil
	testsupport.SeedUsers(t, st, user)

	var regions int
	_ = st.ScanUsers(ctx, func(u domain.User) error {
		regions += len(u.Regions)
		return nil
	})
	if regions != 0 {
		t.Fatalf("regions after replace = %d", regions)
	}

	deleted, err := st.DeleteUser(ctx, "u-1")
	if err != nil || !deleted {
		t.Fatalf("DeleteUser = %v, %v", deleted, err)
	}
	if n, _ := st.CountUsers(ctx); n != 0 {
		t.Fatalf("users after delete = %d", n)
	}
}
