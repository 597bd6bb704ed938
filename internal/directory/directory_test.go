package directory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"theftalert/internal/directory"
	"theftalert/internal/domain"
	"theftalert/internal/geo"
	"theftalert/internal/testsupport"
)

const fixtureYAML = `
users:
  - id: u-local
    display_name: Local Larry
    settings:
      local_alerts: true
      email: larry@example.test
      phone_number: "+447700900123"
      channels: {email: true, sms: true}
    regions:
      - name: home
        shape: circle
        center: {lat: 51.5074, lng: -0.1278}
        radius_meters: 2000
      - name: office
        shape: polygon
        vertices:
          - {lat: 51.50, lng: -0.14}
          - {lat: 51.50, lng: -0.11}
          - {lat: 51.52, lng: -0.11}
  - id: u-national
    settings:
      national_alerts: true
      email: nat@example.test
      channels: {email: true}
`

func collect(t *testing.T, d directory.Directory) []domain.User {
	t.Helper()
	var users []domain.User
	if err := d.Scan(context.Background(), func(u domain.User) error {
		users = append(users, u)
		return nil
	}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return users
}

func TestParseFixture(t *testing.T) {
	users, err := directory.ParseFixture([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d", len(users))
	}
	local := users[0]
	if local.DisplayName != "Local Larry" || !local.Settings.Channels.SMS || local.Settings.PhoneNumber != "+447700900123" {
		t.Fatalf("local user = %+v", local)
	}
	if len(local.Regions) != 2 {
		t.Fatalf("regions = %+v", local.Regions)
	}
	if local.Regions[0].Shape != geo.ShapeCircle || local.Regions[0].RadiusMeters != 2000 {
		t.Fatalf("circle = %+v", local.Regions[0])
	}
	if local.Regions[1].Shape != geo.ShapePolygon || len(local.Regions[1].Vertices) != 3 {
		t.Fatalf("polygon = %+v", local.Regions[1])
	}
}

func TestParseFixtureRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "two vertex polygon",
			yaml: `
users:
  - id: u-1
    regions:
      - name: line
        shape: polygon
        vertices: [{lat: 1, lng: 1}, {lat: 2, lng: 2}]
`,
			want: domain.ErrInvalidRegion,
		},
		{
			name: "zero radius",
			yaml: `
users:
  - id: u-1
    regions:
      - name: dot
        shape: circle
        center: {lat: 1, lng: 1}
        radius_meters: 0
`,
			want: domain.ErrInvalidRegion,
		},
		{
			name: "duplicate users",
			yaml: `
users:
  - id: u-1
  - id: u-1
`,
		},
		{
			name: "unknown field",
			yaml: `
users:
  - id: u-1
    nickname: nope
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := directory.ParseFixture([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestImportAndScanSQLite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	path := filepath.Join(testsupport.BaseDir(cfg), "users.yaml")
	if err := os.WriteFile(path, []byte(fixtureYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	users, err := directory.LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	n, err := directory.Import(context.Background(), st, users)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}

	got := collect(t, directory.NewSQLite(st))
	if len(got) != 2 || got[0].ID != "u-local" || len(got[0].Regions) != 2 {
		t.Fatalf("scanned = %+v", got)
	}
}

func TestImportRejectsInvalidBeforeWriting(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	bad := testsupport.LocalUser("u-bad")
	bad.Regions = append(bad.Regions, domain.GeofenceRegion{Name: "line", Region: geo.Polygon(geo.Point{Lat: 1, Lng: 1})})

	if _, err := directory.Import(context.Background(), st, []domain.User{testsupport.LocalUser("u-ok"), bad}); !errors.Is(err, domain.ErrInvalidRegion) {
		t.Fatalf("Import err = %v", err)
	}
	if count, _ := st.CountUsers(context.Background()); count != 0 {
		t.Fatalf("users written = %d", count)
	}
}

func TestSQLiteCallbackErrorPassesThrough(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedUsers(t, st, testsupport.LocalUser("u-1"))

	stop := errors.New("stop")
	err := directory.NewSQLite(st).Scan(context.Background(), func(domain.User) error { return stop })
	if !errors.Is(err, stop) || errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestSQLiteClosedStoreIsUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	_ = st.Close()

	err := directory.NewSQLite(st).Scan(context.Background(), func(domain.User) error { return nil })
	if !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

var postgresColumns = []string{
	"id", "display_name", "national_alerts", "local_alerts", "email", "phone_number",
	"channel_email", "channel_sms", "channel_whatsapp",
	"name", "shape", "center_lat", "center_lng", "radius_meters", "vertices",
}

func TestPostgresScanGroupsRegions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(postgresColumns).
		AddRow("u-1", "", false, true, "a@example.test", "+447700900123", true, true, false,
			"home", "circle", 51.5074, -0.1278, 2000.0, nil).
		AddRow("u-1", "", false, true, "a@example.test", "+447700900123", true, true, false,
			"work", "polygon", 0.0, 0.0, 0.0, []byte(`[{"lat":51.5,"lng":-0.14},{"lat":51.5,"lng":-0.11},{"lat":51.52,"lng":-0.11}]`)).
		AddRow("u-2", "Nat", true, false, "n@example.test", "", true, false, false,
			nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT u.id").WillReturnRows(rows)

	got := collect(t, directory.NewPostgres(db))
	if len(got) != 2 {
		t.Fatalf("users = %+v", got)
	}
	if len(got[0].Regions) != 2 || got[0].Regions[1].Shape != geo.ShapePolygon || len(got[0].Regions[1].Vertices) != 3 {
		t.Fatalf("u-1 regions = %+v", got[0].Regions)
	}
	if got[1].ID != "u-2" || !got[1].Settings.NationalAlerts || len(got[1].Regions) != 0 {
		t.Fatalf("u-2 = %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresQueryFailureIsUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT u.id").WillReturnError(errors.New("connection refused"))

	err = directory.NewPostgres(db).Scan(context.Background(), func(domain.User) error { return nil })
	if !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestPostgresRowErrorMidStream(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(postgresColumns).
		AddRow("u-1", "", true, false, "", "", false, false, false, nil, nil, nil, nil, nil, nil).
		AddRow("u-2", "", true, false, "", "", false, false, false, nil, nil, nil, nil, nil, nil).
		RowError(1, errors.New("connection reset"))
	mock.ExpectQuery("SELECT u.id").WillReturnRows(rows)

	var seen int
	err = directory.NewPostgres(db).Scan(context.Background(), func(domain.User) error {
		seen++
		return nil
	})
	if !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if seen != 0 {
		t.Fatalf("seen = %d before failure", seen)
	}
}

func TestStaticDirectory(t *testing.T) {
	users := []domain.User{testsupport.LocalUser("a"), testsupport.NationalUser("b")}
	got := collect(t, directory.NewStatic(users))
	if len(got) != 2 || got[1].ID != "b" {
		t.Fatalf("got = %+v", got)
	}
}
