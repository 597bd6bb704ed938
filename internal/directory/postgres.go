package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"theftalert/internal/domain"
	"theftalert/internal/geo"
)

const postgresScanQuery = `
SELECT u.id,
       COALESCE(u.display_name, ''),
       COALESCE(s.national_alerts, false),
       COALESCE(s.local_alerts, false),
       COALESCE(s.email, ''),
       COALESCE(s.phone_number, ''),
       COALESCE(s.channel_email, false),
       COALESCE(s.channel_sms, false),
       COALESCE(s.channel_whatsapp, false),
       r.name,
       r.shape,
       r.center_lat,
       r.center_lng,
       r.radius_meters,
       r.vertices
  FROM users u
  LEFT JOIN notification_settings s ON s.user_id = u.id
  LEFT JOIN geofence_regions r ON r.user_id = u.id
 ORDER BY u.id, r.name`

// Postgres reads users from an external PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with the pgx driver and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, domain.Wrap(domain.ErrDirectoryUnavailable, "directory", "postgres", "open", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, domain.Wrap(domain.ErrDirectoryUnavailable, "directory", "postgres", "ping", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the connection pool.
func (d *Postgres) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Scan streams users in ID order. Rows for one user are contiguous, so each
// user is emitted as soon as the next user's first row arrives.
func (d *Postgres) Scan(ctx context.Context, fn func(domain.User) error) error {
	return classify("postgres", d.scan(ctx, wrapCallback(fn)))
}

func (d *Postgres) scan(ctx context.Context, fn func(domain.User) error) error {
	rows, err := d.db.QueryContext(ctx, postgresScanQuery)
	if err != nil {
		return fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var current *domain.User
	for rows.Next() {
		var (
			u         domain.User
			name      sql.NullString
			shape     sql.NullString
			centerLat sql.NullFloat64
			centerLng sql.NullFloat64
			radius    sql.NullFloat64
			vertices  []byte
		)
		s := &u.Settings
		if err := rows.Scan(&u.ID, &u.DisplayName, &s.NationalAlerts, &s.LocalAlerts, &s.Email, &s.PhoneNumber,
			&s.Channels.Email, &s.Channels.SMS, &s.Channels.WhatsApp,
			&name, &shape, &centerLat, &centerLng, &radius, &vertices); err != nil {
			return fmt.Errorf("scan user row: %w", err)
		}

		if current == nil || current.ID != u.ID {
			if current != nil {
				if err := fn(*current); err != nil {
					return err
				}
			}
			current = &u
		}
		if !name.Valid {
			continue
		}

		region := domain.GeofenceRegion{
			Name: name.String,
			Region: geo.Region{
				Shape:        geo.Shape(shape.String),
				Center:       geo.Point{Lat: centerLat.Float64, Lng: centerLng.Float64},
				RadiusMeters: radius.Float64,
			},
		}
		if len(vertices) > 0 {
			if err := json.Unmarshal(vertices, &region.Vertices); err != nil {
				return fmt.Errorf("decode vertices for %s/%s: %w", u.ID, name.String, err)
			}
		}
		current.Regions = append(current.Regions, region)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate users: %w", err)
	}
	if current != nil {
		return fn(*current)
	}
	return nil
}
