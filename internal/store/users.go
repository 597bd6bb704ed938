package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"theftalert/internal/domain"
	"theftalert/internal/geo"
)

const userScanBatch = 256

// UpsertUser replaces a user and all of its regions.
func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("upsert user: id is required")
	}
	now := unixMillis(s.now())
	settings := user.Settings
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, display_name, national_alerts, local_alerts, email, phone_number,
                   channel_email, channel_sms, channel_whatsapp, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    display_name = excluded.display_name,
    national_alerts = excluded.national_alerts,
    local_alerts = excluded.local_alerts,
    email = excluded.email,
    phone_number = excluded.phone_number,
    channel_email = excluded.channel_email,
    channel_sms = excluded.channel_sms,
    channel_whatsapp = excluded.channel_whatsapp,
    updated_at = excluded.updated_at`,
			user.ID, user.DisplayName,
			boolToInt(settings.NationalAlerts), boolToInt(settings.LocalAlerts),
			settings.Email, settings.PhoneNumber,
			boolToInt(settings.Channels.Email), boolToInt(settings.Channels.SMS), boolToInt(settings.Channels.WhatsApp),
			now,
		); err != nil {
			return fmt.Errorf("upsert user %s: %w", user.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM regions WHERE user_id = ?`, user.ID); err != nil {
			return fmt.Errorf("clear regions for %s: %w", user.ID, err)
		}
		for _, region := range user.Regions {
			vertices, err := json.Marshal(pointsOrEmpty(region.Vertices))
			if err != nil {
				return fmt.Errorf("encode region %s/%s: %w", user.ID, region.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO regions (user_id, name, shape, center_lat, center_lng, radius_meters, vertices)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				user.ID, region.Name, string(region.Shape),
				region.Center.Lat, region.Center.Lng, region.RadiusMeters, string(vertices),
			); err != nil {
				return fmt.Errorf("insert region %s/%s: %w", user.ID, region.Name, err)
			}
		}
		return nil
	})
	return err
}

// DeleteUser removes a user and its regions. It reports whether the user existed.
func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountUsers returns the number of stored users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// ScanUsers streams every user, with regions, in ID order. Users are read in
// batches and no cursor is held while fn runs. A non-nil error from fn stops
// the scan and is returned unchanged.
func (s *Store) ScanUsers(ctx context.Context, fn func(domain.User) error) error {
	ctx = ensureContext(ctx)
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := s.loadUserBatch(ctx, after)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, user := range batch {
			if err := fn(user); err != nil {
				return err
			}
		}
		if len(batch) < userScanBatch {
			return nil
		}
		after = batch[len(batch)-1].ID
	}
}

func (s *Store) loadUserBatch(ctx context.Context, after string) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, display_name, national_alerts, local_alerts, email, phone_number,
       channel_email, channel_sms, channel_whatsapp
  FROM users WHERE id > ? ORDER BY id LIMIT ?`, after, userScanBatch)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	var (
		users []domain.User
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			u                          domain.User
			national, local            int
			chEmail, chSMS, chWhatsApp int
		)
		if err := rows.Scan(&u.ID, &u.DisplayName, &national, &local, &u.Settings.Email, &u.Settings.PhoneNumber,
			&chEmail, &chSMS, &chWhatsApp); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan users: %w", err)
		}
		u.Settings.NationalAlerts = national != 0
		u.Settings.LocalAlerts = local != 0
		u.Settings.Channels = domain.ChannelPreferences{Email: chEmail != 0, SMS: chSMS != 0, WhatsApp: chWhatsApp != 0}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("scan users: %w", err)
	}
	rows.Close()
	if len(users) == 0 {
		return nil, nil
	}

	regionRows, err := s.db.QueryContext(ctx, `
SELECT user_id, name, shape, center_lat, center_lng, radius_meters, vertices
  FROM regions WHERE user_id > ? AND user_id <= ? ORDER BY user_id, name`,
		after, users[len(users)-1].ID)
	if err != nil {
		return nil, fmt.Errorf("scan regions: %w", err)
	}
	defer regionRows.Close()
	for regionRows.Next() {
		var (
			userID, vertices string
			region           domain.GeofenceRegion
			shape            string
		)
		if err := regionRows.Scan(&userID, &region.Name, &shape, &region.Center.Lat, &region.Center.Lng,
			&region.RadiusMeters, &vertices); err != nil {
			return nil, fmt.Errorf("scan regions: %w", err)
		}
		region.Shape = geo.Shape(shape)
		if err := json.Unmarshal([]byte(vertices), &region.Vertices); err != nil {
			return nil, fmt.Errorf("decode region %s/%s: %w", userID, region.Name, err)
		}
		if len(region.Vertices) == 0 {
			region.Vertices = nil
		}
		i, ok := index[userID]
		if !ok {
			continue
		}
		users[i].Regions = append(users[i].Regions, region)
	}
	return users, regionRows.Err()
}

func pointsOrEmpty(points []geo.Point) []geo.Point {
	if points == nil {
		return []geo.Point{}
	}
	return points
}
