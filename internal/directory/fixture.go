package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"theftalert/internal/domain"
	"theftalert/internal/store"
)

// Fixture is the YAML document accepted by LoadFixture:
//
//	users:
//	  - id: u-1
//	    settings:
//	      local_alerts: true
//	      email: a@example.test
//	      channels: {email: true}
//	    regions:
//	      - name: home
//	        shape: circle
//	        center: {lat: 51.5074, lng: -0.1278}
//	        radius_meters: 2000
type Fixture struct {
	Users []domain.User `yaml:"users"`
}

// LoadFixture reads and validates a YAML user fixture.
func LoadFixture(path string) ([]domain.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture and rejects duplicate users, duplicate
// region names and regions that fail validation.
func ParseFixture(data []byte) ([]domain.User, error) {
	var doc Fixture
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := ValidateUsers(doc.Users); err != nil {
		return nil, err
	}
	return doc.Users, nil
}

// ValidateUsers checks users before they are written to a directory.
func ValidateUsers(users []domain.User) error {
	var problems []error
	seenUsers := make(map[string]struct{}, len(users))
	for i, u := range users {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			problems = append(problems, fmt.Errorf("user %d: id is required", i))
			continue
		}
		if _, ok := seenUsers[id]; ok {
			problems = append(problems, fmt.Errorf("user %s: duplicate id", id))
			continue
		}
		seenUsers[id] = struct{}{}

		seenRegions := make(map[string]struct{}, len(u.Regions))
		for _, r := range u.Regions {
			name := strings.TrimSpace(r.Name)
			if name == "" {
				problems = append(problems, fmt.Errorf("user %s: region name is required", id))
				continue
			}
			if _, ok := seenRegions[name]; ok {
				problems = append(problems, fmt.Errorf("user %s: duplicate region %q", id, name))
				continue
			}
			seenRegions[name] = struct{}{}
			if err := r.Validate(); err != nil {
				problems = append(problems, fmt.Errorf("user %s region %q: %w", id, name, err))
			}
		}
	}
	return errors.Join(problems...)
}

// Import validates users and writes them into st. Nothing is written when
// any user is invalid.
func Import(ctx context.Context, st *store.Store, users []domain.User) (int, error) {
	if err := ValidateUsers(users); err != nil {
		return 0, err
	}
	for i, u := range users {
		if err := st.UpsertUser(ctx, u); err != nil {
			return i, err
		}
	}
	return len(users), nil
}
