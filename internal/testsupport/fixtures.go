package testsupport

import (
	"theftalert/internal/domain"
	"theftalert/internal/geo"
)

// Central London points used across package tests.
var (
	CharingCross = geo.Point{Lat: 51.5074, Lng: -0.1278}
	Westminster  = geo.Point{Lat: 51.4994, Lng: -0.1270}
)

// ActiveReport returns a valid report located at Charing Cross.
func ActiveReport(id string) domain.VehicleReport {
	return domain.VehicleReport{
		ID:           id,
		Make:         "Ford",
		Model:        "Focus",
		Year:         2019,
		LicensePlate: "AB12 CDE",
		Status:       domain.StatusActive,
		Location: domain.Location{
			Lat:      CharingCross.Lat,
			Lng:      CharingCross.Lng,
			Locality: "Charing Cross",
		},
	}
}

// LocalUser returns a user with local alerts, SMS and email enabled, and one
// 2 km circle around Charing Cross.
func LocalUser(id string) domain.User {
	return domain.User{
		ID: id,
		Settings: domain.NotificationSettings{
			LocalAlerts: true,
			Email:       id + "@example.test",
			PhoneNumber: "+447700900123",
			Channels:    domain.ChannelPreferences{Email: true, SMS: true},
		},
		Regions: []domain.GeofenceRegion{
			{Name: "home", Region: geo.Circle(CharingCross, 2000)},
		},
	}
}

// NationalUser returns a user with national alerts and email only.
func NationalUser(id string) domain.User {
	return domain.User{
		ID: id,
		Settings: domain.NotificationSettings{
			NationalAlerts: true,
			Email:          id + "@example.test",
			Channels:       domain.ChannelPreferences{Email: true},
		},
	}
}
