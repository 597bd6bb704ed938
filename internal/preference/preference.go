// Package preference decides whether a user should hear about a report and
// why. National alerts win over local geofence matching; local matching
// requires the report location to fall inside at least one of the user's
// regions. Regions that cannot be evaluated are skipped and returned as
// faults on the decision.
package preference

import (
	"theftalert/internal/domain"
)

// Resolve applies the alert policy in order, first match wins:
// inactive report, national opt-in, local opt-in with a region hit, none.
func Resolve(report domain.VehicleReport, user domain.User, regions []domain.GeofenceRegion) domain.MatchDecision {
	decision := domain.MatchDecision{
		UserID:   user.ID,
		ReportID: report.ID,
		Reason:   domain.ReasonNone,
	}
	if !report.IsActive() {
		return decision
	}
	if user.Settings.NationalAlerts {
		decision.Matched = true
		decision.Reason = domain.ReasonNational
		return decision
	}
	if !user.Settings.LocalAlerts {
		return decision
	}

	point := report.Location.Point()
	for _, region := range regions {
		inside, err := region.Contains(point)
		if err != nil {
			decision.Faults = append(decision.Faults, domain.RegionFault{
				UserID: user.ID,
				Region: region.Name,
				Error:  err.Error(),
			})
			continue
		}
		if inside {
			decision.Matched = true
			decision.Reason = domain.ReasonLocal
			return decision
		}
	}
	return decision
}

// ResolveUser resolves against the regions attached to the user record.
func ResolveUser(report domain.VehicleReport, user domain.User) domain.MatchDecision {
	return Resolve(report, user, user.Regions)
}
