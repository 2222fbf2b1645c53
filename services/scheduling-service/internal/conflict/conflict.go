// Package conflict finds appointments of one staff member that overlap in
// time. Results are advisory: admin edits may save overlapping rows, and the
// calendar shows them with a conflict badge.
package conflict

import (
	"sort"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
)

// Find returns every appointment in all that overlaps candidate: same staff,
// same date, blocking status, different id. Sorted by start time, then id.
func Find(candidate model.Appointment, all []model.Appointment) []model.Appointment {
	var out []model.Appointment
	for _, a := range all {
		if !sameSlotScope(candidate, a) {
			continue
		}
		if candidate.Overlaps(a) {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out
}

func sameSlotScope(candidate, a model.Appointment) bool {
	if a.StaffID != candidate.StaffID || a.Date != candidate.Date {
		return false
	}
	if candidate.ID != "" && a.ID == candidate.ID {
		return false
	}
	return a.Status.Blocking() && a.DurationMinutes > 0
}

// Badges maps each blocking appointment id in appts to the ids it overlaps,
// in start order. Appointments without conflicts are absent from the map.
func Badges(appts []model.Appointment) map[string][]string {
	sorted := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status.Blocking() && a.DurationMinutes > 0 {
			sorted = append(sorted, a)
		}
	}
	sortByTime(sorted)

	badges := map[string][]string{}
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if a.StaffID != b.StaffID || a.Date != b.Date || a.ID == b.ID {
				continue
			}
			if a.Overlaps(b) {
				badges[a.ID] = append(badges[a.ID], b.ID)
				badges[b.ID] = append(badges[b.ID], a.ID)
			}
		}
	}
	return badges
}

func sortByTime(list []model.Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date.Before(list[j].Date)
		}
		if list[i].Time != list[j].Time {
			return list[i].Time < list[j].Time
		}
		return list[i].ID < list[j].ID
	})
}
