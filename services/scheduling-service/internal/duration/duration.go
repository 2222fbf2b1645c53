// Package duration computes how long an appointment occupies its staff
// member and what it costs, from the service and the selected extras.
package duration

import "github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"

// Resolve returns the base duration plus the duration of every selected extra
// present on the service. Unknown ids add nothing. Repeated ids count once.
func Resolve(svc model.Service, selectedExtraIDs []string) int {
	total := svc.DurationMinutes
	for _, e := range selected(svc, selectedExtraIDs) {
		total += e.DurationMinutes
	}
	return total
}

// Price totals the service price and the selected extras, walking the same
// extras as Resolve.
func Price(svc model.Service, selectedExtraIDs []string) int64 {
	total := svc.PriceCents
	for _, e := range selected(svc, selectedExtraIDs) {
		total += e.PriceCents
	}
	return total
}

// Known returns the selected ids that exist on the service, in service order.
func Known(svc model.Service, selectedExtraIDs []string) []string {
	extras := selected(svc, selectedExtraIDs)
	ids := make([]string, 0, len(extras))
	for _, e := range extras {
		ids = append(ids, e.ID)
	}
	return ids
}

func selected(svc model.Service, ids []string) []model.Extra {
	if len(ids) == 0 || len(svc.Extras) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []model.Extra
	for _, e := range svc.Extras {
		if _, ok := want[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}
