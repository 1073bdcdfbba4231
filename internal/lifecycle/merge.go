package lifecycle

import "pet-adoption-portal/internal/model"

// MergeRequests reconciles an optimistically updated local list with a fresh
// fetch. The fetch wins for every id it contains; entries only present
// locally were never confirmed and are dropped. Order follows authoritative.
// The second result counts local entries the fetch contradicted.
func MergeRequests(local, authoritative []model.AdoptionRequest) ([]model.AdoptionRequest, int) {
	return merge(local, authoritative,
		func(r model.AdoptionRequest) int64 { return r.ID },
		func(a, b model.AdoptionRequest) bool { return a.Status == b.Status && a.PetID == b.PetID },
	)
}

func MergeAppointments(local, authoritative []model.Appointment) ([]model.Appointment, int) {
	return merge(local, authoritative,
		func(a model.Appointment) int64 { return a.ID },
		func(a, b model.Appointment) bool {
			return a.Status == b.Status && a.AdoptionRequestID == b.AdoptionRequestID
		},
	)
}

// An empty authoritative list is still authoritative. Callers whose
// refetch failed keep local without merging.
func merge[T any](local, authoritative []T, id func(T) int64, same func(a, b T) bool) ([]T, int) {
	byID := make(map[int64]T, len(authoritative))
	for _, v := range authoritative {
		byID[id(v)] = v
	}
	drift := 0
	for _, v := range local {
		if a, ok := byID[id(v)]; !ok || !same(v, a) {
			drift++
		}
	}
	out := make([]T, len(authoritative))
	copy(out, authoritative)
	return out, drift
}

// ApplyRequestStatus returns a copy of list with request id set to status.
func ApplyRequestStatus(list []model.AdoptionRequest, id int64, status model.RequestStatus) []model.AdoptionRequest {
	out := make([]model.AdoptionRequest, len(list))
	for i, r := range list {
		if r.ID == id {
			r.Status = status
		}
		out[i] = r
	}
	return out
}

func ApplyAppointmentStatus(list []model.Appointment, id int64, status model.AppointmentStatus) []model.Appointment {
	out := make([]model.Appointment, len(list))
	for i, a := range list {
		if a.ID == id {
			a.Status = status
		}
		out[i] = a
	}
	return out
}
