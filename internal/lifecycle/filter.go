package lifecycle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pet-adoption-portal/internal/model"
)

// Filter narrows a request list. Zero fields do not filter.
type Filter struct {
	Status model.RequestStatus
	// PetID and UserID match as substrings of the decimal id.
	PetID  string
	UserID string
	From   time.Time
	// To is inclusive through the end of its day.
	To time.Time
}

// DateLayout is the day format accepted for From and To.
const DateLayout = "2006-01-02"

// ParseFilter builds a Filter from its text form. Empty strings and a status
// of ALL leave that field unset.
func ParseFilter(status, petID, userID, from, to string) (Filter, error) {
	f := Filter{PetID: strings.TrimSpace(petID), UserID: strings.TrimSpace(userID)}
	if s := model.RequestStatus(strings.ToUpper(strings.TrimSpace(status))); s != "" && s != StatusAll {
		if !s.Valid() {
			return Filter{}, fmt.Errorf("unknown status %q", status)
		}
		f.Status = s
	}
	var err error
	if f.From, err = parseDay(from); err != nil {
		return Filter{}, fmt.Errorf("from: %w", err)
	}
	if f.To, err = parseDay(to); err != nil {
		return Filter{}, fmt.Errorf("to: %w", err)
	}
	return f, nil
}

func parseDay(s string) (time.Time, error) {
	if s = strings.TrimSpace(s); s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

func (f Filter) Active() bool {
	return f.Status != "" || f.PetID != "" || f.UserID != "" || !f.From.IsZero() || !f.To.IsZero()
}

func (f Filter) Match(r model.AdoptionRequest) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.PetID != "" && !strings.Contains(strconv.FormatInt(r.PetID, 10), f.PetID) {
		return false
	}
	if f.UserID != "" && !strings.Contains(strconv.FormatInt(r.UserID, 10), f.UserID) {
		return false
	}
	if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.CreatedAt.After(endOfDay(f.To)) {
		return false
	}
	return true
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Millisecond), t.Location())
}

// Apply keeps the views whose request matches f.
func (f Filter) Apply(views []RequestView) []RequestView {
	if !f.Active() {
		return views
	}
	out := make([]RequestView, 0, len(views))
	for _, v := range views {
		if f.Match(v.Request) {
			out = append(out, v)
		}
	}
	return out
}

// SortNewestFirst orders by createdAt descending. Requests without a
// timestamp fall back to id, newest id first, after the dated ones.
func SortNewestFirst(rs []model.AdoptionRequest) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i].CreatedAt, rs[j].CreatedAt
		switch {
		case a.IsZero() && b.IsZero():
			return rs[i].ID > rs[j].ID
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		case a.Equal(b.Time):
			return rs[i].ID > rs[j].ID
		}
		return a.After(b.Time)
	})
}

// StatusAll is the count key for the unfiltered total.
const StatusAll = "ALL"

// CountByStatus tallies requests per status, with StatusAll holding the total.
// Every known status is present, zero or not.
func CountByStatus(rs []model.AdoptionRequest) map[string]int {
	counts := make(map[string]int, len(model.RequestStatuses)+1)
	counts[StatusAll] = len(rs)
	for _, s := range model.RequestStatuses {
		counts[string(s)] = 0
	}
	for _, r := range rs {
		counts[string(r.Status)]++
	}
	return counts
}
