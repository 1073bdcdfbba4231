package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

func printNotices(ns []portal.Notice) {
	for _, n := range ns {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
	}
}

// printValue prints v as JSON under --json, or calls text otherwise.
func printValue(v any, text func()) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// grid renders rows under headers as a bordered table. A nil headers slice
// renders a plain key/value grid.
func grid(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Rows(rows...)
	if headers != nil {
		t = t.Headers(headers...)
	}
	return t.Render()
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func printIdentity(s session.Session) error {
	id := s.Identity
	return printValue(map[string]any{"email": id.Email, "role": id.Role.String(), "expiresAt": id.ExpiresAt}, func() {
		if !s.Authenticated() {
			fmt.Println("not signed in")
			return
		}
		fmt.Printf("%s (%s), token valid until %s\n", id.Email, id.Role, id.ExpiresAt.Local().Format("2006-01-02 15:04"))
	})
}

func printPets(page portal.PetsPage) error {
	printNotices(page.Notices)
	return printValue(page, func() {
		fmt.Println(petsTable(page))
	})
}

func petsTable(page portal.PetsPage) string {
	rows := make([][]string, 0, len(page.Pets))
	for _, c := range page.Pets {
		p := c.Pet
		rows = append(rows, []string{itoa(p.ID), p.Name, p.Type, p.Breed, strconv.Itoa(p.Age), string(p.Status), offerText(c.Offer)})
	}
	return grid([]string{"ID", "NAME", "TYPE", "BREED", "AGE", "STATUS", "ADOPT"}, rows)
}

func offerText(o lifecycle.Offer) string {
	switch {
	case o.Show && o.Again:
		return "yes (again)"
	case o.Show:
		return "yes"
	}
	return o.Reason
}

func printPet(page portal.PetPage) error {
	printNotices(page.Notices)
	return printValue(page, func() {
		p := page.Pet
		fmt.Printf("#%d %s, %s %s, %d y/o, %s\n", p.ID, p.Name, p.Breed, p.Type, p.Age, p.Status)
		if p.Description != "" {
			fmt.Println(p.Description)
		}
		if page.Request != nil {
			fmt.Printf("your request #%d is %s\n", page.Request.ID, page.Request.Status)
		}
		if o := offerText(page.Offer); o != "" {
			fmt.Println("adopt:", o)
		}
	})
}

func printRequests(page portal.RequestsPage) error {
	printNotices(page.Notices)
	return printValue(page, func() {
		fmt.Println(requestsTable(page))
		if n := len(page.Orphans); n > 0 {
			fmt.Fprintf(os.Stderr, "%d appointment(s) reference requests not in this list\n", n)
		}
	})
}

func requestsTable(page portal.RequestsPage) string {
	rows := make([][]string, 0, len(page.Cards))
	for _, c := range page.Cards {
		r := c.Request
		rows = append(rows, []string{itoa(r.ID), itoa(r.PetID), itoa(r.UserID), string(r.Status),
			day(r.CreatedAt), progress(c.Timeline), c.Next.Message, actions(c)})
	}
	return grid([]string{"ID", "PET", "USER", "STATUS", "CREATED", "PROGRESS", "NEXT", "ACTIONS"}, rows)
}

func day(t model.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

// progress renders the timeline as five marks: x done, > active, . upcoming.
func progress(t lifecycle.Timeline) string {
	var sb strings.Builder
	for _, s := range t.Stages {
		switch s.State {
		case lifecycle.StageCompleted:
			sb.WriteByte('x')
		case lifecycle.StageActive:
			sb.WriteByte('>')
		default:
			sb.WriteByte('.')
		}
	}
	if t.Halted {
		sb.WriteString(" halted")
	}
	return sb.String()
}

func actions(c portal.RequestCard) string {
	var out []string
	if c.CanBook {
		out = append(out, "book")
	}
	for _, a := range c.Actions {
		out = append(out, a.Label)
	}
	if c.Appointment != nil {
		for _, a := range c.AppointmentActions {
			out = append(out, fmt.Sprintf("%s (visit #%d)", a.Label, c.Appointment.ID))
		}
	}
	if c.Ambiguous {
		out = append(out, "several visits booked")
	}
	return strings.Join(out, ", ")
}

func printReports(d model.Dashboard, r model.Reports) error {
	return printValue(struct {
		Dashboard model.Dashboard `json:"dashboard"`
		model.Reports
	}{d, r}, func() {
		fmt.Println(grid(nil, [][]string{
			{"users", fmt.Sprint(d.TotalUsers), fmt.Sprintf("%d adopters, %d shelters, %d admins", r.Users.RegularUsers, r.Users.Shelters, r.Users.Admins)},
			{"pets", fmt.Sprint(d.TotalPets), fmt.Sprintf("%d available, %d adopted", r.Pets.AvailablePets, r.Pets.AdoptedPets)},
			{"requests", fmt.Sprint(r.Adoptions.TotalRequests), fmt.Sprintf("%d pending, %d approved, %d rejected",
				r.Adoptions.PendingRequests, r.Adoptions.ApprovedRequests, r.Adoptions.RejectedRequests)},
		}))
	})
}
