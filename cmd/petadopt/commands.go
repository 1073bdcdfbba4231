package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

var (
	loginEmail    string
	loginPassword string

	reqManage bool
	reqStatus string
	reqPet    string
	reqUser   string
	reqFrom   string
	reqTo     string

	bookShelter  int64
	bookVisitor  string
	bookVisitors int
	bookAt       string
)

func current(cmd *cobra.Command) (session.Session, error) {
	return sessions.Hydrate(cmd.Context(), cliSession)
}

func idArg(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the token for later commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw := loginPassword
		if pw == "" {
			pw = os.Getenv("PETADOPT_PASSWORD")
		}
		sess, notices, err := svc.Login(cmd.Context(), cliSession, model.Credentials{Email: loginEmail, Password: pw})
		if err != nil {
			return err
		}
		printNotices(notices)
		return printIdentity(sess)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printNotices(svc.Logout(cmd.Context(), cliSession))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		return printIdentity(sess)
	},
}

var petsCmd = &cobra.Command{
	Use:   "pets",
	Short: "List pets and whether you can adopt them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		page, err := svc.Pets(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return printPets(page)
	},
}

var petCmd = &cobra.Command{
	Use:   "pet [id]",
	Short: "Show one pet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args[0], "pet")
		if err != nil {
			return err
		}
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		page, err := svc.PetDetails(cmd.Context(), sess, id)
		if err != nil {
			return err
		}
		return printPet(page)
	},
}

var adoptCmd = &cobra.Command{
	Use:   "adopt [pet-id]",
	Short: "Send an adoption request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args[0], "pet")
		if err != nil {
			return err
		}
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		res, err := svc.Adopt(cmd.Context(), sess, id)
		if err != nil {
			return err
		}
		printNotices(res.Notices)
		return printValue(res, func() {
			fmt.Printf("request #%d for pet #%d is %s\n", res.Request.ID, res.Request.PetID, res.Request.Status)
		})
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List adoption requests with their visit progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := lifecycle.ParseFilter(reqStatus, reqPet, reqUser, reqFrom, reqTo)
		if err != nil {
			return err
		}
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		list := svc.MyRequests
		if reqManage {
			list = svc.ManageRequests
		}
		page, err := list(cmd.Context(), sess, f)
		if err != nil {
			return err
		}
		return printRequests(page)
	},
}

var bookCmd = &cobra.Command{
	Use:   "book [request-id]",
	Short: "Book a shelter visit for an approved request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args[0], "request")
		if err != nil {
			return err
		}
		at, err := model.ParseTime(bookAt)
		if err != nil {
			return err
		}
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		page, err := svc.BookAppointment(cmd.Context(), sess, model.AppointmentForm{
			VisitorName:         bookVisitor,
			NumberOfVisitors:    bookVisitors,
			ShelterID:           bookShelter,
			AdoptionRequestID:   id,
			AppointmentDateTime: at,
		})
		if err != nil {
			return err
		}
		return printRequests(page)
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide [request-id] [APPROVED|REJECTED]",
	Short: "Approve or reject an adoption request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args[0], "request")
		if err != nil {
			return err
		}
		to := model.RequestStatus(strings.ToUpper(args[1]))
		if !to.Valid() {
			return fmt.Errorf("unknown status %q", args[1])
		}
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		page, err := svc.DecideRequest(cmd.Context(), sess, id, to)
		if err != nil {
			return err
		}
		return printRequests(page)
	},
}

var visitCmd = &cobra.Command{
	Use:   "visit [appointment-id] [APPROVED|CANCELLED|IN_PROGRESS|COMPLETED]",
	Short: "Move a visit appointment along",
	Long: `Moves an appointment one step: PENDING to APPROVED or CANCELLED, APPROVED to
IN_PROGRESS, IN_PROGRESS to COMPLETED. Completing the visit also completes the
adoption request.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := idArg(args[0], "appointment")
		if err != nil {
			return err
		}
		to := model.AppointmentStatus(strings.ToUpper(args[1]))
		if !to.Valid() {
			return fmt.Errorf("unknown status %q", args[1])
		}
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		page, err := svc.AdvanceAppointment(cmd.Context(), sess, id, to)
		if err != nil {
			return err
		}
		return printRequests(page)
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show the admin dashboard and reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		d, err := svc.Dashboard(cmd.Context(), sess)
		if err != nil {
			return err
		}
		r, err := svc.Reports(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return printReports(d, r)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current(cmd)
		if err != nil {
			return err
		}
		p, err := svc.Profile(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return printValue(p, func() {
			fmt.Printf("%s <%s> %s\n", p.Name, p.Email, p.Role)
			if p.Address != "" {
				fmt.Printf("%s, %s %s %s\n", p.Address, p.City, p.State, p.ZipCode)
			}
		})
	},
}
