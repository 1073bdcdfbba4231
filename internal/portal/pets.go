package portal

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

type PetCard struct {
	Pet     model.Pet       `json:"pet"`
	Offer   lifecycle.Offer `json:"offer"`
	CanEdit bool            `json:"canEdit"`
}

type PetsPage struct {
	Pets    []PetCard `json:"pets"`
	Notices []Notice  `json:"-"`
}

type PetPage struct {
	PetCard
	// Request is the viewer's latest request for this pet.
	Request *model.AdoptionRequest `json:"request,omitempty"`
	Notices []Notice               `json:"-"`
}

type AdoptResult struct {
	Request model.AdoptionRequest `json:"request"`
	Pet     PetCard               `json:"pet"`
	Notices []Notice              `json:"-"`
}

type PetResult struct {
	Pet     model.Pet `json:"pet"`
	Notices []Notice  `json:"-"`
}

// viewer is what pet gating needs to know about the caller.
type viewer struct {
	id     session.Session
	mine   []model.AdoptionRequest
	userID int64
	// unchecked is set when mine could not be loaded.
	unchecked bool
}

func (v viewer) card(p model.Pet) PetCard {
	offer := lifecycle.AdoptionOffer(v.id.Identity, p, v.mine)
	if v.unchecked && offer.Show {
		offer = lifecycle.Offer{Reason: "Could not check your requests"}
	}
	return PetCard{
		Pet:     p,
		Offer:   offer,
		CanEdit: lifecycle.CanEditPet(v.id.Identity, p, v.userID),
	}
}

// loadViewer fetches the requester's requests, or a shelter's profile id.
// Failures only narrow what is offered: a requester whose requests are
// unknown is not offered adoption.
func (s *Service) loadViewer(ctx context.Context, cl *api.Client, sess session.Session) viewer {
	v := viewer{id: sess}
	switch {
	case sess.Identity.IsUser():
		mine, err := cl.MyAdoptions(ctx)
		if err != nil {
			s.log.Warn("load viewer requests", zap.Error(err))
			v.unchecked = true
		}
		v.mine = mine
	case sess.Identity.IsShelter():
		p, err := cl.Profile(ctx)
		if err != nil {
			s.log.Warn("load viewer profile", zap.Error(err))
		}
		v.userID = p.ID
	}
	return v
}

// Pets lists every pet with the adopt and edit controls open to the viewer.
// Guests may browse.
func (s *Service) Pets(ctx context.Context, sess session.Session) (PetsPage, error) {
	const op = "pets"
	cl := s.client(sess)

	var (
		pets []model.Pet
		v    viewer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pets, err = cl.ListPets(gctx)
		return err
	})
	g.Go(func() error {
		v = s.loadViewer(gctx, cl, sess)
		return nil
	})
	if err := g.Wait(); err != nil {
		return PetsPage{}, s.fail(op, err, "Failed to load pets")
	}

	page := PetsPage{Pets: make([]PetCard, 0, len(pets))}
	for _, p := range pets {
		page.Pets = append(page.Pets, v.card(p))
	}
	return page, nil
}

// PetDetails loads one pet. When the pet cannot be loaded the failure
// redirects to the list.
func (s *Service) PetDetails(ctx context.Context, sess session.Session, id int64) (PetPage, error) {
	const op = "pet_details"
	cl := s.client(sess)
	pet, err := cl.GetPet(ctx, id)
	if err != nil {
		f := s.fail(op, err, "Failed to load pet details")
		f.Redirect = "/pets"
		return PetPage{}, f
	}

	v := s.loadViewer(ctx, cl, sess)
	page := PetPage{PetCard: v.card(pet)}
	mine := slices.Clone(v.mine)
	lifecycle.SortNewestFirst(mine)
	if i := slices.IndexFunc(mine, func(r model.AdoptionRequest) bool { return r.PetID == id }); i >= 0 {
		page.Request = &mine[i]
	}
	return page, nil
}

// Adopt sends an adoption request when the pet is offered to the viewer.
func (s *Service) Adopt(ctx context.Context, sess session.Session, petID int64) (AdoptResult, error) {
	const op = "adopt"
	if !sess.Authenticated() {
		f := reject(op, ErrSignedOut, "Please login to adopt a pet")
		f.Redirect = "/login"
		return AdoptResult{}, f
	}
	if !sess.Identity.IsUser() {
		return AdoptResult{}, reject(op, ErrForbidden, "Only adopters can request adoptions")
	}
	cl := s.client(sess)

	var (
		pet  model.Pet
		mine []model.AdoptionRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { pet, err = cl.GetPet(gctx, petID); return })
	g.Go(func() (err error) { mine, err = cl.MyAdoptions(gctx); return })
	if err := g.Wait(); err != nil {
		return AdoptResult{}, s.fail(op, err, "Failed to send adoption request")
	}

	offer := lifecycle.AdoptionOffer(sess.Identity, pet, mine)
	if !offer.Show {
		msg := offer.Reason
		if msg == "" {
			msg = "Adoption is not available for this pet"
		}
		return AdoptResult{}, reject(op, ErrNotOffered, msg)
	}

	created, err := cl.CreateAdoption(ctx, petID)
	if err != nil {
		return AdoptResult{}, s.fail(op, err, "Failed to send adoption request")
	}
	res := AdoptResult{
		Request: created,
		Notices: []Notice{{LevelSuccess, fmt.Sprintf("Adoption request sent for %s!", pet.Name)}},
	}

	local := append(slices.Clone(mine), created)
	merged := local
	if fresh, err := cl.MyAdoptions(ctx); err != nil {
		s.log.Warn("refresh requests after adopt", zap.Error(err))
	} else {
		merged, _ = lifecycle.MergeRequests(local, fresh)
	}
	res.Pet = viewer{id: sess, mine: merged}.card(pet)
	return res, nil
}

func validatePet(in *model.PetInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	if in.Status == "" {
		in.Status = model.PetAvailable
	}
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case in.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalid)
	case in.Age < 0:
		return fmt.Errorf("%w: age cannot be negative", ErrInvalid)
	case !in.Status.Valid():
		return fmt.Errorf("%w: status must be AVAILABLE or ADOPTED", ErrInvalid)
	}
	return nil
}

func invalid(op string, err error) *Failure {
	msg := strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": ")
	return reject(op, err, strings.ToUpper(msg[:1])+msg[1:])
}

func (s *Service) AddPet(ctx context.Context, sess session.Session, in model.PetInput, photo *api.Part) (PetResult, error) {
	const op = "add_pet"
	if err := requireManager(op, sess); err != nil {
		return PetResult{}, err
	}
	if err := validatePet(&in); err != nil {
		return PetResult{}, invalid(op, err)
	}
	p, err := s.client(sess).AddPet(ctx, in, photo)
	if err != nil {
		return PetResult{}, s.fail(op, err, "Failed to add pet")
	}
	return PetResult{Pet: p, Notices: []Notice{{LevelSuccess, "Pet added successfully!"}}}, nil
}

// owned loads pet id and checks the viewer may change it.
func (s *Service) owned(ctx context.Context, op string, cl *api.Client, sess session.Session, id int64) (model.Pet, error) {
	pet, err := cl.GetPet(ctx, id)
	if err != nil {
		f := s.fail(op, err, "Failed to load pet details")
		f.Redirect = "/pets"
		return model.Pet{}, f
	}
	var userID int64
	if sess.Identity.IsShelter() {
		p, err := cl.Profile(ctx)
		if err != nil {
			return model.Pet{}, s.fail(op, err, "Failed to load profile")
		}
		userID = p.ID
	}
	if !lifecycle.CanEditPet(sess.Identity, pet, userID) {
		return model.Pet{}, reject(op, ErrForbidden, "You can only change pets listed by your shelter")
	}
	return pet, nil
}

func (s *Service) UpdatePet(ctx context.Context, sess session.Session, id int64, in model.PetInput, photo *api.Part) (PetResult, error) {
	const op = "update_pet"
	if err := requireManager(op, sess); err != nil {
		return PetResult{}, err
	}
	if err := validatePet(&in); err != nil {
		return PetResult{}, invalid(op, err)
	}
	cl := s.client(sess)
	if _, err := s.owned(ctx, op, cl, sess, id); err != nil {
		return PetResult{}, err
	}
	p, err := cl.UpdatePet(ctx, id, in, photo)
	if err != nil {
		return PetResult{}, s.fail(op, err, "Failed to update pet")
	}
	return PetResult{Pet: p, Notices: []Notice{{LevelSuccess, "Pet updated successfully!"}}}, nil
}

func (s *Service) DeletePet(ctx context.Context, sess session.Session, id int64) (PetResult, error) {
	const op = "delete_pet"
	if err := requireManager(op, sess); err != nil {
		return PetResult{}, err
	}
	cl := s.client(sess)
	pet, err := s.owned(ctx, op, cl, sess, id)
	if err != nil {
		return PetResult{}, err
	}
	if err := cl.DeletePet(ctx, id); err != nil {
		return PetResult{}, s.fail(op, err, "Failed to delete pet")
	}
	return PetResult{Pet: pet, Notices: []Notice{{LevelSuccess, fmt.Sprintf("%q has been deleted successfully!", pet.Name)}}}, nil
}
