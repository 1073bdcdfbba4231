package lifecycle

import (
	"strings"

	"pet-adoption-portal/internal/auth"
	"pet-adoption-portal/internal/model"
)

// Offer describes the adopt button for one pet.
type Offer struct {
	Show bool `json:"show"`
	// Again is set when the viewer completed an earlier adoption of this pet.
	Again     bool                `json:"again,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	RequestID int64               `json:"requestId,omitempty"`
	Status    model.RequestStatus `json:"requestStatus,omitempty"`
}

// OpenRequestFor returns the viewer's non-terminal request for pet, if any.
func OpenRequestFor(petID int64, mine []model.AdoptionRequest) (model.AdoptionRequest, bool) {
	for _, r := range mine {
		if r.PetID == petID && !r.Status.IsTerminal() {
			return r, true
		}
	}
	return model.AdoptionRequest{}, false
}

func HasCompletedFor(petID int64, mine []model.AdoptionRequest) bool {
	for _, r := range mine {
		if r.PetID == petID && r.Status == model.RequestCompleted {
			return true
		}
	}
	return false
}

// AdoptionOffer decides whether id may request pet. Only adopters see the
// button; an open request for the same pet blocks it.
func AdoptionOffer(id auth.Identity, pet model.Pet, mine []model.AdoptionRequest) Offer {
	if !id.IsUser() {
		return Offer{}
	}
	if pet.Status != model.PetAvailable {
		return Offer{Reason: "This pet is " + strings.ToLower(string(pet.Status))}
	}
	if open, ok := OpenRequestFor(pet.ID, mine); ok {
		return Offer{
			Reason:    "Request " + strings.ToLower(string(open.Status)),
			RequestID: open.ID,
			Status:    open.Status,
		}
	}
	return Offer{Show: true, Again: HasCompletedFor(pet.ID, mine)}
}

// CanEditPet reports whether the viewer may edit or delete pet. userID is the
// viewer's profile id; the token does not carry it.
func CanEditPet(id auth.Identity, pet model.Pet, userID int64) bool {
	switch {
	case id.IsAdmin():
		return true
	case id.IsShelter():
		return userID != 0 && pet.ShelterID == userID
	}
	return false
}
