package model

type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestApproved   RequestStatus = "APPROVED"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestRejected   RequestStatus = "REJECTED"
	RequestCancelled  RequestStatus = "CANCELLED"
)

// RequestStatuses in display order.
var RequestStatuses = []RequestStatus{
	RequestPending, RequestApproved, RequestInProgress,
	RequestCompleted, RequestRejected, RequestCancelled,
}

func (s RequestStatus) Valid() bool {
	for _, v := range RequestStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is expected.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestCompleted || s == RequestRejected || s == RequestCancelled
}

type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "PENDING"
	AppointmentApproved   AppointmentStatus = "APPROVED"
	AppointmentInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted  AppointmentStatus = "COMPLETED"
	AppointmentCancelled  AppointmentStatus = "CANCELLED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentApproved, AppointmentInProgress,
		AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

type PetStatus string

const (
	PetAvailable PetStatus = "AVAILABLE"
	PetAdopted   PetStatus = "ADOPTED"
)

func (s PetStatus) Valid() bool { return s == PetAvailable || s == PetAdopted }

type AdoptionRequest struct {
	ID        int64         `json:"id"`
	PetID     int64         `json:"petId"`
	UserID    int64         `json:"userId"`
	Status    RequestStatus `json:"status"`
	CreatedAt Time          `json:"createdAt"`
}

type Appointment struct {
	ID                  int64             `json:"id"`
	UserID              int64             `json:"userId,omitempty"`
	ShelterID           int64             `json:"shelterId,omitempty"`
	AdoptionRequestID   int64             `json:"adoptionRequestId"`
	VisitorName         string            `json:"visitorName"`
	NumberOfVisitors    int               `json:"numberOfVisitors"`
	AppointmentDateTime Time              `json:"appointmentDateTime"`
	Status              AppointmentStatus `json:"status"`
}

type Pet struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Breed       string    `json:"breed"`
	Age         int       `json:"age"`
	Description string    `json:"description"`
	Status      PetStatus `json:"status"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	ShelterID   int64     `json:"shelterId,omitempty"`
}

// Profile is the user DTO returned by /user/profile and /user/shelters.
type Profile struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ZipCode       string `json:"zipCode,omitempty"`
	ContactEmail  string `json:"contactEmail,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ZipCode       string `json:"zipCode,omitempty"`
	ContactEmail  string `json:"contactEmail,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type AppointmentForm struct {
	VisitorName         string `json:"visitorName"`
	NumberOfVisitors    int    `json:"numberOfVisitors"`
	ShelterID           int64  `json:"shelterId"`
	AdoptionRequestID   int64  `json:"adoptionRequestId"`
	AppointmentDateTime Time   `json:"appointmentDateTime"`
}

type Dashboard struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalPets        int64 `json:"totalPets"`
	TotalAdoptions   int64 `json:"totalAdoptions"`
	PendingAdoptions int64 `json:"pendingAdoptions"`
}

// AdoptionReport is the typed form of /admin/reports/adoptions.
type AdoptionReport struct {
	TotalRequests    int64             `json:"totalRequests" mapstructure:"totalRequests"`
	PendingRequests  int64             `json:"pendingRequests" mapstructure:"pendingRequests"`
	ApprovedRequests int64             `json:"approvedRequests" mapstructure:"approvedRequests"`
	RejectedRequests int64             `json:"rejectedRequests" mapstructure:"rejectedRequests"`
	RequestsByMonth  map[string]int64  `json:"requestsByMonth" mapstructure:"requestsByMonth"`
	RecentRequests   []AdoptionRequest `json:"recentRequests" mapstructure:"recentRequests"`
}

type UserReport struct {
	TotalUsers   int64     `json:"totalUsers" mapstructure:"totalUsers"`
	RegularUsers int64     `json:"regularUsers" mapstructure:"regularUsers"`
	Shelters     int64     `json:"shelters" mapstructure:"shelters"`
	Admins       int64     `json:"admins" mapstructure:"admins"`
	Users        []Profile `json:"users" mapstructure:"users"`
}

type PetReport struct {
	TotalPets     int64            `json:"totalPets" mapstructure:"totalPets"`
	AvailablePets int64            `json:"availablePets" mapstructure:"availablePets"`
	AdoptedPets   int64            `json:"adoptedPets" mapstructure:"adoptedPets"`
	PetsByType    map[string]int64 `json:"petsByType" mapstructure:"petsByType"`
	RecentPets    []Pet            `json:"recentPets" mapstructure:"recentPets"`
}

// Reports bundles the three admin reports fetched together.
type Reports struct {
	Adoptions AdoptionReport `json:"adoptions"`
	Users     UserReport     `json:"users"`
	Pets      PetReport      `json:"pets"`
}

// PetInput is the editable part of a pet listing.
type PetInput struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Age         int       `json:"age"`
	Breed       string    `json:"breed"`
	Description string    `json:"description"`
	Status      PetStatus `json:"status"`
}
