package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pet-adoption-portal/internal/model"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type statusBody struct {
	Status string `json:"status"`
}

// auth

func (c *Client) Register(ctx context.Context, r model.Registration) (model.Profile, error) {
	var p model.Profile
	err := c.do(ctx, "auth.register", http.MethodPost, "/auth/register", r, &p)
	return p, err
}

// Login returns the bearer token issued for creds.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", creds, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: auth.login: empty token", ErrDecode)
	}
	return out.Token, nil
}

// pets

func (c *Client) ListPets(ctx context.Context) ([]model.Pet, error) {
	var out []model.Pet
	err := c.do(ctx, "pets.list", http.MethodGet, "/pets", nil, &out)
	return out, err
}

func (c *Client) GetPet(ctx context.Context, id int64) (model.Pet, error) {
	var p model.Pet
	err := c.do(ctx, "pets.get", http.MethodGet, "/pets/"+itoa(id), nil, &p)
	return p, err
}

// AddPet posts the listing as individual form fields plus an optional photo.
func (c *Client) AddPet(ctx context.Context, in model.PetInput, photo *Part) (model.Pet, error) {
	fields := []field{
		{name: "name", value: []byte(in.Name)},
		{name: "type", value: []byte(in.Type)},
		{name: "age", value: []byte(strconv.Itoa(in.Age))},
		{name: "breed", value: []byte(in.Breed)},
		{name: "description", value: []byte(in.Description)},
		{name: "status", value: []byte(in.Status)},
	}
	fields = appendPhoto(fields, photo)
	var p model.Pet
	err := c.doMultipart(ctx, "pets.add", http.MethodPost, "/pets/add", fields, &p)
	return p, err
}

// UpdatePet sends the listing as a JSON part named "pet" plus an optional photo.
func (c *Client) UpdatePet(ctx context.Context, id int64, in model.PetInput, photo *Part) (model.Pet, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return model.Pet{}, fmt.Errorf("api: pets.update: marshal: %w", err)
	}
	fields := appendPhoto([]field{{name: "pet", value: b, contentType: "application/json", filename: "pet.json"}}, photo)
	var p model.Pet
	err = c.doMultipart(ctx, "pets.update", http.MethodPut, "/pets/update/"+itoa(id), fields, &p)
	return p, err
}

func (c *Client) DeletePet(ctx context.Context, id int64) error {
	return c.do(ctx, "pets.delete", http.MethodDelete, "/pets/delete/"+itoa(id), nil, nil)
}

func appendPhoto(fields []field, photo *Part) []field {
	if photo == nil || len(photo.Data) == 0 {
		return fields
	}
	ct := photo.ContentType
	if ct == "" {
		ct = http.DetectContentType(photo.Data)
	}
	name := photo.Filename
	if name == "" {
		name = "photo"
	}
	return append(fields, field{name: "photo", value: photo.Data, contentType: ct, filename: name})
}

// adoptions

func (c *Client) CreateAdoption(ctx context.Context, petID int64) (model.AdoptionRequest, error) {
	var r model.AdoptionRequest
	in := struct {
		PetID int64 `json:"petId"`
	}{petID}
	err := c.do(ctx, "adoptions.create", http.MethodPost, "/adoptions/create", in, &r)
	return r, err
}

func (c *Client) MyAdoptions(ctx context.Context) ([]model.AdoptionRequest, error) {
	var out []model.AdoptionRequest
	err := c.do(ctx, "adoptions.mine", http.MethodGet, "/adoptions/user", nil, &out)
	return list(out, err)
}

func (c *Client) AllAdoptions(ctx context.Context) ([]model.AdoptionRequest, error) {
	var out []model.AdoptionRequest
	err := c.do(ctx, "adoptions.all", http.MethodGet, "/adoptions/manage/all", nil, &out)
	return list(out, err)
}

func (c *Client) SetAdoptionStatus(ctx context.Context, id int64, st model.RequestStatus) (model.AdoptionRequest, error) {
	var r model.AdoptionRequest
	err := c.do(ctx, "adoptions.status", http.MethodPut, "/adoptions/manage/"+itoa(id), statusBody{string(st)}, &r)
	return r, err
}

// appointments

func (c *Client) CreateAppointment(ctx context.Context, f model.AppointmentForm) (model.Appointment, error) {
	var a model.Appointment
	err := c.do(ctx, "appointments.create", http.MethodPost, "/appointments/create", f, &a)
	return a, err
}

func (c *Client) MyAppointments(ctx context.Context) ([]model.Appointment, error) {
	var out []model.Appointment
	err := c.do(ctx, "appointments.mine", http.MethodGet, "/appointments/user", nil, &out)
	return list(out, err)
}

func (c *Client) ShelterAppointments(ctx context.Context) ([]model.Appointment, error) {
	var out []model.Appointment
	err := c.do(ctx, "appointments.shelter", http.MethodGet, "/appointments/shelter", nil, &out)
	return list(out, err)
}

func (c *Client) SetAppointmentStatus(ctx context.Context, id int64, st model.AppointmentStatus) (model.Appointment, error) {
	var a model.Appointment
	err := c.do(ctx, "appointments.status", http.MethodPut, "/appointments/manage/"+itoa(id), statusBody{string(st)}, &a)
	return a, err
}

// user

func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	err := c.do(ctx, "user.profile", http.MethodGet, "/user/profile", nil, &p)
	return p, err
}

func (c *Client) UpdateProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	var out model.Profile
	err := c.do(ctx, "user.update", http.MethodPut, "/user/profile", p, &out)
	return out, err
}

func (c *Client) ChangePassword(ctx context.Context, pc model.PasswordChange) error {
	var msg string
	return c.do(ctx, "user.password", http.MethodPut, "/user/change-password", pc, &msg)
}

func (c *Client) Shelters(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile
	err := c.do(ctx, "user.shelters", http.MethodGet, "/user/shelters", nil, &out)
	return list(out, err)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// list keeps nil for a failed fetch and an empty slice for an empty one.
func list[T any](s []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []T{}, nil
	}
	return s, nil
}
