package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

const maxPhoto = 5 << 20

func (h *Handler) listPets(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Pets(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, page, page.Notices)
}

func (h *Handler) petDetails(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	page, err := h.svc.PetDetails(r.Context(), session.FromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, page, page.Notices)
}

// petForm reads a pet from JSON, or from a multipart form with an optional
// "photo" file.
func petForm(w http.ResponseWriter, r *http.Request) (model.PetInput, *api.Part, bool) {
	var in model.PetInput
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return in, nil, decode(w, r, &in)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhoto+maxBody)
	if err := r.ParseMultipartForm(maxPhoto); err != nil {
		badRequest(w, "Malformed form")
		return in, nil, false
	}
	in = model.PetInput{
		Name:        r.FormValue("name"),
		Type:        r.FormValue("type"),
		Breed:       r.FormValue("breed"),
		Description: r.FormValue("description"),
		Status:      model.PetStatus(r.FormValue("status")),
	}
	if s := r.FormValue("age"); s != "" {
		age, err := strconv.Atoi(s)
		if err != nil {
			badRequest(w, "Age must be a number")
			return in, nil, false
		}
		in.Age = age
	}

	f, hdr, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return in, nil, true
	}
	if err != nil {
		badRequest(w, "Malformed photo")
		return in, nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(w, "Malformed photo")
		return in, nil, false
	}
	return in, &api.Part{Filename: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}, true
}

func (h *Handler) addPet(w http.ResponseWriter, r *http.Request) {
	in, photo, good := petForm(w, r)
	if !good {
		return
	}
	res, err := h.svc.AddPet(r.Context(), session.FromContext(r.Context()), in, photo)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, res.Pet, res.Notices)
}

func (h *Handler) updatePet(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	in, photo, good := petForm(w, r)
	if !good {
		return
	}
	res, err := h.svc.UpdatePet(r.Context(), session.FromContext(r.Context()), id, in, photo)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res.Pet, res.Notices)
}

func (h *Handler) deletePet(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	res, err := h.svc.DeletePet(r.Context(), session.FromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, res.Pet, res.Notices)
}

func (h *Handler) adopt(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	res, err := h.svc.Adopt(r.Context(), session.FromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, res, res.Notices)
}
