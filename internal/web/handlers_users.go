package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/PartsHole/internal/core"
	"github.com/JonMunkholm/PartsHole/internal/model"
	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Name string `json:"name"`
}

type allocateRequest struct {
	Category    *int `json:"category"`
	SubCategory *int `json:"subCategory"`
}

type referenceRequest struct {
	ModelID string `json:"modelId"`
}

// PartNumberResponse pairs a part number with its display form.
type PartNumberResponse struct {
	model.PartNumber
	Value string `json:"value"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	u, err := s.service.CreateUser(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "CreateUser", u, "")
}

// handleGetUserData returns the user with every reference expanded.
func (s *Server) handleGetUserData(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetUserData(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "GetUserData", data, "")
}

// handleAllocatePartNumber allocates the next sequence for a category pair.
// Both fields are required so a missing one is not read as zero.
func (s *Server) handleAllocatePartNumber(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Category == nil {
		s.respondError(w, r, &core.ValidationError{Field: "category", Message: "is required"})
		return
	}
	if req.SubCategory == nil {
		s.respondError(w, r, &core.ValidationError{Field: "subcategory", Message: "is required"})
		return
	}

	pn, err := s.service.AllocatePartNumber(r.Context(), chi.URLParam(r, "userID"), *req.Category, *req.SubCategory)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "AllocatePartNumber",
		PartNumberResponse{PartNumber: pn, Value: pn.String()},
		fmt.Sprintf("allocated %s", pn))
}

func (s *Server) handleAppendReference(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req referenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := s.service.AppendReference(r.Context(), userID, req.ModelID, sel); err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "AppendReference", nil,
		fmt.Sprintf("added %s to %s", req.ModelID, sel))
}

func (s *Server) handleRemoveReference(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	modelID := chi.URLParam(r, "modelID")
	if err := s.service.RemoveReference(r.Context(), userID, modelID, sel); err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "RemoveReference", nil,
		fmt.Sprintf("removed %s from %s", modelID, sel))
}

func (s *Server) handleCreatePart(w http.ResponseWriter, r *http.Request) {
	var p model.Part
	if err := decodeJSON(w, r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.service.CreatePart(r.Context(), chi.URLParam(r, "userID"), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "CreatePart", created, "")
}

func (s *Server) handleCreateBin(w http.ResponseWriter, r *http.Request) {
	var b model.Bin
	if err := decodeJSON(w, r, &b); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.service.CreateBin(r.Context(), chi.URLParam(r, "userID"), b)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "CreateBin", created, "")
}

func (s *Server) handleGetPartNumber(w http.ResponseWriter, r *http.Request) {
	pn, err := s.service.GetPartNumber(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "GetPartNumber", PartNumberResponse{PartNumber: pn, Value: pn.String()}, "")
}

// handleParsePartNumber decodes ?value= leniently; malformed segments read
// as zero.
func (s *Server) handleParsePartNumber(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("value")
	if raw == "" {
		s.respondError(w, r, &core.ValidationError{Field: "value", Message: "is required"})
		return
	}
	pn, canonical := core.ParsePartNumber(raw)
	respond(w, http.StatusOK, "ParsePartNumber", PartNumberResponse{PartNumber: pn, Value: canonical}, "")
}

func selectorParam(r *http.Request) (model.Selector, error) {
	raw := chi.URLParam(r, "selector")
	sel, err := model.ParseSelector(raw)
	if err != nil {
		return "", &core.ValidationError{Field: "selector", Value: raw, Message: err.Error()}
	}
	return sel, nil
}
