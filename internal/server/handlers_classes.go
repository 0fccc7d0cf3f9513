package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type classRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	var name, description string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	class, err := s.classes.CreateClass(r.Context(), currentUser(r).ID, name, description)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, class)
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	list, err := s.classes.ListForUser(r.Context(), currentUser(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"classes": list})
}

func (s *Server) handleClassDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.classes.Detail(r.Context(), chi.URLParam(r, "classID"), currentUser(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleEditClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	class, err := s.classes.EditClass(r.Context(), chi.URLParam(r, "classID"), currentUser(r).ID, req.Name, req.Description)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, class)
}

func (s *Server) handleJoinClass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	m, err := s.classes.Join(r.Context(), chi.URLParam(r, "classID"), currentUser(r).ID, req.InviteCode)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleRegenerateInvite(w http.ResponseWriter, r *http.Request) {
	code, err := s.classes.RegenerateInvite(r.Context(), chi.URLParam(r, "classID"), currentUser(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"invite_code": code})
}

func (s *Server) handleApproveMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.classes.Approve(r.Context(), chi.URLParam(r, "classID"), currentUser(r).ID, chi.URLParam(r, "userID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}
