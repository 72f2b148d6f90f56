package api

import (
	"net/http"

	"github.com/pbaille/ace/internal/progress"
)

// MembershipResponse reports a word's membership after a change
type MembershipResponse struct {
	Set    progress.Set `json:"set"`
	ID     string       `json:"id"`
	Member bool         `json:"member"`
}

func (s *Server) pathSet(w http.ResponseWriter, r *http.Request) (progress.Set, bool) {
	set, err := progress.ParseSet(r.PathValue("set"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return set, true
}

func (s *Server) listProgress(w http.ResponseWriter, r *http.Request) {
	set, ok := s.pathSet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"set": set,
		"ids": s.Progress.List(set),
	})
}

func (s *Server) addProgress(w http.ResponseWriter, r *http.Request) {
	set, ok := s.pathSet(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	s.Progress.Add(set, id)
	writeJSON(w, http.StatusOK, MembershipResponse{Set: set, ID: id, Member: true})
}

func (s *Server) removeProgress(w http.ResponseWriter, r *http.Request) {
	set, ok := s.pathSet(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	s.Progress.Remove(set, id)
	writeJSON(w, http.StatusOK, MembershipResponse{Set: set, ID: id, Member: false})
}

func (s *Server) toggleProgress(w http.ResponseWriter, r *http.Request) {
	set, ok := s.pathSet(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	member := s.Progress.Toggle(set, id)
	writeJSON(w, http.StatusOK, MembershipResponse{Set: set, ID: id, Member: member})
}

func (s *Server) clearProgress(w http.ResponseWriter, r *http.Request) {
	set, ok := s.pathSet(w, r)
	if !ok {
		return
	}
	s.Progress.Clear(set)
	w.WriteHeader(http.StatusNoContent)
}

// reloadProgress drops cached sets so changes made by another process
// sharing the database become visible.
func (s *Server) reloadProgress(w http.ResponseWriter, r *http.Request) {
	s.Progress.Reload()
	w.WriteHeader(http.StatusNoContent)
}
