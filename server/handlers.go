package server

import (
	"io"
	"io/ioutil"
	"net/http"

	"github.com/Daskott/favdial/blobstore"
	"github.com/Daskott/favdial/favorites"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// Avatars above this are rejected outright; the blob store only warns above
// blobstore.MAX_RECOMMENDED_SIZE.
const MAX_AVATAR_UPLOAD = 4 * blobstore.MAX_RECOMMENDED_SIZE

type positionRequest struct {
	Index *int `json:"index"`
}

type nameRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) health(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	s.writeData(rw, map[string]string{"state": s.manager.State().String()}, http.StatusOK)
}

func (s *Server) listFavorites(rw http.ResponseWriter, r *http.Request) {
	collection, err := s.manager.List()
	if err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeData(rw, collection, http.StatusOK)
}

func (s *Server) addFavorite(rw http.ResponseWriter, r *http.Request) {
	input := favorites.NewFavorite{}
	if err := decodeBody(r, &input); err != nil {
		s.writeError(rw, err)
		return
	}

	id, err := s.manager.Add(input)
	if err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeData(rw, map[string]string{"id": id}, http.StatusCreated)
}

func (s *Server) getFavorite(rw http.ResponseWriter, r *http.Request) {
	record, err := s.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeData(rw, record, http.StatusOK)
}

func (s *Server) removeFavorite(rw http.ResponseWriter, r *http.Request) {
	if err := s.manager.Remove(mux.Vars(r)["id"]); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) moveFavorite(rw http.ResponseWriter, r *http.Request) {
	data := positionRequest{}
	if err := decodeBody(r, &data); err != nil {
		s.writeError(rw, err)
		return
	}

	if data.Index == nil {
		s.writeError(rw, errors.Wrap(errBadRequest, "'index' is required"))
		return
	}

	if err := s.manager.Move(mux.Vars(r)["id"], *data.Index); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) updateRouting(rw http.ResponseWriter, r *http.Request) {
	routing := favorites.Routing{}
	if err := decodeBody(r, &routing); err != nil {
		s.writeError(rw, err)
		return
	}

	if err := s.manager.UpdateRouting(mux.Vars(r)["id"], routing); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) renameFavorite(rw http.ResponseWriter, r *http.Request) {
	data := nameRequest{}
	if err := decodeBody(r, &data); err != nil {
		s.writeError(rw, err)
		return
	}

	if err := s.manager.Rename(mux.Vars(r)["id"], data.DisplayName); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) resolveTarget(rw http.ResponseWriter, r *http.Request) {
	target, err := s.manager.Resolve(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeData(rw, map[string]string{"target": target}, http.StatusOK)
}

func (s *Server) refreshFavorite(rw http.ResponseWriter, r *http.Request) {
	task := s.manager.LazyFetch(mux.Vars(r)["id"])

	select {
	case <-task.Done():
	case <-r.Context().Done():
		// The client went away; the lookup result is no longer needed
		task.Cancel()
		return
	}

	result, err := task.Wait()
	if err != nil {
		s.writeError(rw, err)
		return
	}

	snapshot := result.(*favorites.Snapshot)
	s.writeData(rw, map[string]interface{}{
		"favorite":         snapshot.Record,
		"directoryReached": snapshot.Contact != nil,
	}, http.StatusOK)
}

func (s *Server) getAvatar(rw http.ResponseWriter, r *http.Request) {
	data, found, err := s.manager.Avatar(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(rw, err)
		return
	}

	if !found {
		s.writeResponse(rw, ResponsePayload{Errors: []string{"no custom avatar"}}, http.StatusNotFound)
		return
	}

	rw.Header().Set("Content-Type", "image/jpeg")
	rw.WriteHeader(http.StatusOK)
	rw.Write(data)
}

func (s *Server) updateAvatar(rw http.ResponseWriter, r *http.Request) {
	data, err := ioutil.ReadAll(io.LimitReader(r.Body, MAX_AVATAR_UPLOAD+1))
	if err != nil {
		s.writeError(rw, errors.Wrap(errBadRequest, err.Error()))
		return
	}

	if len(data) == 0 || len(data) > MAX_AVATAR_UPLOAD {
		s.writeError(rw, errors.Wrapf(errBadRequest, "avatar must be between 1 and %v bytes", MAX_AVATAR_UPLOAD))
		return
	}

	if err := s.manager.UpdateAvatar(r.Context(), mux.Vars(r)["id"], data); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) clearAvatar(rw http.ResponseWriter, r *http.Request) {
	if err := s.manager.UpdateAvatar(r.Context(), mux.Vars(r)["id"], nil); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) collectGarbage(rw http.ResponseWriter, r *http.Request) {
	result, err := s.manager.CollectGarbage()
	if err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeData(rw, map[string]interface{}{"scanned": result.Scanned, "deleted": result.Deleted}, http.StatusOK)
}
