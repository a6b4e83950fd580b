package server

import (
	"encoding/json"
	"net/http"

	"github.com/Daskott/favdial/favorites"
	"github.com/Daskott/favdial/recordstore"
	"github.com/Daskott/favdial/resolver"
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		s.logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		s.logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func (s *Server) writeData(rw http.ResponseWriter, data interface{}, statusCode int) {
	s.writeResponse(rw, ResponsePayload{Success: true, Data: data}, statusCode)
}

func (s *Server) writeError(rw http.ResponseWriter, err error) {
	s.writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, statusFor(err))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, favorites.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, favorites.ErrInvalidFavorite),
		errors.Is(err, favorites.ErrIndexOutOfRange),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, recordstore.ErrOversize):
		return http.StatusInsufficientStorage
	case errors.Is(err, favorites.ErrNotLoaded),
		errors.Is(err, favorites.ErrMigrating),
		errors.Is(err, favorites.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, data interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(data); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}
