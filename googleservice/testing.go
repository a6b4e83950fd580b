package googleservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"google.golang.org/api/option"
	people "google.golang.org/api/people/v1"
)

// FakePeopleServer serves People API lookups from Persons, keyed by resource
// name. Photo urls may point at PhotoPath on the same server.
type FakePeopleServer struct {
	*httptest.Server

	Persons map[string]*people.Person
	Photos  map[string][]byte
}

const PhotoPath = "/photos/"

func NewFakePeopleServer() *FakePeopleServer {
	fake := &FakePeopleServer{Persons: map[string]*people.Person{}, Photos: map[string][]byte{}}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	return fake
}

// Directory returns a PeopleDirectory talking to the fake server.
func (fake *FakePeopleServer) Directory(ctx context.Context) (*PeopleDirectory, error) {
	return NewPeopleDirectory(ctx, fake.Client(),
		option.WithEndpoint(fake.URL+"/"),
		option.WithoutAuthentication(),
	)
}

func (fake *FakePeopleServer) serve(rw http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, PhotoPath) {
		photo, ok := fake.Photos[strings.TrimPrefix(r.URL.Path, PhotoPath)]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		rw.Write(photo)
		return
	}

	person, ok := fake.Persons[strings.TrimPrefix(r.URL.Path, "/v1/")]
	if !ok {
		rw.WriteHeader(http.StatusNotFound)
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": http.StatusNotFound, "message": "Requested entity was not found."},
		})
		return
	}

	json.NewEncoder(rw).Encode(person)
}
