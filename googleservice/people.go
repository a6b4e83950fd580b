package googleservice

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/Daskott/favdial/directory"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	people "google.golang.org/api/people/v1"
)

const (
	resourcePrefix = "people/"

	// Photos are only fetched for transient rendering; anything bigger is skipped.
	maxPhotoBytes = 1 << 20
)

// PeopleDirectory looks favorites up in the user's Google contacts. Contact
// refs are People API resource names, e.g. "people/c1234".
type PeopleDirectory struct {
	service    *people.Service
	httpClient *http.Client
}

// NewPeopleDirectory connects with an already authorised set of client options.
func NewPeopleDirectory(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*PeopleDirectory, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create people client")
	}

	return &PeopleDirectory{service: service, httpClient: httpClient}, nil
}

// NewPeopleDirectoryFromCredentials runs the OAuth flow for read-only contact
// access, caching the token at tokenFilePath.
func NewPeopleDirectoryFromCredentials(ctx context.Context, credentials GoogleAppCredentials, tokenFilePath string, prompt TokenPrompt) (*PeopleDirectory, error) {
	// If modifying these scopes, delete the previously saved token file.
	config, err := credentials.OAuthConfig(people.ContactsReadonlyScope)
	if err != nil {
		return nil, err
	}

	client, err := getClient(ctx, config, tokenFilePath, prompt)
	if err != nil {
		return nil, err
	}

	return NewPeopleDirectory(ctx, client)
}

func (pd *PeopleDirectory) Fetch(ctx context.Context, ref string, fields directory.Fields) (*directory.Contact, error) {
	resourceName := ref
	if !strings.HasPrefix(resourceName, resourcePrefix) {
		resourceName = resourcePrefix + resourceName
	}

	person, err := pd.service.People.Get(resourceName).
		PersonFields(personFields(fields)).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, errors.Wrapf(directory.ErrNotFound, "%v", ref)
		}
		return nil, errors.Wrapf(err, "PeopleDirectory.Fetch: %v", ref)
	}

	contact := &directory.Contact{Ref: ref}
	if name := primaryName(person.Names); name != nil {
		contact.GivenName = name.GivenName
		contact.FamilyName = name.FamilyName
		contact.DisplayName = name.DisplayName
	}

	for _, phone := range person.PhoneNumbers {
		contact.PhoneNumbers = append(contact.PhoneNumbers, phone.Value)
	}

	for _, email := range person.EmailAddresses {
		contact.EmailAddresses = append(contact.EmailAddresses, email.Value)
	}

	if fields.ImageBytes {
		// The photo is optional; a failed download leaves the contact without one.
		contact.ImageBytes, _ = pd.photo(ctx, person.Photos)
	}

	return contact, nil
}

func (pd *PeopleDirectory) photo(ctx context.Context, photos []*people.Photo) ([]byte, error) {
	for _, photo := range photos {
		if photo.Default || photo.Url == "" {
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, photo.Url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := pd.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("photo download: %v", resp.Status)
		}
		return ioutil.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	}

	return nil, nil
}

func personFields(fields directory.Fields) string {
	selected := []string{}
	if fields.Names {
		selected = append(selected, "names")
	}
	if fields.PhoneNumbers {
		selected = append(selected, "phoneNumbers")
	}
	if fields.EmailAddresses {
		selected = append(selected, "emailAddresses")
	}
	if fields.ImageBytes {
		selected = append(selected, "photos")
	}

	// The API rejects an empty field mask
	if len(selected) == 0 {
		selected = append(selected, "names")
	}
	return strings.Join(selected, ",")
}

func primaryName(names []*people.Name) *people.Name {
	for _, name := range names {
		if name.Metadata != nil && name.Metadata.Primary {
			return name
		}
	}

	if len(names) > 0 {
		return names[0]
	}
	return nil
}
