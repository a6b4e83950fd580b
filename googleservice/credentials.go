package googleservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Daskott/favdial/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleAppCredentials is the "installed app" OAuth client downloaded from the
// Google cloud console.
type GoogleAppCredentials struct {
	Installed InstalledType `json:"installed" mapstructure:"installed"`
}

type InstalledType struct {
	ClientId                string   `json:"client_id" mapstructure:"client_id"`
	ProjectId               string   `json:"project_id" mapstructure:"project_id"`
	AuthURI                 string   `json:"auth_uri" mapstructure:"auth_uri"`
	TokenURI                string   `json:"token_uri" mapstructure:"token_uri"`
	AuthProviderx509CertURL string   `json:"auth_provider_x509_cert_url" mapstructure:"auth_provider_x509_cert_url"`
	ClientSecret            string   `json:"client_secret" mapstructure:"client_secret"`
	RedirectUris            []string `json:"redirect_uris" mapstructure:"redirect_uris"`
}

// OAuthConfig builds the OAuth client config for the given scopes.
func (credentials GoogleAppCredentials) OAuthConfig(scopes ...string) (*oauth2.Config, error) {
	b, err := json.Marshal(credentials)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode client credentials")
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse client credentials")
	}
	return config, nil
}

// TokenPrompt asks the user to authorise access and returns the code they paste back.
type TokenPrompt struct {
	In  io.Reader
	Out io.Writer
}

// getClient returns a client authorised with the token cached at tokenFilePath,
// asking the user for a new token when the cached one can no longer be renewed.
func getClient(ctx context.Context, config *oauth2.Config, tokenFilePath string, prompt TokenPrompt) (*http.Client, error) {
	token, err := tokenFromFile(tokenFilePath)

	// TokenSource renews an expired token when it still can
	if err == nil {
		token, err = config.TokenSource(ctx, token).Token()
	}

	if err != nil || !token.Valid() {
		token, err = getTokenFromWeb(ctx, config, prompt)
		if err != nil {
			return nil, err
		}

		if err := saveToken(tokenFilePath, token); err != nil {
			return nil, err
		}
		fmt.Fprintf(prompt.Out, "Saved credential file to: %s\n", tokenFilePath)
	}

	return config.Client(ctx, token), nil
}

// Request a token from the web, then returns the retrieved token.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, prompt TokenPrompt) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(prompt.Out, "Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Fscan(prompt.In, &authCode); err != nil {
		return nil, errors.Wrap(err, "unable to read authorization code")
	}

	token, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve token from web")
	}
	return token, nil
}

// Retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// Saves a token to a file path.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "unable to encode oauth token")
	}

	return errors.Wrap(utils.WriteFileAtomic(path, data, 0600), "unable to cache oauth token")
}
