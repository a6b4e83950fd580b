package shared

import (
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
)

const (
	BACKEND_FILE   = "file"
	BACKEND_SQLITE = "sqlite"

	DIRECTORY_NONE   = "none"
	DIRECTORY_VCARD  = "vcard"
	DIRECTORY_GOOGLE = "google"
)

var validate = validator.New()

// Validate checks cfg, including the rules that span sections.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if cfg.Store.Backend == BACKEND_SQLITE && cfg.Sqlite.PassPhrase == "" {
		return errors.New("invalid config: 'sqlite.passPhrase' is required for the sqlite backend")
	}

	switch cfg.Directory.Source {
	case DIRECTORY_VCARD:
		if cfg.Directory.VCardFile == "" {
			return errors.New("invalid config: 'directory.vcardFile' is required for the vcard directory")
		}
	case DIRECTORY_GOOGLE:
		if cfg.Google.OAuthClientFile == "" || cfg.Directory.TokenFile == "" {
			return errors.New("invalid config: 'google.oauthClientFile' and 'directory.tokenFile' are required for the google directory")
		}
	}

	return nil
}
