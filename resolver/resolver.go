package resolver

import (
	"fmt"
	"strings"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrValidation = errors.New("unsupported communication target")

	// ErrIncompatibleIdentity means the record has no identity the chosen
	// app can address, e.g. only an email for a phone-only app.
	ErrIncompatibleIdentity = errors.New("incompatible identity")
)

// ValidationError names the combination that could not be resolved.
type ValidationError struct {
	Method models.CommunicationMethod
	App    models.CommunicationApp
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot resolve %v via %v: %v", e.Method, e.App, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Resolver turns a routing preference into a connection URI. It holds no state
// besides its logger.
type Resolver struct {
	logg *zap.SugaredLogger
}

func New(logg *zap.SugaredLogger) *Resolver {
	return &Resolver{logg: logger.OrNop(logg)}
}

// Resolve with a no-op logger.
func Resolve(method models.CommunicationMethod, app models.CommunicationApp, phoneNumber, emailAddress string) (string, error) {
	return New(nil).Resolve(method, app, phoneNumber, emailAddress)
}

// ResolveRecord resolves the routing stored on favorite.
func (r *Resolver) ResolveRecord(favorite models.FavoriteRecord) (string, error) {
	return r.Resolve(favorite.Method, favorite.App, favorite.PhoneNumber, favorite.EmailAddress)
}

func (r *Resolver) Resolve(method models.CommunicationMethod, app models.CommunicationApp, phoneNumber, emailAddress string) (string, error) {
	if !method.IsValid() {
		return "", &ValidationError{Method: method, App: app, Err: errors.Errorf("unknown method %q", method)}
	}

	tgt, ok := targets[targetKey{method, app}]
	if !ok {
		fallback := fallbackApps[method]
		r.logg.Warnf("%sno target for %v via %q, falling back to %v",
			colors.Prefix(colors.Yellow, "resolver"), method, app, fallback)

		app = fallback
		tgt = targets[targetKey{method, app}]
	}

	phoneNumber = strings.TrimSpace(phoneNumber)
	emailAddress = strings.TrimSpace(emailAddress)

	identity, err := tgt.identityFor(phoneNumber, emailAddress)
	if err != nil {
		return "", &ValidationError{Method: method, App: app, Err: err}
	}

	return fmt.Sprintf(tgt.template, identity), nil
}

func (t target) identityFor(phoneNumber, emailAddress string) (string, error) {
	if emailAddress != "" {
		if t.identity != phoneOrEmailIdentity {
			return "", errors.Wrap(ErrIncompatibleIdentity, "app cannot be reached by email")
		}
		return emailAddress, nil
	}

	if phoneNumber == "" {
		return "", errors.Wrap(ErrIncompatibleIdentity, "no phone number")
	}

	if t.format == rawFormat {
		return phoneNumber, nil
	}

	digits := normalizeDigits(phoneNumber)
	if digits == "" {
		return "", errors.Wrapf(ErrIncompatibleIdentity, "%q has no digits", phoneNumber)
	}
	return digits, nil
}

// normalizeDigits strips formatting and any leading "+".
func normalizeDigits(phoneNumber string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phoneNumber)
}
