// Package contact stores messages sent through the public contact form.
package contact

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"invizible.art/internal/apperr"
	"invizible.art/internal/obs"
)

const (
	maxFieldLen   = 255
	maxMessageLen = 2000
)

// Form is one submitted contact message.
type Form struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Unread    bool      `json:"unread"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists contact forms.
type Store interface {
	Insert(ctx context.Context, f *Form) error
}

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store) *Service {
	return &Service{store: store, log: obs.Logger().Named("contact")}
}

func checkLen(field, v string, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n < 1 || n > max {
		return apperr.Validation("%s must be between 1 and %d characters", field, max)
	}
	return nil
}

func (f *Form) validate() error {
	for _, c := range []struct {
		field string
		value string
	}{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"email", f.Email},
		{"subject", f.Subject},
	} {
		if err := checkLen(c.field, c.value, maxFieldLen); err != nil {
			return err
		}
	}
	if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != strings.TrimSpace(f.Email) {
		return apperr.Validation("email must be a valid address")
	}
	return checkLen("message", f.Message, maxMessageLen)
}

// Submit validates and stores a contact form.
func (s *Service) Submit(ctx context.Context, f Form) (*Form, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	f.Email = strings.TrimSpace(f.Email)
	f.Unread = true
	f.Starred = false
	if err := s.store.Insert(ctx, &f); err != nil {
		return nil, apperr.Internal(err, "failed to submit contact form")
	}
	s.log.Info("contact form received", zap.Int64("form_id", f.ID))
	return &f, nil
}
