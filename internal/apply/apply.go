// Package apply implements the public application intake flow. Validation
// runs twice: once for the confirm screen, and again on submit, so a client
// that skips the confirm step cannot slip an invalid record into the table.
package apply

import (
	"context"
	"regexp"
	"strings"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/telemetry"
)

// MaxMessageLength bounds the free-text message field.
const MaxMessageLength = 2000

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Phone numbers may carry a leading +, hyphens, and spaces. At least
	// ten digits must remain once separators are stripped.
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\- ]*$`)
)

// Input is an applicant's submission from the public job page.
type Input struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Message string `json:"message"`
}

// FieldErrors maps field names to human-readable problems. An empty map
// means the input is acceptable.
type FieldErrors map[string]string

// Valid reports whether the input passed validation.
func (e FieldErrors) Valid() bool { return len(e) == 0 }

// Service validates and stores public applications.
type Service struct {
	repo *repositories.ApplicationRepository
}

// NewService creates an application intake service.
func NewService(repo *repositories.ApplicationRepository) *Service {
	return &Service{repo: repo}
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func validContact(contact string) bool {
	if emailPattern.MatchString(contact) {
		return true
	}
	return phonePattern.MatchString(contact) && digitCount(contact) >= 10
}

// Validate checks an application without persisting anything. The same rules
// back both the confirm screen and the final submit.
func Validate(in Input) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = "Name is required"
	}

	contact := strings.TrimSpace(in.Contact)
	if contact == "" {
		errs["contact"] = "Contact is required"
	} else if !validContact(contact) {
		errs["contact"] = "Contact must be an email address or phone number"
	}

	if len([]rune(in.Message)) > MaxMessageLength {
		errs["message"] = "Message is too long"
	}

	return errs
}

// Submit validates the input and inserts the application. The stored record
// always starts pending regardless of anything the client sent. Notification
// e-mail is handled later by the background notifier; a broken mail setup
// never fails the submit.
func (s *Service) Submit(ctx context.Context, orgID, pubID string, in Input) (*models.Application, FieldErrors, error) {
	if errs := Validate(in); !errs.Valid() {
		return nil, errs, nil
	}

	app := &models.Application{
		OrgID:    orgID,
		JobPubID: pubID,
		Name:     strings.TrimSpace(in.Name),
		Contact:  strings.TrimSpace(in.Contact),
		Message:  in.Message,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, nil, err
	}

	telemetry.ApplicationsSubmittedTotal.Inc()
	return app, nil, nil
}
