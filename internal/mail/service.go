// Package mail holds the mail service contract the dispatcher consumes and
// the adapters behind it.
package mail

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"mailvoice/internal/domain"
)

var ErrNotFound = errors.New("message not found")

// Service is the narrow view of a mailbox. Send takes an RFC 2822 message
// and returns the id the backend assigned to it.
type Service interface {
	List(ctx context.Context, query string, maxResults int) ([]domain.MessageSummary, error)
	Get(ctx context.Context, id string) (domain.Message, error)
	Send(ctx context.Context, raw []byte) (string, error)
	Trash(ctx context.Context, id string) error
	ModifyLabels(ctx context.Context, id string, remove, add []string) error
}

// Labels used by the handlers.
const (
	LabelUnread    = "UNREAD"
	LabelImportant = "IMPORTANT"
	LabelInbox     = "INBOX"
)

// Kind sorts a mail error into the failure taxonomy the dispatcher logs.
func Kind(err error) domain.FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) {
		return domain.FailureNotFound
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.FailureUnavailable
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.FailureAuth
		case http.StatusNotFound:
			return domain.FailureNotFound
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return domain.FailureAuth
	}
	return domain.FailureTransport
}
