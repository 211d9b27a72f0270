package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailvoice/internal/domain"
)

const gmailUser = "me"

type Gmail struct {
	svc *gmail.Service
}

func NewGmail(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Gmail, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Gmail{svc: svc}, nil
}

func (g *Gmail) List(ctx context.Context, query string, maxResults int) ([]domain.MessageSummary, error) {
	call := g.svc.Users.Messages.List(gmailUser).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]domain.MessageSummary, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, domain.MessageSummary{ID: m.Id, ThreadID: m.ThreadId})
	}
	return out, nil
}

func (g *Gmail) Get(ctx context.Context, id string) (domain.Message, error) {
	m, err := g.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return domain.Message{}, fmt.Errorf("get message %s: %w", id, notFound(err))
	}
	return convertMessage(m), nil
}

func (g *Gmail) Send(ctx context.Context, raw []byte) (string, error) {
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := g.svc.Users.Messages.Send(gmailUser, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return sent.Id, nil
}

func (g *Gmail) Trash(ctx context.Context, id string) error {
	if _, err := g.svc.Users.Messages.Trash(gmailUser, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trash message %s: %w", id, notFound(err))
	}
	return nil
}

func (g *Gmail) ModifyLabels(ctx context.Context, id string, remove, add []string) error {
	req := &gmail.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	if _, err := g.svc.Users.Messages.Modify(gmailUser, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("modify labels %s: %w", id, notFound(err))
	}
	return nil
}

func notFound(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func convertMessage(m *gmail.Message) domain.Message {
	out := domain.Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		LabelIDs: m.LabelIds,
		Headers:  map[string]string{},
	}
	if m.Payload == nil {
		return out
	}
	for _, h := range m.Payload.Headers {
		if _, seen := out.Headers[h.Name]; !seen {
			out.Headers[h.Name] = h.Value
		}
	}
	out.Body = plainText(m.Payload)
	return out
}

// plainText returns the first text/plain part, depth first.
func plainText(p *gmail.MessagePart) string {
	if p == nil {
		return ""
	}
	if strings.HasPrefix(p.MimeType, "text/plain") && p.Body != nil && p.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(p.Body.Data)
		if err != nil {
			data, err = base64.RawURLEncoding.DecodeString(p.Body.Data)
		}
		if err == nil {
			return string(data)
		}
	}
	for _, part := range p.Parts {
		if text := plainText(part); text != "" {
			return text
		}
	}
	return ""
}
