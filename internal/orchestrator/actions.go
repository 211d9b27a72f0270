package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mailvoice/internal/commands"
	"mailvoice/internal/conversation"
	"mailvoice/internal/domain"
	"mailvoice/internal/fallback"
	"mailvoice/internal/intent"
	"mailvoice/internal/mail"
)

const (
	defaultListSize = 5
	maxListSize     = 10
)

type Improver interface {
	Improve(ctx context.Context, text string) (string, error)
}

// MailActions binds intents and registry phrases to mail operations.
type MailActions struct {
	mail     mail.Service
	improver Improver
	logger   *zap.Logger
}

func NewMailActions(svc mail.Service, improver Improver, logger *zap.Logger) *MailActions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailActions{mail: svc, improver: improver, logger: logger}
}

// Bind registers the intent handlers on d.
func (a *MailActions) Bind(d *Dispatcher) {
	d.BindIntent(domain.IntentReadEmail, a.ReadEmail)
	d.BindIntent(domain.IntentSendEmail, a.SendEmail)
	d.BindIntent(domain.IntentDeleteEmail, a.DeleteEmail)
	d.BindIntent(domain.IntentSearchEmail, a.SearchEmail)
	d.BindIntent(domain.IntentListUnread, a.ListUnread)
	d.BindIntent(domain.IntentListImportant, a.ListImportant)
	d.BindIntent(domain.IntentImproveWriting, a.ImproveWriting)
}

// DefaultCommands registers the fixed voice commands, in match order.
func DefaultCommands(reg *commands.Registry, a *MailActions, history *conversation.Context) {
	withSlots := func(in domain.Intent, h IntentHandler) commands.Handler {
		return func(ctx context.Context, text string) domain.Result {
			return h(ctx, intent.SlotsFor(text, in), text)
		}
	}
	reg.Register("read email", withSlots(domain.IntentReadEmail, a.ReadEmail))
	reg.Register("send email", withSlots(domain.IntentSendEmail, a.SendEmail))
	reg.Register("check inbox", a.CheckInbox)
	reg.Register("delete email", withSlots(domain.IntentDeleteEmail, a.DeleteEmail))
	reg.Register("mark as read", a.MarkAsRead)
	reg.Register("help", func(context.Context, string) domain.Result {
		return domain.OK("Available commands are: " + strings.Join(reg.Phrases(), ", "))
	})
	reg.Register("clear conversation", func(context.Context, string) domain.Result {
		history.Clear()
		return domain.OK("Conversation cleared.")
	})
}

func (a *MailActions) ReadEmail(ctx context.Context, slots domain.Slots, text string) domain.Result {
	query := mail.BuildQuery(slots)
	if hasWord(text, "unread") {
		query = joinQuery("is:unread", query)
	}
	msgs, err := a.fetch(ctx, query, count(slots, 1))
	if err != nil {
		return fail("read_email", err)
	}
	if len(msgs) == 0 {
		return domain.OK("No emails found")
	}
	if len(msgs) == 1 {
		resp := "Latest email subject: " + subjectOf(msgs[0])
		if from := msgs[0].From(); from != "" {
			resp += ", from " + from
		}
		return domain.OK(resp)
	}
	return domain.OK(fmt.Sprintf("Your latest %d emails: %s", len(msgs), describeAll(msgs)))
}

func (a *MailActions) SendEmail(ctx context.Context, slots domain.Slots, _ string) domain.Result {
	to, ok := slots.Get(domain.SlotRecipient)
	if !ok {
		return domain.OK("Who should I send the email to?")
	}
	subject, _ := slots.Get(domain.SlotSubject)
	body, _ := slots.Get(domain.SlotBody)

	raw, err := mail.Compose(mail.Draft{To: to, Subject: subject, Body: body})
	if err != nil {
		return domain.OK("I couldn't understand the address " + to + ".")
	}
	if _, err := a.mail.Send(ctx, raw); err != nil {
		return fail("send_email", err)
	}
	return domain.OK("Email sent successfully")
}

func (a *MailActions) DeleteEmail(ctx context.Context, slots domain.Slots, _ string) domain.Result {
	list, err := a.mail.List(ctx, mail.BuildQuery(slots), 1)
	if err != nil {
		return fail("delete_email", err)
	}
	if len(list) == 0 {
		return domain.OK("No emails to delete")
	}
	if err := a.mail.Trash(ctx, list[0].ID); err != nil {
		return fail("delete_email", err)
	}
	return domain.OK("Email deleted")
}

func (a *MailActions) SearchEmail(ctx context.Context, slots domain.Slots, _ string) domain.Result {
	query := mail.BuildQuery(slots)
	if query == "" {
		return domain.OK("What should I search for?")
	}
	msgs, err := a.fetch(ctx, query, count(slots, defaultListSize))
	if err != nil {
		return fail("search_email", err)
	}
	if len(msgs) == 0 {
		return domain.OK("No emails found")
	}
	return domain.OK(fmt.Sprintf("Found %d %s: %s", len(msgs), plural(len(msgs), "email"), describeAll(msgs)))
}

func (a *MailActions) ListUnread(ctx context.Context, slots domain.Slots, _ string) domain.Result {
	return a.listLabelled(ctx, "list_unread", "is:unread", "unread", slots)
}

func (a *MailActions) ListImportant(ctx context.Context, slots domain.Slots, _ string) domain.Result {
	return a.listLabelled(ctx, "list_important", "is:important", "important", slots)
}

func (a *MailActions) listLabelled(ctx context.Context, op, filter, adjective string, slots domain.Slots) domain.Result {
	msgs, err := a.fetch(ctx, joinQuery(filter, mail.BuildQuery(slots)), count(slots, defaultListSize))
	if err != nil {
		return fail(op, err)
	}
	if len(msgs) == 0 {
		return domain.OK("You have no " + adjective + " emails")
	}
	return domain.OK(fmt.Sprintf("You have %d %s %s: %s", len(msgs), adjective, plural(len(msgs), "email"), describeAll(msgs)))
}

func (a *MailActions) ImproveWriting(ctx context.Context, _ domain.Slots, text string) domain.Result {
	draft := textToImprove(text)
	if draft == "" {
		return domain.OK("What text would you like me to improve?")
	}
	if a.improver == nil {
		return domain.Fail("improve_writing", domain.FailureUnavailable, fallback.ErrUnavailable)
	}
	improved, err := a.improver.Improve(ctx, draft)
	if err != nil {
		kind := domain.FailureTransport
		if errors.Is(err, fallback.ErrUnavailable) {
			kind = domain.FailureUnavailable
		}
		return domain.Fail("improve_writing", kind, err)
	}
	if improved == "" {
		improved = draft
	}
	return domain.OK("Here is an improved version: " + improved)
}

func (a *MailActions) CheckInbox(ctx context.Context, _ string) domain.Result {
	msgs, err := a.fetch(ctx, "in:inbox", defaultListSize)
	if err != nil {
		return fail("check_inbox", err)
	}
	if len(msgs) == 0 {
		return domain.OK("Your inbox is empty")
	}
	return domain.OK(fmt.Sprintf("You have %d recent %s in your inbox: %s", len(msgs), plural(len(msgs), "email"), describeAll(msgs)))
}

func (a *MailActions) MarkAsRead(ctx context.Context, _ string) domain.Result {
	list, err := a.mail.List(ctx, "is:unread", 1)
	if err != nil {
		return fail("mark_as_read", err)
	}
	if len(list) == 0 {
		return domain.OK("You have no unread emails")
	}
	if err := a.mail.ModifyLabels(ctx, list[0].ID, []string{mail.LabelUnread}, nil); err != nil {
		return fail("mark_as_read", err)
	}
	return domain.OK("Email marked as read")
}

func (a *MailActions) fetch(ctx context.Context, query string, n int) ([]domain.Message, error) {
	list, err := a.mail.List(ctx, query, n)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(list))
	for _, s := range list {
		m, err := a.mail.Get(ctx, s.ID)
		if errors.Is(err, mail.ErrNotFound) {
			a.logger.Debug("message vanished between list and get", zap.String("id", s.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func fail(op string, err error) domain.Result {
	return domain.Fail(op, mail.Kind(err), err)
}

func count(slots domain.Slots, def int) int {
	v, ok := slots.Get(domain.SlotMaxResults)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxListSize {
		return maxListSize
	}
	return n
}

func describeAll(msgs []domain.Message) string {
	parts := make([]string, 0, len(msgs))
	for i, m := range msgs {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, mail.Describe(m)))
	}
	return strings.Join(parts, "; ")
}

func subjectOf(m domain.Message) string {
	if s := m.Subject(); s != "" {
		return s
	}
	return "(no subject)"
}

func joinQuery(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func hasWord(text, word string) bool {
	for _, tok := range domain.Tokenize(text) {
		if tok == word {
			return true
		}
	}
	return false
}

// textToImprove returns what follows "saying"/"body", or else what follows
// the first "improve" or "suggestion" word.
func textToImprove(text string) string {
	if body := intent.ExtractBody(text); body != "" {
		return body
	}
	fields := strings.Fields(text)
	for i, f := range fields {
		w := strings.ToLower(strings.Trim(f, ",.:;!?\"'"))
		if strings.HasPrefix(w, "improve") || strings.HasPrefix(w, "suggestion") {
			rest := fields[i+1:]
			if len(rest) > 0 && strings.EqualFold(strings.Trim(rest[0], ":,"), "this") {
				rest = rest[1:]
			}
			return strings.TrimSpace(strings.Join(rest, " "))
		}
	}
	return ""
}
