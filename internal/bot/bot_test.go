package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/spacatty/subzone/internal/dns"
	"github.com/spacatty/subzone/internal/models"
	"github.com/spacatty/subzone/internal/service"
)

type sentMessage struct {
	chatID int64
	text   string
	markup interface{}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, sentMessage{chatID: m.ChatID, text: m.Text, markup: m.ReplyMarkup})
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type claimCall struct {
	userID                int64
	zoneID, domain, label string
}

type releaseCall struct {
	userID            int64
	subdomain, domain string
}

type fakeService struct {
	gate    service.GateResult
	gateErr error

	zones    []dns.Zone
	zonesErr error

	claimErr   error
	claimCalls []claimCall

	claims []models.SubdomainClaim

	releaseErr   error
	releaseCalls []releaseCall

	approveCalls []int64
}

func (f *fakeService) Gate(context.Context, int64) (service.GateResult, error) {
	return f.gate, f.gateErr
}

func (f *fakeService) Zones(context.Context) ([]dns.Zone, error) {
	return f.zones, f.zonesErr
}

func (f *fakeService) Claim(_ context.Context, userID int64, zoneID, domain, rawLabel string) (string, error) {
	f.claimCalls = append(f.claimCalls, claimCall{userID, zoneID, domain, rawLabel})
	if f.claimErr != nil {
		return "", f.claimErr
	}
	return rawLabel + "." + domain, nil
}

func (f *fakeService) Claims(context.Context, int64) ([]models.SubdomainClaim, error) {
	return f.claims, nil
}

func (f *fakeService) Release(_ context.Context, userID int64, subdomain, domain string) (string, error) {
	f.releaseCalls = append(f.releaseCalls, releaseCall{userID, subdomain, domain})
	if f.releaseErr != nil {
		return "", f.releaseErr
	}
	return subdomain + "." + domain, nil
}

func (f *fakeService) Approve(_ context.Context, userID int64) error {
	f.approveCalls = append(f.approveCalls, userID)
	return nil
}

func newTestBot(svc Service) (*Bot, *fakeSender) {
	client := &fakeSender{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newBot(client, svc, NewSessionStore(), []int64{1}, log), client
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestFirstContactNotifiesAdminAndDoesNotForward(t *testing.T) {
	svc := &fakeService{gate: service.GatePendingNew}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(42, "/new"))

	msgs := client.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, int64(1), msgs[0].chatID) // primary admin
	require.Contains(t, msgs[0].text, "42")
	require.Equal(t, int64(42), msgs[1].chatID)
	require.Equal(t, msgPending, msgs[1].text)
	require.Empty(t, svc.claimCalls)
}

func TestDeniedUserGetsNotApproved(t *testing.T) {
	svc := &fakeService{gate: service.GateDenied}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(42, "/new"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgNotApproved, msgs[0].text)
}

func TestStart(t *testing.T) {
	svc := &fakeService{gate: service.GateForward}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(42, "/start"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].text, "/new")
	require.Contains(t, msgs[0].text, "/delete")
	require.Contains(t, msgs[0].text, "/list")
}

func TestClaimFlowEndToEnd(t *testing.T) {
	svc := &fakeService{
		gate:  service.GateForward,
		zones: []dns.Zone{{ID: "z1", Name: "example.com"}, {ID: "z2", Name: "example.org"}},
	}
	b, client := newTestBot(svc)
	ctx := context.Background()

	b.handleUpdate(ctx, commandUpdate(42, "/new"))

	sess, ok := b.sessions.Get(42)
	require.True(t, ok)
	require.Equal(t, StateAwaitingZone, sess.State)
	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgSelectDomain, msgs[0].text)
	require.NotNil(t, msgs[0].markup)

	b.handleUpdate(ctx, callbackUpdate(42, "zone_z1"))

	sess, ok = b.sessions.Get(42)
	require.True(t, ok)
	require.Equal(t, StateAwaitingLabel, sess.State)
	require.Equal(t, "z1", sess.ZoneID)
	require.Equal(t, "example.com", sess.Domain)

	b.handleUpdate(ctx, textUpdate(42, "blog"))

	require.Equal(t, []claimCall{{42, "z1", "example.com", "blog"}}, svc.claimCalls)
	msgs = client.messages()
	require.Contains(t, msgs[len(msgs)-1].text, "blog.example.com")

	_, ok = b.sessions.Get(42)
	require.False(t, ok, "session cleared after completion")
}

func TestStaleZoneButtonIsIgnored(t *testing.T) {
	svc := &fakeService{
		gate:  service.GateForward,
		zones: []dns.Zone{{ID: "z1", Name: "example.com"}},
	}
	b, client := newTestBot(svc)
	ctx := context.Background()

	// Pressing a zone button from an old message, with no flow in
	// progress, must not re-enter the claim flow.
	b.handleUpdate(ctx, callbackUpdate(42, "zone_z1"))

	require.Empty(t, client.messages())
	_, ok := b.sessions.Get(42)
	require.False(t, ok)

	// Same button mid-delete flow must not clobber that state.
	b.sessions.Put(42, Session{State: StateAwaitingDelete})
	b.handleUpdate(ctx, callbackUpdate(42, "zone_z1"))

	require.Empty(t, client.messages())
	sess, ok := b.sessions.Get(42)
	require.True(t, ok)
	require.Equal(t, StateAwaitingDelete, sess.State)
}

func TestClaimTakenClearsSession(t *testing.T) {
	svc := &fakeService{gate: service.GateForward, claimErr: service.ErrSubdomainTaken}
	b, client := newTestBot(svc)

	b.sessions.Put(42, Session{State: StateAwaitingLabel, ZoneID: "z1", Domain: "example.com"})
	b.handleUpdate(context.Background(), textUpdate(42, "blog"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgTaken, msgs[0].text)
	_, ok := b.sessions.Get(42)
	require.False(t, ok)
}

func TestInvalidLabelKeepsSession(t *testing.T) {
	svc := &fakeService{gate: service.GateForward, claimErr: service.ErrInvalidLabel}
	b, client := newTestBot(svc)

	b.sessions.Put(42, Session{State: StateAwaitingLabel, ZoneID: "z1", Domain: "example.com"})
	b.handleUpdate(context.Background(), textUpdate(42, "no spaces allowed"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgInvalidLabel, msgs[0].text)
	sess, ok := b.sessions.Get(42)
	require.True(t, ok, "session survives a retryable input error")
	require.Equal(t, StateAwaitingLabel, sess.State)
}

func TestProviderErrorSurfacedToUser(t *testing.T) {
	svc := &fakeService{
		gate:     service.GateForward,
		claimErr: &service.ProviderError{Op: "create record", Err: errString("Cloudflare error [81057]: record already exists")},
	}
	b, client := newTestBot(svc)

	b.sessions.Put(42, Session{State: StateAwaitingLabel, ZoneID: "z1", Domain: "example.com"})
	b.handleUpdate(context.Background(), textUpdate(42, "blog"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].text, "record already exists")
}

func TestTextWithoutPendingFlowIsIgnored(t *testing.T) {
	svc := &fakeService{gate: service.GateForward}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), textUpdate(42, "hello there"))

	require.Empty(t, client.messages())
	require.Empty(t, svc.claimCalls)
}

func TestDeleteFlow(t *testing.T) {
	svc := &fakeService{
		gate:   service.GateForward,
		claims: []models.SubdomainClaim{{Subdomain: "blog", Domain: "example.com", UserID: 42}},
	}
	b, client := newTestBot(svc)
	ctx := context.Background()

	b.handleUpdate(ctx, commandUpdate(42, "/delete"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgSelectDelete, msgs[0].text)
	require.NotNil(t, msgs[0].markup)

	b.handleUpdate(ctx, callbackUpdate(42, "drop_blog_example.com"))

	require.Equal(t, []releaseCall{{42, "blog", "example.com"}}, svc.releaseCalls)
	msgs = client.messages()
	require.Contains(t, msgs[len(msgs)-1].text, "blog.example.com")
}

func TestDeleteWithNoClaims(t *testing.T) {
	svc := &fakeService{gate: service.GateForward}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(42, "/delete"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgNoSubdomains, msgs[0].text)
}

func TestReleaseNotFound(t *testing.T) {
	svc := &fakeService{gate: service.GateForward, releaseErr: service.ErrClaimNotFound}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), callbackUpdate(42, "drop_blog_example.com"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgNotFound, msgs[0].text)
}

func TestList(t *testing.T) {
	svc := &fakeService{
		gate: service.GateForward,
		claims: []models.SubdomainClaim{
			{Subdomain: "blog", Domain: "example.com"},
			{Subdomain: "wiki", Domain: "example.org"},
		},
	}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(42, "/list"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "blog.example.com\nwiki.example.org", msgs[0].text)
}

func TestApproveByNonAdminSilentlyIgnored(t *testing.T) {
	svc := &fakeService{gate: service.GateForward}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(555, "/approve 12345"))

	require.Empty(t, client.messages())
	require.Empty(t, svc.approveCalls)
}

func TestApproveByAdmin(t *testing.T) {
	svc := &fakeService{gate: service.GateForward}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(1, "/approve 12345"))

	require.Equal(t, []int64{12345}, svc.approveCalls)
	msgs := client.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, int64(1), msgs[0].chatID)
	require.Contains(t, msgs[0].text, "12345")
	require.Equal(t, int64(12345), msgs[1].chatID)
	require.Equal(t, msgYouApproved, msgs[1].text)
}

func TestApproveMalformedArgument(t *testing.T) {
	svc := &fakeService{gate: service.GateForward}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(1, "/approve someone"))

	require.Empty(t, svc.approveCalls)
	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgApproveUsage, msgs[0].text)
}

func TestGateErrorFailsClosed(t *testing.T) {
	svc := &fakeService{gate: service.GateDenied, gateErr: errString("registry down")}
	b, client := newTestBot(svc)

	b.handleUpdate(context.Background(), commandUpdate(42, "/new"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgTryAgain, msgs[0].text)
	require.Empty(t, svc.claimCalls)
}

type errString string

func (e errString) Error() string { return string(e) }
