package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/spacatty/subzone/internal/dns"
	"github.com/spacatty/subzone/internal/models"
	"github.com/spacatty/subzone/internal/service"
)

func (b *Bot) handleStart(_ context.Context, in *intent, _ *tgbotapi.Message) {
	b.reply(in, msgWelcome)
}

// handleNew starts the claim flow: present the live zone list and wait for
// a selection.
func (b *Bot) handleNew(ctx context.Context, in *intent, _ *tgbotapi.Message) {
	zones, err := b.svc.Zones(ctx)
	if err != nil {
		b.replyWorkflowError(in, err)
		return
	}
	if len(zones) == 0 {
		b.reply(in, msgNoZones)
		return
	}

	b.sessions.Put(in.userID, Session{State: StateAwaitingZone})

	msg := tgbotapi.NewMessage(in.chatID, msgSelectDomain)
	msg.ReplyMarkup = zoneKeyboard(zones)
	if _, err := b.client.Send(msg); err != nil {
		in.log.Warn("failed to send zone keyboard", "error", err)
	}
}

// handleZoneSelected resolves the chosen zone id against a fresh zone list
// and prompts for the subdomain name.
func (b *Bot) handleZoneSelected(ctx context.Context, in *intent, zoneID string) {
	// Buttons from an old /new message outlive the flow; only honor a
	// selection the user currently owes us.
	if sess, ok := b.sessions.Get(in.userID); !ok || sess.State != StateAwaitingZone {
		in.log.Debug("ignoring stale zone selection", "zone_id", zoneID)
		return
	}

	zones, err := b.svc.Zones(ctx)
	if err != nil {
		b.sessions.Clear(in.userID)
		b.replyWorkflowError(in, err)
		return
	}

	var domain string
	for _, z := range zones {
		if z.ID == zoneID {
			domain = z.Name
			break
		}
	}
	if domain == "" {
		b.sessions.Clear(in.userID)
		b.reply(in, msgZoneGone)
		return
	}

	b.sessions.Put(in.userID, Session{State: StateAwaitingLabel, ZoneID: zoneID, Domain: domain})
	b.reply(in, msgEnterSubdomain)
}

// handleText is reached by non-command messages; it only matters while the
// user owes us a subdomain name.
func (b *Bot) handleText(ctx context.Context, in *intent, text string) {
	sess, ok := b.sessions.Get(in.userID)
	if !ok || sess.State != StateAwaitingLabel {
		return
	}

	fqdn, err := b.svc.Claim(ctx, in.userID, sess.ZoneID, sess.Domain, text)
	switch {
	case errors.Is(err, service.ErrInvalidLabel):
		// Keep the session so the user can simply try another name.
		b.reply(in, msgInvalidLabel)
	case errors.Is(err, service.ErrSubdomainTaken):
		b.sessions.Clear(in.userID)
		b.reply(in, msgTaken)
	case err != nil:
		b.sessions.Clear(in.userID)
		b.replyWorkflowError(in, err)
	default:
		b.sessions.Clear(in.userID)
		b.reply(in, fmt.Sprintf(msgCreated, fqdn))
	}
}

func (b *Bot) handleList(ctx context.Context, in *intent, _ *tgbotapi.Message) {
	claims, err := b.svc.Claims(ctx, in.userID)
	if err != nil {
		b.replyWorkflowError(in, err)
		return
	}
	if len(claims) == 0 {
		b.reply(in, msgNoSubdomains)
		return
	}

	lines := make([]string, len(claims))
	for i, c := range claims {
		lines[i] = c.FQDN()
	}
	b.reply(in, strings.Join(lines, "\n"))
}

// handleDelete starts the release flow by listing the caller's claims as
// selectable options.
func (b *Bot) handleDelete(ctx context.Context, in *intent, _ *tgbotapi.Message) {
	claims, err := b.svc.Claims(ctx, in.userID)
	if err != nil {
		b.replyWorkflowError(in, err)
		return
	}
	if len(claims) == 0 {
		b.reply(in, msgNoSubdomains)
		return
	}

	b.sessions.Put(in.userID, Session{State: StateAwaitingDelete})

	msg := tgbotapi.NewMessage(in.chatID, msgSelectDelete)
	msg.ReplyMarkup = claimKeyboard(claims)
	if _, err := b.client.Send(msg); err != nil {
		in.log.Warn("failed to send claim keyboard", "error", err)
	}
}

func (b *Bot) handleDropSelected(ctx context.Context, in *intent, payload string) {
	b.sessions.Clear(in.userID)

	// Payload is "<subdomain>_<domain>"; labels never contain underscores.
	parts := strings.SplitN(payload, "_", 2)
	if len(parts) != 2 {
		in.log.Debug("malformed drop payload", "payload", payload)
		return
	}

	fqdn, err := b.svc.Release(ctx, in.userID, parts[0], parts[1])
	switch {
	case errors.Is(err, service.ErrClaimNotFound):
		b.reply(in, msgNotFound)
	case err != nil:
		b.replyWorkflowError(in, err)
	default:
		b.reply(in, fmt.Sprintf(msgDeleted, fqdn))
	}
}

// handleApprove promotes a pending user. Non-admins are ignored without any
// response.
func (b *Bot) handleApprove(ctx context.Context, in *intent, msg *tgbotapi.Message) {
	if !b.isAdmin(in.userID) {
		return
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	targetID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(in, msgApproveUsage)
		return
	}

	if err := b.svc.Approve(ctx, targetID); err != nil {
		in.log.Error("approve failed", "target_id", targetID, "error", err)
		b.reply(in, msgTryAgain)
		return
	}

	b.reply(in, fmt.Sprintf(msgApproved, targetID))
	b.sendTo(in.log, targetID, msgYouApproved)
}

// replyWorkflowError maps error kinds to user-facing text. Provider
// failures carry the provider's message; everything else stays generic.
func (b *Bot) replyWorkflowError(in *intent, err error) {
	var perr *service.ProviderError
	if errors.As(err, &perr) {
		b.reply(in, fmt.Sprintf(msgProviderError, perr.Err))
		return
	}
	in.log.Error("workflow failed", "error", err)
	b.reply(in, msgTryAgain)
}

func zoneKeyboard(zones []dns.Zone) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, z := range zones {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(z.Name, "zone_"+z.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func claimKeyboard(claims []models.SubdomainClaim) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, len(claims))
	for i, c := range claims {
		data := "drop_" + c.Subdomain + "_" + c.Domain
		rows[i] = tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(c.FQDN(), data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
