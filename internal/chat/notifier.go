// Package chat opens the chat conversation that connects a ticket's
// assignee with the recommended experts.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/model"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

// maxChannelName is Slack's channel name length limit.
const maxChannelName = 80

var invalidChannelChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// Config holds notifier configuration.
type Config struct {
	// BotToken is the bot user OAuth token (xoxb-...).
	BotToken string

	// APIURL overrides the Slack Web API root. It must end with "/".
	APIURL string

	// PrivateChannels creates private rather than public channels.
	PrivateChannels bool

	// Logger defaults to logger.Global().
	Logger *logger.Logger
}

// Notifier creates per-ticket Slack channels.
type Notifier struct {
	api     *slack.Client
	private bool
	logger  *logger.Logger
}

// NewNotifier creates a notifier from cfg.
func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("slack: bot token is required")
	}

	var opts []slack.Option
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Global()
	}

	return &Notifier{
		api:     slack.New(cfg.BotToken, opts...),
		private: cfg.PrivateChannels,
		logger:  log,
	}, nil
}

// CreateConversation creates the ticket channel, invites the assignee and
// experts, posts an introduction and returns the channel URL. Invitation
// failures are logged and skipped; only channel creation, the intro post
// and the workspace lookup can fail the call.
func (n *Notifier) CreateConversation(ctx context.Context, req *model.ConversationRequest) (string, error) {
	name := ChannelName(req.TicketID)

	channel, err := n.api.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: name,
		IsPrivate:   n.private,
	})
	if err != nil && err.Error() == "name_taken" {
		suffix := "-" + uuid.New().String()[:6]
		name = ChannelName(req.TicketID + suffix)
		channel, err = n.api.CreateConversationContext(ctx, slack.CreateConversationParams{
			ChannelName: name,
			IsPrivate:   n.private,
		})
	}
	if err != nil {
		return "", fmt.Errorf("slack: creating channel %q: %w", name, err)
	}

	log := n.logger.With(zap.String("channel_id", channel.ID), zap.String("ticket_id", req.TicketID))

	var assigneeID string
	if req.Assignee != nil {
		assigneeID = n.resolveUser(ctx, req.Assignee.SlackID, req.Assignee.Email)
	}

	var expertIDs []string
	for _, contact := range req.ExpertContacts {
		if id := n.resolveUser(ctx, contact.SlackID, contact.Email); id != "" {
			expertIDs = append(expertIDs, id)
		}
	}

	for _, id := range append([]string{assigneeID}, expertIDs...) {
		if id == "" {
			continue
		}
		if _, err := n.api.InviteUsersToConversationContext(ctx, channel.ID, id); err != nil {
			log.Warn("failed to invite user", zap.String("user_id", id), zap.Error(err))
		}
	}

	if _, _, err := n.api.PostMessageContext(ctx, channel.ID,
		slack.MsgOptionText(introMessage(req, assigneeID, expertIDs), false),
	); err != nil {
		return "", fmt.Errorf("slack: posting intro message: %w", err)
	}

	auth, err := n.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: resolving workspace URL: %w", err)
	}

	teamURL := auth.URL
	if !strings.HasSuffix(teamURL, "/") {
		teamURL += "/"
	}
	url := teamURL + "archives/" + channel.ID

	log.Info("slack conversation created", zap.String("url", url), zap.Int("experts_invited", len(expertIDs)))
	return url, nil
}

// resolveUser returns slackID when known, otherwise looks the user up by
// email. Lookup failures return "".
func (n *Notifier) resolveUser(ctx context.Context, slackID, email string) string {
	if slackID != "" {
		return slackID
	}
	if email == "" {
		return ""
	}
	user, err := n.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		n.logger.Warn("failed to resolve slack user by email", zap.String("email", email), zap.Error(err))
		return ""
	}
	return user.ID
}

// ChannelName derives a valid Slack channel name for a ticket.
func ChannelName(ticketID string) string {
	name := strings.ToLower("ticket-" + strings.TrimSpace(ticketID))
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidChannelChars.ReplaceAllString(name, "")
	if len(name) > maxChannelName {
		name = name[:maxChannelName]
	}
	return name
}

func introMessage(req *model.ConversationRequest, assigneeID string, expertIDs []string) string {
	var b strings.Builder

	b.WriteString(":ticket: *New Support Ticket Needs Expert Assistance*\n\n")
	if req.TicketURL != "" {
		fmt.Fprintf(&b, "*Ticket:* <%s|#%s>\n", req.TicketURL, req.TicketID)
	} else {
		fmt.Fprintf(&b, "*Ticket:* #%s\n", req.TicketID)
	}
	subject := req.TicketSubject
	if subject == "" {
		subject = "Support Ticket"
	}
	fmt.Fprintf(&b, "*Subject:* %s\n\n", subject)

	if assigneeID != "" {
		fmt.Fprintf(&b, "Hello <@%s>! ", assigneeID)
	}
	b.WriteString("The following experts were identified as the best matches for this ticket:\n\n")

	mentions := make([]string, 0, len(expertIDs))
	for _, id := range expertIDs {
		mentions = append(mentions, "<@"+id+">")
	}
	if len(mentions) == 0 {
		b.WriteString("_No experts could be reached in Slack._\n")
	} else {
		b.WriteString(strings.Join(mentions, " ") + "\n")
	}

	b.WriteString("\n*Next Steps:*\n")
	b.WriteString("1. Review the ticket details\n")
	b.WriteString("2. Experts: please indicate if you can assist\n")
	b.WriteString("3. Collaborate here to resolve the issue\n")

	return b.String()
}
