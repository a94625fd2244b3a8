package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v66/github"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/crossref"
	"github.com/nhle/ghnotify/internal/events"
)

const maxWebhookBody = 5 << 20

// WebhookPayload is the event published to each recipient's stream.
type WebhookPayload struct {
	Event      string `json:"event"`
	Delivery   string `json:"delivery,omitempty"`
	Action     string `json:"action,omitempty"`
	Reason     string `json:"reason"`
	Repository string `json:"repository,omitempty"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	Sender     string `json:"sender,omitempty"`
}

// Reasons attached to webhook payloads. They mirror the notification
// reasons GitHub would later report for the same activity.
const (
	webhookReasonMention         = "mention"
	webhookReasonReviewRequested = "review_requested"
	webhookReasonAssign          = "assign"
	webhookReasonAuthor          = "author"
	webhookReasonCIActivity      = "ci_activity"
)

// delivery is one recipient of a webhook event.
type delivery struct {
	login  string
	reason string
}

// recipients collects deliveries, one per login.
type recipients struct {
	seen map[string]bool
	list []delivery
}

func (r *recipients) add(reason string, logins ...string) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	for _, login := range logins {
		key := strings.ToLower(login)
		if login == "" || r.seen[key] {
			continue
		}
		r.seen[key] = true
		r.list = append(r.list, delivery{login: login, reason: reason})
	}
}

// WebhookHandler receives GitHub webhook deliveries.
type WebhookHandler struct {
	secret string
	broker events.Broker
	logger *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler. An empty secret rejects
// every delivery.
func NewWebhookHandler(secret string, broker events.Broker, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		broker: broker,
		logger: logger.Named("WebhookHandler"),
	}
}

// Receive verifies the delivery signature, works out who the event
// concerns and relays it to their streams.
func (h *WebhookHandler) Receive(c *gin.Context) {
	event := github.WebHookType(c.Request)
	signature := c.GetHeader(github.SHA256SignatureHeader)
	if signature == "" {
		signature = c.GetHeader(github.SHA1SignatureHeader)
	}
	if signature == "" || event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing webhook headers"})
		return
	}

	if h.secret == "" {
		h.logger.Warn("rejected webhook: no secret configured", zap.String("event", event))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	body := io.LimitReader(c.Request.Body, maxWebhookBody)
	payload, err := github.ValidatePayloadFromBody(c.ContentType(), body, signature, []byte(h.secret))
	if err != nil {
		h.logger.Warn("rejected webhook signature", zap.String("event", event), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	if github.EventForType(event) == nil {
		h.logger.Debug("ignoring webhook event", zap.String("event", event))
		c.JSON(http.StatusOK, gin.H{"success": true, "mentions": 0})
		return
	}

	parsed, err := github.ParseWebHook(event, payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	base := WebhookPayload{Event: event, Delivery: github.DeliveryID(c.Request)}
	var to recipients

	switch e := parsed.(type) {
	case *github.IssueCommentEvent:
		base.Action = e.GetAction()
		base.Repository = e.GetRepo().GetFullName()
		base.Title = e.GetIssue().GetTitle()
		base.URL = e.GetComment().GetHTMLURL()
		base.Sender = e.GetSender().GetLogin()
		to.add(webhookReasonMention, crossref.ExtractMentions(e.GetComment().GetBody())...)

	case *github.PullRequestEvent:
		pr := e.GetPullRequest()
		base.Action = e.GetAction()
		base.Repository = e.GetRepo().GetFullName()
		base.Title = pr.GetTitle()
		base.URL = pr.GetHTMLURL()
		base.Sender = e.GetSender().GetLogin()
		switch e.GetAction() {
		case "review_requested":
			to.add(webhookReasonReviewRequested, e.GetRequestedReviewer().GetLogin())
		case "opened", "edited":
			to.add(webhookReasonMention, crossref.ExtractMentions(pr.GetBody())...)
		}

	case *github.PullRequestReviewEvent:
		pr := e.GetPullRequest()
		base.Action = e.GetAction()
		base.Repository = e.GetRepo().GetFullName()
		base.Title = pr.GetTitle()
		base.URL = e.GetReview().GetHTMLURL()
		base.Sender = e.GetSender().GetLogin()
		to.add(webhookReasonMention, crossref.ExtractMentions(e.GetReview().GetBody())...)
		if author := pr.GetUser().GetLogin(); author != base.Sender {
			to.add(webhookReasonAuthor, author)
		}

	case *github.IssuesEvent:
		issue := e.GetIssue()
		base.Action = e.GetAction()
		base.Repository = e.GetRepo().GetFullName()
		base.Title = issue.GetTitle()
		base.URL = issue.GetHTMLURL()
		base.Sender = e.GetSender().GetLogin()
		switch e.GetAction() {
		case "assigned":
			to.add(webhookReasonAssign, e.GetAssignee().GetLogin())
		case "opened", "edited":
			to.add(webhookReasonMention, crossref.ExtractMentions(issue.GetBody())...)
		}

	case *github.WorkflowRunEvent:
		run := e.GetWorkflowRun()
		base.Action = e.GetAction()
		base.Repository = e.GetRepo().GetFullName()
		base.Title = run.GetName()
		base.URL = run.GetHTMLURL()
		base.Sender = e.GetSender().GetLogin()
		if e.GetAction() == "completed" && run.GetConclusion() == "failure" {
			to.add(webhookReasonCIActivity, run.GetActor().GetLogin())
		}

	case *github.PushEvent:
		h.logger.Debug("push received",
			zap.String("repository", e.GetRepo().GetFullName()),
			zap.String("ref", e.GetRef()),
		)

	default:
		h.logger.Debug("webhook event has no recipients", zap.String("event", event))
	}

	for _, d := range to.list {
		p := base
		p.Reason = d.reason
		h.publish(c, d.login, p)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "mentions": len(to.list)})
}

func (h *WebhookHandler) publish(c *gin.Context, login string, p WebhookPayload) {
	if h.broker == nil {
		return
	}
	e, err := events.NewEvent(events.TypeWebhook, p)
	if err != nil {
		h.logger.Warn("building webhook event", zap.Error(err))
		return
	}
	if err := h.broker.Publish(c.Request.Context(), events.LoginTopic(login), e); err != nil {
		h.logger.Warn("publishing webhook event", zap.String("login", login), zap.Error(err))
	}
}
