package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ConsensusAnalyzer/internal/domain"
	"ConsensusAnalyzer/internal/ports"
	"ConsensusAnalyzer/pkg/logger"
)

// maxMessageRunes is Telegram's text limit for a single message.
const maxMessageRunes = 4096

const (
	maxSummaryRunes = 2048
	maxClaimsRunes  = 512
	maxFieldRunes   = 300
	maxURLRunes     = 512
	maxStatusRunes  = 1024
	ellipsis        = "…"
)

// sender is the subset of *tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier mirrors final reports and failures into a Telegram chat.
type Notifier struct {
	api    sender
	chatID int64
	logger *slog.Logger
}

var _ ports.ResultPublisher = (*Notifier)(nil)

// NewNotifier authenticates the bot token and routes the library's own
// logging through log.
func NewNotifier(botToken string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := tgbotapi.SetLogger(logger.New(log, "telegram")); err != nil {
		return nil, fmt.Errorf("telegram logger: %w", err)
	}
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return newNotifier(api, chatID, log), nil
}

func newNotifier(api sender, chatID int64, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Notifier{api: api, chatID: chatID, logger: log}
}

// PublishStatus forwards only FAILED updates; progress chatter stays off the chat.
func (n *Notifier) PublishStatus(ctx context.Context, update domain.StatusUpdate) error {
	if update.Status != domain.StatusFailed {
		return nil
	}
	text := fmt.Sprintf("⚠️ <b>Topic %s failed</b>\n%s",
		update.TopicID, escapeLimited(update.Message, maxStatusRunes))
	return n.send(ctx, text)
}

// PublishFinal posts an HTML digest of the report.
func (n *Notifier) PublishFinal(ctx context.Context, report domain.FinalReport) error {
	return n.send(ctx, FormatReport(report))
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.logger.Debug("telegram message sent", "chat_id", n.chatID)
	return nil
}

// FormatReport renders a final report as Telegram HTML. Every field is capped
// and evidence lines are added whole until the message limit, so the result
// never exceeds maxMessageRunes and never cuts through a tag or entity.
func FormatReport(report domain.FinalReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Consensus report</b> <code>%s</code>\n\n", report.TopicID)
	b.WriteString(escapeLimited(report.FinalSummary, maxSummaryRunes))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Sentiment: <b>%.2f</b>  Consensus: <b>%.0f%%</b>\n", report.SentimentScore, report.ConsensusPercentage)
	fmt.Fprintf(&b, "Claims: <i>%s</i>\n", escapeLimited(report.CommonClaims, maxClaimsRunes))

	if len(report.Segments) > 0 {
		b.WriteString("\n<b>Evidence</b>\n")
	}
	used := utf8.RuneCountInString(b.String())
	for _, seg := range report.Segments {
		line := evidenceLine(seg) + "\n"
		size := utf8.RuneCountInString(line)
		if used+size+utf8.RuneCountInString(ellipsis) > maxMessageRunes {
			b.WriteString(ellipsis)
			break
		}
		b.WriteString(line)
		used += size
	}
	return strings.TrimRight(b.String(), "\n")
}

func evidenceLine(seg domain.EvidenceSegment) string {
	title := seg.VideoTitle
	if title == "" {
		title = seg.VideoID
	}
	label := escapeLimited(title, maxFieldRunes) + " @ " + escapeLimited(seg.Timestamp, 16)

	var line string
	url := html.EscapeString(seg.VideoURL)
	if url != "" && utf8.RuneCountInString(url) <= maxURLRunes {
		line = fmt.Sprintf("• <a href=\"%s\">%s</a>", url, label)
	} else {
		line = "• " + label
	}
	if seg.SegmentSummary != "" {
		line += ": " + escapeLimited(seg.SegmentSummary, maxFieldRunes)
	}
	return line
}

// escapeLimited HTML-escapes s into at most limit runes, replacing the tail
// with an ellipsis when it does not fit. Entities are never split.
func escapeLimited(s string, limit int) string {
	escaped := html.EscapeString(s)
	if utf8.RuneCountInString(escaped) <= limit {
		return escaped
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		piece := html.EscapeString(string(r))
		size := utf8.RuneCountInString(piece)
		if used+size > limit-1 {
			break
		}
		b.WriteString(piece)
		used += size
	}
	b.WriteString(ellipsis)
	return b.String()
}
