// Package notify delivers burnout alert summaries for weekly insights.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/teampulse/internal/domain"
)

// Notifier delivers a weekly insight summary to one destination.
type Notifier interface {
	NotifyWeekly(ctx context.Context, insight *domain.WeeklyInsight) error
}

// Multi fans out to every notifier and joins their errors.
type Multi struct {
	notifiers []Notifier
	log       *slog.Logger
}

func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, log: logger.With("component", "notifier")}
}

// Len is the number of destinations.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

func (m *Multi) NotifyWeekly(ctx context.Context, insight *domain.WeeklyInsight) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.NotifyWeekly(ctx, insight); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 && len(m.notifiers) > 0 {
		m.log.InfoContext(ctx, "Burnout alerts delivered",
			"week_start", insight.WeekStart,
			"alerts", len(insight.BurnoutAlerts),
			"destinations", len(m.notifiers))
	}
	return errors.Join(errs...)
}

var riskMarkers = map[domain.RiskLevel]string{
	domain.RiskHigh:   "🔴",
	domain.RiskMedium: "🟠",
	domain.RiskLow:    "🟡",
}

// FormatWeeklyAlert renders the plain text summary shared by all destinations.
func FormatWeeklyAlert(insight *domain.WeeklyInsight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Burnout alerts for %s, week %s to %s\n", insight.TeamName, insight.WeekStart, insight.WeekEnd)
	fmt.Fprintf(&b, "Overall sentiment %.2f (%s), %d messages\n", insight.OverallSentiment, insight.OverallTrend, insight.TotalMessages)
	for _, a := range insight.BurnoutAlerts {
		name := a.ChannelName
		if name == "" {
			name = a.ChannelID
		}
		fmt.Fprintf(&b, "\n%s #%s: %s risk\n", riskMarkers[a.RiskLevel], name, a.RiskLevel)
		for _, s := range a.Signals {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	if len(insight.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range insight.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
