// Package reminder scans policy documents for premium due dates and fires a
// one-shot notification when a payment falls due within the coming week.
package reminder

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
)

// Extractor pulls plain text out of a document on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// NotifyFunc receives the reminder when a policy payment is due soon.
type NotifyFunc func(filePath string, dueDate time.Time, daysRemaining int)

// Policy is one monitored document and its extracted due date.
type Policy struct {
	FilePath    string    `json:"file_path"`
	DueDate     time.Time `json:"due_date"`
	LastChecked time.Time `json:"last_checked"`
	Notified    bool      `json:"notified"`
}

const upcomingWindow = 7 * 24 * time.Hour

// Due-date phrasings seen in policy documents. Matching runs on the
// lowercased text, numeric and written-out month forms for each phrase.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`due date[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`due date[:\s]+([a-z]+ \d{1,2}, \d{4})`),
	regexp.MustCompile(`premium due[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`premium due[:\s]+([a-z]+ \d{1,2}, \d{4})`),
	regexp.MustCompile(`payment due[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`payment due[:\s]+([a-z]+ \d{1,2}, \d{4})`),
	regexp.MustCompile(`next payment[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`next payment[:\s]+([a-z]+ \d{1,2}, \d{4})`),
	regexp.MustCompile(`premium date[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`premium date[:\s]+([a-z]+ \d{1,2}, \d{4})`),
	regexp.MustCompile(`next\s*due[:\s]+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`next\s*due[:\s]+([a-z]+ \d{1,2}, \d{4})`),
}

// Day-first numeric formats, then the written-out month form. Month names are
// title-cased before the last format is tried since matching lowercases the
// text.
var dateLayouts = []string{"2/1/2006", "2-1-2006", "2/1/06", "2-1-06", "January 2, 2006"}

// ExtractDueDate finds the first recognizable due date in the text. Returns
// ErrDueDateNotFound when no pattern matches or no match parses.
func ExtractDueDate(text string) (time.Time, error) {
	lower := strings.ToLower(text)
	for _, pattern := range datePatterns {
		match := pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		if t, ok := parseDate(match[1]); ok {
			return t, nil
		}
	}
	return time.Time{}, domain.ErrDueDateNotFound
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		candidate := s
		if layout == "January 2, 2006" {
			candidate = titleMonth(s)
		}
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func titleMonth(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Service tracks monitored policies and drives the periodic due-date check.
type Service struct {
	extractor Extractor
	notify    NotifyFunc
	logger    *zap.Logger
	interval  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	policies map[string]*Policy
}

// Option configures a Service.
type Option func(*Service)

// WithInterval overrides the check interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a reminder service. notify may be nil; reminders are then only
// logged.
func New(extractor Extractor, notify NotifyFunc, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		extractor: extractor,
		notify:    notify,
		logger:    logger,
		interval:  time.Hour,
		now:       time.Now,
		policies:  make(map[string]*Policy),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register extracts the due date from the document and starts monitoring it.
func (s *Service) Register(ctx context.Context, path string) (*Policy, error) {
	text, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reminder: extract %s: %w", path, err)
	}
	due, err := ExtractDueDate(text)
	if err != nil {
		s.logger.Warn("no due date found in policy", zap.String("path", path))
		return nil, err
	}

	policy := &Policy{FilePath: path, DueDate: due, LastChecked: s.now()}

	s.mu.Lock()
	s.policies[path] = policy
	s.mu.Unlock()

	s.logger.Info("policy registered for reminders",
		zap.String("path", path),
		zap.Time("due_date", due),
	)
	snapshot := *policy
	return &snapshot, nil
}

// CheckUpcoming notifies for every policy whose due date falls within the next
// seven days. Each policy notifies at most once.
func (s *Service) CheckUpcoming() {
	now := s.now()
	deadline := now.Add(upcomingWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	for path, policy := range s.policies {
		if policy.Notified {
			continue
		}
		if policy.DueDate.Before(now) || policy.DueDate.After(deadline) {
			continue
		}
		days := int(policy.DueDate.Sub(now).Hours() / 24)
		if s.notify != nil {
			s.notify(path, policy.DueDate, days)
		}
		policy.Notified = true
		policy.LastChecked = now
		s.logger.Info("payment reminder sent",
			zap.String("path", path),
			zap.Time("due_date", policy.DueDate),
			zap.Int("days_remaining", days),
		)
	}
}

// Run checks on the configured interval until the context is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.CheckUpcoming()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckUpcoming()
		}
	}
}

// Policy returns the monitored policy for a path, or nil.
func (s *Service) Policy(path string) *Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.policies[path]
	if !ok {
		return nil
	}
	snapshot := *policy
	return &snapshot
}

// Policies lists every monitored policy.
func (s *Service) Policies() []Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Policy, 0, len(s.policies))
	for _, policy := range s.policies {
		out = append(out, *policy)
	}
	return out
}

// Remove stops monitoring a path. Reports whether it was monitored.
func (s *Service) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[path]; !ok {
		return false
	}
	delete(s.policies, path)
	return true
}
