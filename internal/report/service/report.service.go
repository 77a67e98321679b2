package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"homefolio/config"
	"homefolio/internal/compose"
	"homefolio/internal/ratelimit"
	"homefolio/internal/report/model"
	"homefolio/internal/report/repository"
	"homefolio/pkg/logger"
	"homefolio/store"
)

const attachmentLookups = 4

// maxTokenLength mirrors the max tag on the request models.
const maxTokenLength = 512

type Composer interface {
	Property(ctx context.Context, d compose.PropertyData) (*compose.Report, error)
	Session(ctx context.Context, d compose.SessionData) (*compose.Report, error)
}

// ReportService runs one report request through validation, rate limiting,
// share-token authorization, data fetch and composition, in that order.
type ReportService struct {
	Repo     repository.Repository
	Limiter  ratelimit.Limiter
	Composer Composer
	Limits   map[string]config.Limit
	now      func() time.Time
}

func NewReportService(repo repository.Repository, limiter ratelimit.Limiter, composer Composer, limits map[string]config.Limit) *ReportService {
	return &ReportService{Repo: repo, Limiter: limiter, Composer: composer, Limits: limits, now: time.Now}
}

func (s *ReportService) PropertyReport(ctx context.Context, identity string, req model.PropertyReportRequest) (*model.GeneratedReport, *model.RateLimitInfo, error) {
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}
	propertyID := req.PropertyID

	rl, err := s.checkLimit(ctx, identity, config.OpPropertyReport)
	if err != nil {
		return nil, rl, err
	}

	sessionID, err := s.authorize(ctx, req.ShareToken, propertyID)
	if err != nil {
		return nil, rl, err
	}

	prop, err := s.Repo.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, rl, fetchError("property", err)
	}
	atts, err := s.Repo.ListAttachments(ctx, propertyID)
	if err != nil {
		return nil, rl, fetchError("attachments", err)
	}
	agent := s.sessionAgent(ctx, sessionID)

	var rep *compose.Report
	err = safely(func() (err error) {
		rep, err = s.Composer.Property(ctx, compose.PropertyData{Property: *prop, Attachments: atts, Agent: agent})
		return err
	})
	if err != nil {
		return nil, rl, newError(CompositionFailure, "failed to generate report", err)
	}

	return &model.GeneratedReport{
		Filename:  SanitizeFilename(prop.Title()) + "-details.pdf",
		Data:      rep.Data,
		PageCount: rep.PageCount,
	}, rl, nil
}

func (s *ReportService) SessionReport(ctx context.Context, identity string, req model.SessionReportRequest) (*model.GeneratedReport, *model.RateLimitInfo, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	rl, err := s.checkLimit(ctx, identity, config.OpSessionReport)
	if err != nil {
		return nil, rl, err
	}

	sessionID, err := s.authorize(ctx, req.ShareToken, "")
	if err != nil {
		return nil, rl, err
	}

	sess, err := s.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, rl, fetchError("session", err)
	}
	props, err := s.Repo.ListSessionProperties(ctx, sessionID)
	if err != nil {
		return nil, rl, fetchError("properties", err)
	}

	data := compose.SessionData{Session: *sess, Agent: s.agent(ctx, sess.OwnerID)}
	data.Properties = make([]compose.PropertyData, len(props))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(attachmentLookups)
	for i, p := range props {
		eg.Go(func() error {
			atts, err := s.Repo.ListAttachments(gctx, p.ID)
			if err != nil {
				return err
			}
			data.Properties[i] = compose.PropertyData{Property: p, Attachments: atts, Agent: data.Agent}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, rl, fetchError("attachments", err)
	}

	var rep *compose.Report
	err = safely(func() (err error) {
		rep, err = s.Composer.Session(ctx, data)
		return err
	})
	if err != nil {
		return nil, rl, newError(CompositionFailure, "failed to generate report", err)
	}

	title := sess.Title
	if strings.TrimSpace(title) == "" {
		title = "session"
	}
	return &model.GeneratedReport{
		Filename:  SanitizeFilename(title) + "-complete.pdf",
		Data:      rep.Data,
		PageCount: rep.PageCount,
	}, rl, nil
}

func (s *ReportService) checkLimit(ctx context.Context, identity, op string) (*model.RateLimitInfo, error) {
	l, ok := s.Limits[op]
	if !ok {
		return nil, nil
	}
	res := s.Limiter.Check(ctx, identity, ratelimit.Options{Operation: op, MaxRequests: l.MaxRequests, Window: l.Window})
	info := &model.RateLimitInfo{Limit: res.Limit, Remaining: res.Remaining, ResetAt: res.ResetAt}
	if !res.Allowed {
		logger.FromContext(ctx).Infow("Rate limit exceeded", "identity", identity, "operation", op)
		e := newError(RateLimited, "too many requests, try again later", res.Err)
		e.RetryAfter = res.RetryAfter(s.now())
		return info, e
	}
	return info, nil
}

func (s *ReportService) authorize(ctx context.Context, token, propertyID string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", newError(Unauthorized, "share token required", nil)
	}
	sessionID, err := s.Repo.ValidateShareToken(ctx, token, propertyID)
	if errors.Is(err, repository.ErrInvalidToken) {
		return "", newError(Forbidden, "share token is invalid or expired", err)
	}
	if err != nil {
		return "", newError(CompositionFailure, "failed to verify share token", err)
	}
	return sessionID, nil
}

func (s *ReportService) sessionAgent(ctx context.Context, sessionID string) *store.AgentIdentity {
	sess, err := s.Repo.GetSession(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Warnw("Session unavailable for agent lookup", "sessionId", sessionID, "error", err)
		return nil
	}
	return s.agent(ctx, sess.OwnerID)
}

// agent is decorative: a missing profile never fails the report.
func (s *ReportService) agent(ctx context.Context, userID string) *store.AgentIdentity {
	if userID == "" {
		return nil
	}
	a, err := s.Repo.GetAgent(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warnw("Agent profile unavailable", "userId", userID, "error", err)
		return nil
	}
	return a
}

func fetchError(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(NotFound, what+" not found", err)
	}
	return newError(CompositionFailure, "failed to load "+what, err)
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeFilename replaces every run of non-alphanumeric characters with a
// single hyphen and trims hyphens from both ends.
func SanitizeFilename(title string) string {
	name := strings.Trim(nonAlnum.ReplaceAllString(title, "-"), "-")
	if name == "" {
		return "report"
	}
	return name
}
