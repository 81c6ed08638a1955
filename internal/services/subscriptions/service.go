package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/tokens"
)

const (
	confirmTokenTTL = 24 * time.Hour
	manageTokenTTL  = time.Hour

	defaultUnsubscribeReason = "No reason provided"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrNoCategories       = errors.New("at least one category is required")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type subscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (models.Subscriber, bool, error)
	UpsertPending(ctx context.Context, email, name string, tags []string) (models.Subscriber, error)
	UpdateNameAndTags(ctx context.Context, id, name string, tags []string) error
	UpdateTags(ctx context.Context, id string, tags []string) error
	Confirm(ctx context.Context, email string) (bool, error)
	Unsubscribe(ctx context.Context, email string) (bool, error)
}

type preferenceRepository interface {
	Get(ctx context.Context, subscriberID string) (models.Preference, bool, error)
	Upsert(ctx context.Context, pref models.Preference) error
}

type unsubscribeLogger interface {
	InsertUnsubscribe(ctx context.Context, entry models.UnsubscribeLog) error
}

type tokenService interface {
	Issue(ctx context.Context, identifier string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, identifier, token string) error
	ConsumeByToken(ctx context.Context, token string) (string, error)
	Validate(ctx context.Context, identifier, token string) error
}

type notificationEmailer interface {
	SendConfirmation(toEmail, name, token string) error
	SendWelcome(toEmail, name string) error
	SendManageLink(toEmail, name, token string) error
	SendPreferencesUpdated(toEmail, name string) error
	SendUnsubscribeConfirmation(toEmail, name string) error
}

// Service implements the subscriber lifecycle: signup, confirmation,
// preference management and unsubscription.
type Service struct {
	subs    subscriberRepository
	prefs   preferenceRepository
	logs    unsubscribeLogger
	tokens  tokenService
	emailer notificationEmailer
	log     zerolog.Logger
	m       *metrics.Metrics
}

func NewService(
	subs subscriberRepository,
	prefs preferenceRepository,
	logs unsubscribeLogger,
	tokenSvc tokenService,
	emailSvc notificationEmailer,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		subs:    subs,
		prefs:   prefs,
		logs:    logs,
		tokens:  tokenSvc,
		emailer: emailSvc,
		log:     logger.With().Str("component", "SubscriptionService").Logger(),
		m:       m,
	}
}

// Subscribe registers a new subscriber as PENDING and emails a confirmation
// link. An already-confirmed subscriber gets their preferences updated in
// place instead; that path never fails on account of its optional email.
func (s *Service) Subscribe(ctx context.Context, req models.SubscribeRequest) (models.SubscribeResult, error) {
	if !emailPattern.MatchString(req.Email) {
		return models.SubscribeResult{}, ErrInvalidEmail
	}
	if len(req.Categories) == 0 {
		return models.SubscribeResult{}, ErrNoCategories
	}

	existing, found, err := s.subs.GetByEmail(ctx, req.Email)
	if err != nil {
		return models.SubscribeResult{}, err
	}

	if found && existing.Status == models.StatusConfirmed {
		return s.updateConfirmed(ctx, existing, req)
	}

	sub, err := s.subs.UpsertPending(ctx, req.Email, req.Name, req.Categories)
	if err != nil {
		return models.SubscribeResult{}, err
	}

	if err := s.prefs.Upsert(ctx, models.Preference{
		SubscriberID: sub.ID,
		Frequency:    req.Frequency,
		Categories:   req.Categories,
	}); err != nil {
		return models.SubscribeResult{}, err
	}

	token, err := s.tokens.Issue(ctx, sub.Email, confirmTokenTTL)
	if err != nil {
		return models.SubscribeResult{}, err
	}

	s.m.SubscribersCreated.WithLabelValues(req.Frequency).Inc()

	result := models.SubscribeResult{
		Message: "Subscription created. Please check your email to confirm.",
		Email:   sub.Email,
	}
	if err := s.emailer.SendConfirmation(sub.Email, sub.DisplayName(), token); err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("confirmation email failed")
		result.Warning = "Subscription saved, but the confirmation email could not be sent. " +
			"Please try again later."
	}
	return result, nil
}

func (s *Service) updateConfirmed(
	ctx context.Context,
	sub models.Subscriber,
	req models.SubscribeRequest,
) (models.SubscribeResult, error) {
	if err := s.prefs.Upsert(ctx, models.Preference{
		SubscriberID: sub.ID,
		Frequency:    req.Frequency,
		Categories:   req.Categories,
	}); err != nil {
		return models.SubscribeResult{}, err
	}

	name := sub.Name
	if req.Name != "" {
		name = req.Name
	}
	if err := s.subs.UpdateNameAndTags(ctx, sub.ID, name, req.Categories); err != nil {
		return models.SubscribeResult{}, err
	}

	s.m.PreferenceUpdates.Inc()

	if err := s.emailer.SendPreferencesUpdated(sub.Email, sub.DisplayName()); err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("preferences-updated email failed")
	}

	return models.SubscribeResult{
		Message: "You are already subscribed. Your preferences have been updated.",
		Email:   sub.Email,
		Updated: true,
	}, nil
}

// Confirm redeems a confirmation token carried alone in the emailed link and
// activates the subscriber.
func (s *Service) Confirm(ctx context.Context, token string) (models.ConfirmResult, error) {
	email, err := s.tokens.ConsumeByToken(ctx, token)
	if err != nil {
		return models.ConfirmResult{}, err
	}

	ok, err := s.subs.Confirm(ctx, email)
	if err != nil {
		return models.ConfirmResult{}, err
	}
	if !ok {
		return models.ConfirmResult{}, ErrSubscriberNotFound
	}

	sub, _, err := s.subs.GetByEmail(ctx, email)
	if err != nil {
		return models.ConfirmResult{}, err
	}

	s.m.SubscriptionsConfirmed.Inc()
	s.log.Info().Str("email", email).Msg("subscription confirmed")

	if err := s.emailer.SendWelcome(sub.Email, sub.DisplayName()); err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("welcome email failed")
	}

	return models.ConfirmResult{Email: sub.Email, Name: sub.Name}, nil
}

// RequestManageLink emails a short-lived preferences link. The caller always
// gets the same answer whether or not the address is subscribed.
func (s *Service) RequestManageLink(ctx context.Context, email string) error {
	sub, found, err := s.subs.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		s.log.Info().Str("email", email).Msg("manage link requested for unknown address")
		return nil
	}

	token, err := s.tokens.Issue(ctx, sub.Email, manageTokenTTL)
	if err != nil {
		return err
	}

	if err := s.emailer.SendManageLink(sub.Email, sub.DisplayName(), token); err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("manage link email failed")
	}
	return nil
}

// GetPreferences validates a manage token without consuming it and returns
// the subscriber's current settings. The token stays live for the follow-up
// update.
func (s *Service) GetPreferences(ctx context.Context, email, token string) (models.PreferencesView, error) {
	if err := s.tokens.Validate(ctx, email, token); err != nil {
		return models.PreferencesView{}, err
	}

	sub, found, err := s.subs.GetByEmail(ctx, email)
	if err != nil {
		return models.PreferencesView{}, err
	}
	if !found {
		return models.PreferencesView{}, ErrSubscriberNotFound
	}

	pref, _, err := s.prefs.Get(ctx, sub.ID)
	if err != nil {
		return models.PreferencesView{}, err
	}

	return models.PreferencesView{
		Email:      sub.Email,
		Name:       sub.Name,
		Status:     sub.Status,
		Frequency:  pref.Frequency,
		Categories: pref.Categories,
		NoEmails:   pref.NoEmails,
	}, nil
}

// UpdatePreferences applies a partial update; omitted fields keep their
// stored values. The manage token is only consumed once the merged request
// passes validation, so a rejected update leaves the emailed link usable
// for a retry.
func (s *Service) UpdatePreferences(ctx context.Context, req models.UpdatePreferencesRequest) error {
	if err := s.tokens.Validate(ctx, req.Email, req.Token); err != nil {
		return err
	}

	sub, found, err := s.subs.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if !found {
		return ErrSubscriberNotFound
	}

	pref, _, err := s.prefs.Get(ctx, sub.ID)
	if err != nil {
		return err
	}
	pref.SubscriberID = sub.ID

	if req.Frequency != nil {
		pref.Frequency = *req.Frequency
	}
	if req.Categories != nil {
		pref.Categories = *req.Categories
	}
	if req.NoEmails != nil {
		pref.NoEmails = *req.NoEmails
	}
	if !pref.NoEmails && len(pref.Categories) == 0 {
		return ErrNoCategories
	}

	if err := s.tokens.Consume(ctx, req.Email, req.Token); err != nil {
		return err
	}

	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return err
	}
	if err := s.subs.UpdateTags(ctx, sub.ID, pref.Categories); err != nil {
		return err
	}

	s.m.PreferenceUpdates.Inc()
	s.log.Info().Str("email", sub.Email).Msg("preferences updated")
	return nil
}

// Unsubscribe consumes the token, deactivates the subscriber and records an
// audit row. The confirmation email is best effort.
func (s *Service) Unsubscribe(ctx context.Context, req models.UnsubscribeRequest) error {
	if err := s.tokens.Consume(ctx, req.Email, req.Token); err != nil {
		return err
	}

	sub, found, err := s.subs.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if !found {
		return ErrSubscriberNotFound
	}

	ok, err := s.subs.Unsubscribe(ctx, sub.Email)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSubscriberNotFound
	}

	reason := req.Reason
	if reason == "" {
		reason = defaultUnsubscribeReason
	}
	entry := models.UnsubscribeLog{
		ID:             uuid.NewString(),
		Email:          sub.Email,
		Reason:         reason,
		SubscriberID:   sub.ID,
		UnsubscribedAt: time.Now().UTC(),
	}
	if err := s.logs.InsertUnsubscribe(ctx, entry); err != nil {
		return fmt.Errorf("record unsubscribe: %w", err)
	}

	s.m.SubscriptionsCanceled.Inc()
	s.log.Info().Str("email", sub.Email).Str("reason", reason).Msg("subscriber unsubscribed")

	if err := s.emailer.SendUnsubscribeConfirmation(sub.Email, sub.DisplayName()); err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("unsubscribe confirmation email failed")
	}
	return nil
}

// IsTokenError reports whether err is one of the token redemption failures
// callers surface verbatim.
func IsTokenError(err error) bool {
	return errors.Is(err, tokens.ErrTokenNotFound) || errors.Is(err, tokens.ErrTokenExpired)
}
