package service

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dnstld/desk-buddy-sub000/internal/api/metrics"
	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

const (
	createUserAttempts  = 3
	createUserBaseDelay = 200 * time.Millisecond
)

// SignupService bootstraps users on first sign-in. A returning principal is
// resolved by auth_id; a new one gets a member row attached to the company
// matching its email domain, creating the company first when none exists.
type SignupService struct {
	users     ports.UserRepository
	companies ports.CompanyRepository
	log       zerolog.Logger

	// newID is overridable in tests for deterministic row ids.
	newID func() string
}

func NewSignupService(users ports.UserRepository, companies ports.CompanyRepository, log zerolog.Logger) *SignupService {
	return &SignupService{
		users:     users,
		companies: companies,
		log:       log,
		newID:     uuid.NewString,
	}
}

// SignIn resolves or creates the user row for the verified principal.
//
// When user creation fails after a company was created for it, the freshly
// created company is deleted so the store is left as it was found. That
// mirrors the compensation discipline of the membership sagas.
func (s *SignupService) SignIn(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	existing, err := s.users.FindByAuthID(ctx, principal.ID)
	if err == nil {
		metrics.MutationsTotal.WithLabelValues("signin_bootstrap", "success").Inc()
		return existing, nil
	}
	if domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}

	user, err := s.bootstrap(ctx, principal)
	outcome := "success"
	if err != nil {
		outcome = "error"
		if domain.KindOf(err) == domain.KindBadRequest {
			outcome = "rejected"
		}
	}
	metrics.MutationsTotal.WithLabelValues("signin_bootstrap", outcome).Inc()
	return user, err
}

func (s *SignupService) bootstrap(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	emailDomain := domain.EmailDomain(principal.Email)
	if emailDomain == "" {
		return nil, domain.BadRequest(domain.CodeInvalidEmail, "email address has no usable domain")
	}

	company, created, err := s.findOrCreateCompany(ctx, emailDomain)
	if err != nil {
		return nil, err
	}

	user, err := s.createUserWithRetry(ctx, principal, company.ID)
	if err != nil {
		if created {
			if derr := s.companies.Delete(ctx, company.ID); derr != nil {
				s.log.Error().Err(derr).
					Str("company_id", company.ID).
					Str("state", "reconcile_required").
					Msg("orphan company cleanup failed after user creation failure")
			}
		}
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("company_id", company.ID).
		Bool("company_created", created).
		Msg("user bootstrapped")
	return user, nil
}

func (s *SignupService) findOrCreateCompany(ctx context.Context, emailDomain string) (*domain.Company, bool, error) {
	company, err := s.companies.FindByDomain(ctx, emailDomain)
	if err == nil {
		return company, false, nil
	}
	if domain.KindOf(err) != domain.KindNotFound {
		return nil, false, err
	}

	created, err := s.companies.Create(ctx, &domain.Company{
		ID:     s.newID(),
		Name:   domain.CompanyNameFromDomain(emailDomain),
		Domain: emailDomain,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// createUserWithRetry inserts the user row, retrying transient failures with
// exponential backoff (createUserAttempts tries, createUserBaseDelay base).
func (s *SignupService) createUserWithRetry(ctx context.Context, principal domain.Principal, companyID string) (*domain.User, error) {
	authID := principal.ID
	row := &domain.User{
		ID:        s.newID(),
		AuthID:    &authID,
		Email:     principal.Email,
		Name:      displayName(principal.Email),
		Role:      domain.RoleMember,
		CompanyID: &companyID,
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = createUserBaseDelay

	return backoff.Retry(ctx, func() (*domain.User, error) {
		created, err := s.users.Create(ctx, row)
		if err != nil {
			// Only transient store failures are worth another attempt.
			if domain.KindOf(err) != domain.KindInternal {
				return nil, backoff.Permanent(err)
			}
			s.log.Warn().Err(err).Str("auth_id", authID).Msg("user creation failed, retrying")
			return nil, err
		}
		return created, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(createUserAttempts))
}

// displayName derives a provisional name from the email local part; the
// mobile app lets the user change it later.
func displayName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return strings.TrimSpace(local)
}
