package users

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConsentRequired    = errors.New("legal consent required")
)

const (
	bcryptCost     = 12
	minPasswordLen = 6
	maxPasswordLen = 128
	maxNameLen     = 100
	maxPhoneLen    = 20
)

var emailRe = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConsentAccepted bool

	// Evidencia del consentimiento
	IPAddress string
	UserAgent string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)

	if name == "" || len(name) > maxNameLen {
		return User{}, ErrInvalidInput
	}
	if !emailRe.MatchString(email) {
		return User{}, ErrInvalidInput
	}
	if len(phone) > maxPhoneLen {
		return User{}, ErrInvalidInput
	}
	if len(in.Password) < minPasswordLen || len(in.Password) > maxPasswordLen {
		return User{}, ErrInvalidInput
	}
	if !in.ConsentAccepted {
		return User{}, ErrConsentRequired
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	consent := ConsentRecord{
		Accepted:   true,
		AcceptedAt: now,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
	}

	terms := consent
	terms.Version = TermsVersion
	privacy := consent
	privacy.Version = PrivacyVersion

	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Consents: Consents{
			Terms:   terms,
			Privacy: privacy,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidInput
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLen {
			return User{}, ErrInvalidInput
		}
		u.Name = name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if len(phone) > maxPhoneLen {
			return User{}, ErrInvalidInput
		}
		u.Phone = phone
	}

	u.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// ConsentUpdate describe qué consentimientos actualizar. Los campos nil
// no se tocan; aceptar términos/privacidad re-sella versión, fecha y
// evidencia (IP + user agent).
type ConsentUpdate struct {
	AcceptTerms   bool
	AcceptPrivacy bool

	Marketing     *bool
	Notifications *bool

	CookiesFunctional *bool
	CookiesAnalytics  *bool
	CookiesMarketing  *bool

	IPAddress string
	UserAgent string
}

func (s *Service) UpdateConsents(ctx context.Context, id string, in ConsentUpdate) (User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	now := s.now()

	if in.AcceptTerms {
		u.Consents.Terms = ConsentRecord{
			Accepted:   true,
			Version:    TermsVersion,
			AcceptedAt: now,
			IPAddress:  in.IPAddress,
			UserAgent:  in.UserAgent,
		}
	}
	if in.AcceptPrivacy {
		u.Consents.Privacy = ConsentRecord{
			Accepted:   true,
			Version:    PrivacyVersion,
			AcceptedAt: now,
			IPAddress:  in.IPAddress,
			UserAgent:  in.UserAgent,
		}
	}
	if in.Marketing != nil {
		u.Consents.Marketing = OptionalConsent{Accepted: *in.Marketing, UpdatedAt: now}
	}
	if in.Notifications != nil {
		u.Consents.Notifications = OptionalConsent{Accepted: *in.Notifications, UpdatedAt: now}
	}
	if in.CookiesFunctional != nil || in.CookiesAnalytics != nil || in.CookiesMarketing != nil {
		cookies := u.Consents.Cookies
		if in.CookiesFunctional != nil {
			cookies.Functional = *in.CookiesFunctional
		}
		if in.CookiesAnalytics != nil {
			cookies.Analytics = *in.CookiesAnalytics
		}
		if in.CookiesMarketing != nil {
			cookies.Marketing = *in.CookiesMarketing
		}
		cookies.UpdatedAt = now
		u.Consents.Cookies = cookies
	}

	u.UpdatedAt = now

	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) ConsentStats(ctx context.Context) (ConsentStats, error) {
	return s.repo.ConsentStats(ctx)
}
