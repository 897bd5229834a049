package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"safehaven/internal/domain/users"
)

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]users.User
	byEmail map[string]string // email (lowercase) -> id
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]users.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) Create(ctx context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	// Mismo contrato que el adaptador de postgres: el email duplicado se
	// reporta con el centinela del dominio.
	email := strings.ToLower(u.Email)
	if _, exists := r.byEmail[email]; exists {
		return users.ErrEmailTaken
	}

	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepo) Update(ctx context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.byID[u.ID]
	if !exists {
		return users.ErrNotFound
	}

	// El email no cambia vía Update; mantenemos el índice consistente.
	u.Email = prev.Email
	r.byID[u.ID] = u
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *UserRepo) ConsentStats(ctx context.Context) (users.ConsentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := users.ConsentStats{
		TermsByVersion:   make(map[string]int),
		PrivacyByVersion: make(map[string]int),
	}

	for _, u := range r.byID {
		c := u.Consents
		if c.Terms.Accepted {
			st.TermsByVersion[c.Terms.Version]++
		}
		if c.Privacy.Accepted {
			st.PrivacyByVersion[c.Privacy.Version]++
		}
		if c.Marketing.Accepted {
			st.Marketing++
		}
		if c.Notifications.Accepted {
			st.Notifications++
		}
		if c.Cookies.Functional {
			st.CookiesFunctional++
		}
		if c.Cookies.Analytics {
			st.CookiesAnalytics++
		}
		if c.Cookies.Marketing {
			st.CookiesMarketing++
		}
	}

	return st, nil
}
