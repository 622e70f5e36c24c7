package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/idx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

// ClientSeed describes a client to provision. Secret is plaintext and is
// hashed before it is stored.
type ClientSeed struct {
	ID                   string   `koanf:"id"`
	Name                 string   `koanf:"name"`
	Secret               string   `koanf:"secret"`
	Scopes               []string `koanf:"scopes"`
	GrantTypes           []string `koanf:"grant_types"`
	DeliveryMode         string   `koanf:"delivery_mode"`
	NotificationEndpoint string   `koanf:"notification_endpoint"`
	JWKSURI              string   `koanf:"jwks_uri"`
	UserCodeParameter    bool     `koanf:"user_code_parameter"`
	AcceptedHints        []string `koanf:"accepted_hints"`
}

// UserSeed describes an end-user to provision. UserCode is a static code
// stored as a hash; TOTPSecret enrols a time-based code instead.
// DeviceToken pre-registers the user's authentication device.
type UserSeed struct {
	ID          string `koanf:"id"`
	UID         string `koanf:"uid"`
	Mail        string `koanf:"mail"`
	Phone       string `koanf:"phone"`
	UserCode    string `koanf:"user_code"`
	TOTPSecret  string `koanf:"totp_secret"`
	DeviceToken string `koanf:"device_token"`
}

// Seed is the provisioning document.
type Seed struct {
	Clients []ClientSeed `koanf:"clients"`
	Users   []UserSeed   `koanf:"users"`
}

// ProvisionService creates clients and users from seed data.
type ProvisionService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// Apply stores every entry of seed in one transaction. Entries whose ID
// is taken are left as they are.
func (s *ProvisionService) Apply(ctx context.Context, seed Seed) error {
	l := slogx.FromContext(ctx)

	var created, skipped int
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, cs := range seed.Clients {
			c, err := s.client(cs)
			if err != nil {
				return err
			}
			if err := tx.Clients().CreateClient(ctx, c); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					skipped++
					continue
				}
				return fmt.Errorf("create client %q: %w", c.ID, err)
			}
			created++
		}
		for _, us := range seed.Users {
			u, err := s.user(us)
			if err != nil {
				return err
			}
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					skipped++
					continue
				}
				return fmt.Errorf("create user %q: %w", u.UID, err)
			}
			if us.DeviceToken != "" {
				err := tx.Devices().SetDeviceToken(ctx, domain.DeviceRegistration{
					UserID:      u.ID,
					Token:       us.DeviceToken,
					Fingerprint: cryptox.FingerprintToken(us.DeviceToken),
					CreatedAt:   u.CreatedAt,
					UpdatedAt:   u.CreatedAt,
				})
				if err != nil {
					return fmt.Errorf("register device of %q: %w", u.UID, err)
				}
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.Info("seed applied", slog.Int("created", created), slog.Int("skipped", skipped))
	return nil
}

func (s *ProvisionService) client(cs ClientSeed) (domain.Client, error) {
	if cs.ID == "" {
		return domain.Client{}, errors.New("seed client without id")
	}

	mode := domain.DeliveryMode(cs.DeliveryMode)
	if mode == "" {
		mode = domain.DeliveryPoll
	}
	if !mode.Valid() {
		return domain.Client{}, fmt.Errorf("client %q: unknown delivery mode %q", cs.ID, cs.DeliveryMode)
	}
	if mode.RequiresNotificationToken() && cs.NotificationEndpoint == "" {
		return domain.Client{}, fmt.Errorf("client %q: %s mode needs a notification endpoint", cs.ID, mode)
	}

	c := domain.Client{
		ID:                   cs.ID,
		Name:                 cs.Name,
		Scopes:               cs.Scopes,
		DeliveryMode:         mode,
		NotificationEndpoint: cs.NotificationEndpoint,
		JWKSURI:              cs.JWKSURI,
		UserCodeParameter:    cs.UserCodeParameter,
		CreatedAt:            time.Now(),
	}
	c.UpdatedAt = c.CreatedAt
	for _, gt := range cs.GrantTypes {
		g := domain.GrantType(gt)
		if !g.Valid() {
			return domain.Client{}, fmt.Errorf("client %q: unknown grant type %q", cs.ID, gt)
		}
		c.GrantTypes = append(c.GrantTypes, g)
	}
	for _, h := range cs.AcceptedHints {
		c.AcceptedHints = append(c.AcceptedHints, domain.HintType(h))
	}

	if cs.Secret != "" {
		hash, err := s.Hasher.Hash(cs.Secret)
		if err != nil {
			return domain.Client{}, fmt.Errorf("client %q: hash secret: %w", cs.ID, err)
		}
		c.SecretHash = hash
	}
	return c, nil
}

func (s *ProvisionService) user(us UserSeed) (domain.User, error) {
	if us.UID == "" {
		return domain.User{}, errors.New("seed user without uid")
	}

	now := time.Now()
	u := domain.User{ID: us.ID, UID: us.UID, Mail: us.Mail, Phone: us.Phone, CreatedAt: now, UpdatedAt: now}
	if u.ID == "" {
		u.ID = idx.New().String()
	}
	if us.TOTPSecret != "" {
		secret := us.TOTPSecret
		u.TOTPSecret = &secret
	}
	if us.UserCode != "" {
		hash, err := s.Hasher.Hash(us.UserCode)
		if err != nil {
			return domain.User{}, fmt.Errorf("user %q: hash user code: %w", us.UID, err)
		}
		u.UserCodeHash = &hash
	}
	return u, nil
}
