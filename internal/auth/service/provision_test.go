package service

import (
	"context"
	"testing"

	"github.com/JanssenProject/jans-sub050/internal/auth/domain"
	"github.com/JanssenProject/jans-sub050/internal/auth/store/drivers/sqlite"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestProvisionService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	hasher := cryptox.NewHasher("pepper")
	p := &ProvisionService{Store: db, Hasher: hasher}

	seed := Seed{
		Clients: []ClientSeed{{
			ID:                   "rp",
			Name:                 "Relying Party",
			Secret:               "s3cret",
			Scopes:               []string{"openid", "profile"},
			GrantTypes:           []string{string(domain.GrantCIBA)},
			DeliveryMode:         "ping",
			NotificationEndpoint: "https://rp.example/cb",
			AcceptedHints:        []string{"login_hint"},
		}},
		Users: []UserSeed{
			{ID: "u1", UID: "alice", Mail: "alice@example.com", UserCode: "1234", DeviceToken: "alice-phone"},
			{UID: "bob", TOTPSecret: "JBSWY3DPEHPK3PXP"},
		},
	}
	require.NoError(t, p.Apply(ctx, seed))
	require.NoError(t, p.Apply(ctx, seed), "re-applying skips existing entries")

	c, err := db.Clients().GetClientByID(ctx, "rp")
	require.NoError(t, err)
	require.Equal(t, domain.DeliveryPing, c.DeliveryMode)
	require.True(t, c.AllowsGrantType(domain.GrantCIBA))
	require.False(t, c.AcceptsHint(domain.HintIDToken))
	require.NoError(t, hasher.Verify("s3cret", c.SecretHash))

	u, err := db.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.UserCodeHash)
	require.NoError(t, hasher.Verify("1234", *u.UserCodeHash))

	dev, err := db.Devices().GetDeviceToken(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice-phone", dev.Token)

	bob, err := db.Users().FindUniqueUser(ctx, []string{domain.AttrUID}, "bob")
	require.NoError(t, err)
	require.NotEmpty(t, bob.ID)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *bob.TOTPSecret)

	t.Run("invalid entries", func(t *testing.T) {
		for _, bad := range []Seed{
			{Clients: []ClientSeed{{Name: "no id"}}},
			{Clients: []ClientSeed{{ID: "x", DeliveryMode: "carrier-pigeon"}}},
			{Clients: []ClientSeed{{ID: "x", DeliveryMode: "push"}}},
			{Clients: []ClientSeed{{ID: "x", GrantTypes: []string{"magic"}}}},
			{Users: []UserSeed{{Mail: "no-uid@example.com"}}},
		} {
			require.Error(t, p.Apply(ctx, bad))
		}
	})
}
