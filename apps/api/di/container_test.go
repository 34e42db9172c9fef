package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/eventbus"
)

type wired struct {
	dig.In
	Users           user.Service
	NotificationSvc notification.Service
	Notifier        *notification.Notifier
	Bus             *eventbus.Bus
	Server          echoapi.Server
}

func TestNew_inMemory(t *testing.T) {
	c := New(core.NewTestConfig())

	err := c.Invoke(func(w wired) {
		defer w.Bus.Close()
		ctx := context.Background()

		usr, err := w.Users.Signup(ctx, user.NewUser{
			Name:            "Hero",
			Username:        "hero_one",
			Email:           "hero@test.cd",
			Password:        "K7#mQz!x2Lp",
			PasswordConfirm: "K7#mQz!x2Lp",
		})
		require.NoError(t, err)

		// the notifier is subscribed as soon as it is built
		ntfs, err := w.NotificationSvc.Query(ctx, usr.ID, nil)
		require.NoError(t, err)
		require.Len(t, ntfs, 1)
		assert.Equal(t, notification.TypeNewSignup, ntfs[0].Type)
	})
	require.NoError(t, err)
}
