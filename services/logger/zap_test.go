package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/academia/core/user"
)

func TestZapLogger_fields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZap(zap.New(core).Sugar())

	usr := user.User{ID: "42", Username: "jdoe"}
	logger.Error("handling event", errors.New("boom"), usr, map[string]interface{}{"event_id": "e-1"})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "handling event", entries[0].Message)
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "42", ctx["user_id"])
		assert.Equal(t, "jdoe", ctx["username"])
		assert.Equal(t, "e-1", ctx["event_id"])
	}
}

func TestRollbarLogger_prepare(t *testing.T) {
	l := RollbarLogger{std: zap.NewNop().Sugar()}

	args := l.prepare("msg", []interface{}{errors.New("x"), user.User{ID: "1"}, user.User{ID: "2"}})
	assert.Len(t, args, 2, "users are consumed as the rollbar person, not forwarded")
	assert.Equal(t, "msg", args[0])
}
