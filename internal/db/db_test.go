package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/chat"
)

func TestConnectAndMigrate(t *testing.T) {
	req := require.New(t)

	gdb, err := Connect("sqlite", "file:migrate_test?mode=memory&cache=shared")
	req.NoError(err)
	defer Close(gdb)

	req.NoError(Migrate(context.Background(), gdb))
	// running twice is a no-op
	req.NoError(Migrate(context.Background(), gdb))

	for _, m := range chat.Models() {
		req.True(gdb.Migrator().HasTable(m))
	}
	req.True(gdb.Migrator().HasColumn(&chat.Message{}, "recipient"))
	req.True(gdb.Migrator().HasColumn(&chat.Message{}, "reply_to"))
	req.True(gdb.Migrator().HasColumn(&chat.Presence{}, "last_seen"))
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect("postgres", "whatever")
	require.Error(t, err)
}
