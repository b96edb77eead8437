package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/clock"
	"github.com/smallbiznis/formpay/internal/config"
	"github.com/smallbiznis/formpay/internal/migration"
	"github.com/smallbiznis/formpay/internal/observability"
	"github.com/smallbiznis/formpay/internal/server"
	"github.com/smallbiznis/formpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema must exist before the bootstrap key and policies are seeded.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
