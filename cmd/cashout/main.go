package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cashout/internal/account"
	"github.com/smallbiznis/cashout/internal/clock"
	"github.com/smallbiznis/cashout/internal/config"
	"github.com/smallbiznis/cashout/internal/migration"
	"github.com/smallbiznis/cashout/internal/observability"
	"github.com/smallbiznis/cashout/internal/ratelimit"
	"github.com/smallbiznis/cashout/internal/risk"
	"github.com/smallbiznis/cashout/internal/server"
	"github.com/smallbiznis/cashout/internal/token"
	"github.com/smallbiznis/cashout/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		account.Module,
		token.Module,
		ratelimit.Module,
		risk.Module,

		// HTTP surface
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {}),
		fx.Invoke(server.RunHTTP),
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
