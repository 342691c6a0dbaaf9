package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxledger/internal/amendment"
	"github.com/smallbiznis/taxledger/internal/clock"
	"github.com/smallbiznis/taxledger/internal/config"
	"github.com/smallbiznis/taxledger/internal/event"
	"github.com/smallbiznis/taxledger/internal/ingestion"
	"github.com/smallbiznis/taxledger/internal/migration"
	"github.com/smallbiznis/taxledger/internal/observability"
	"github.com/smallbiznis/taxledger/internal/server"
	"github.com/smallbiznis/taxledger/internal/taxposition"
	"github.com/smallbiznis/taxledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		event.Module,
		amendment.Module,
		ingestion.Module,
		taxposition.Module,

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
