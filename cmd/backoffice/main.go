package main

import (
	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/migration"
	"github.com/constructoai/backoffice/internal/observability"
	"github.com/constructoai/backoffice/internal/purchaseorder"
	"github.com/constructoai/backoffice/internal/server"
	"github.com/constructoai/backoffice/internal/submission"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		clock.Module,

		// Functional domains
		submission.Module,
		purchaseorder.Module,
		company.Module,
		migration.Module,

		server.Module,
	)
	app.Run()
}
