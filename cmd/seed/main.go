// Command seed loads demo blood banks. Banks whose registration number
// already exists are skipped, so it is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	pg "bloodlink/internal/adapters/postgres"
	"bloodlink/internal/config"
	"bloodlink/internal/domain"
	"bloodlink/internal/logger"
	"bloodlink/internal/ports"
	"bloodlink/internal/services/bloodbanks"
)

var demoBanks = []ports.NewBloodBank{
	{
		Name:               "City Blood Bank",
		RegistrationNumber: "BB12345",
		Phone:              "1234567890",
		Email:              "contact@citybloodbank.com",
		Address:            domain.Address{Street: "123 Main St", City: "New York", State: "NY", Pincode: "10001"},
		Inventory: []domain.InventoryUpdate{
			{BloodGroup: domain.APositive, Quantity: 10},
			{BloodGroup: domain.OPositive, Quantity: 20},
			{BloodGroup: domain.BPositive, Quantity: 5},
		},
		OperatingHours: &domain.OperatingHours{Open: "08:00", Close: "18:00"},
		Verified:       true,
	},
	{
		Name:               "Metro Blood Center",
		RegistrationNumber: "BB67890",
		Phone:              "9876543210",
		Email:              "info@metroblood.com",
		Address:            domain.Address{Street: "456 Oak St", City: "Los Angeles", State: "CA", Pincode: "90001"},
		Inventory: []domain.InventoryUpdate{
			{BloodGroup: domain.ABPositive, Quantity: 15},
			{BloodGroup: domain.ONegative, Quantity: 8},
			{BloodGroup: domain.BNegative, Quantity: 12},
		},
		OperatingHours: &domain.OperatingHours{Open: "09:00", Close: "17:00"},
	},
}

func main() {
	cfg, cfgErr := config.Load()
	log, err := logger.New(cfg.LogLevel, "console", "bloodlink-seed")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Fatal("seed needs a database", zap.Error(cfgErr))
	}

	ctx := context.Background()
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect error", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	svc := bloodbanks.New(db, log)
	seeder := domain.Principal{ID: "seed", Role: domain.RoleAdmin}
	failed := 0
	for _, in := range demoBanks {
		bank, err := svc.Create(ctx, seeder, in)
		switch {
		case errors.Is(err, domain.ErrConflict):
			log.Info("blood bank exists, skipped", zap.String("registration_number", in.RegistrationNumber))
		case err != nil:
			log.Error("adding blood bank", zap.String("registration_number", in.RegistrationNumber), zap.Error(err))
			failed++
		default:
			log.Info("blood bank added", zap.String("id", bank.ID), zap.String("name", bank.Name))
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
