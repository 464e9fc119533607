package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/careloop/appointment-engine/internal/adapters/database"
	"github.com/careloop/appointment-engine/internal/application/services"
	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/infrastructure/clients/postgres"
	"github.com/careloop/appointment-engine/pkg/config"
)

// Seeds a demo calendar: a handful of providers, each with open slots
// over the coming days. Intended for local development against a fresh
// database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				notifications,
				appointments,
				availability_slots
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	availabilityRepo := database.NewAvailabilityAdapter(pgClient)
	generator := services.NewSlotGenerator(services.WorkingHours{
		OpenHour:    cfg.Booking.OpenHour,
		CloseHour:   cfg.Booking.CloseHour,
		Granularity: cfg.Booking.Granularity,
	})
	availabilityService := services.NewAvailabilityService(availabilityRepo, generator, cfg.Booking.DefaultTZ)

	days := 7
	if val := os.Getenv("SEED_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			days = parsed
		}
	}

	providers := []struct {
		id       string
		slotType entities.SlotType
		starts   []string
	}{
		{"prov-adeyemi", entities.SlotTypeStandard, []string{"09:00", "09:30", "10:00", "10:30", "14:00", "14:30"}},
		{"prov-okafor", entities.SlotTypeShort, []string{"08:00", "08:15", "08:30", "08:45", "16:00", "16:15"}},
		{"prov-bello", entities.SlotTypeExtended, []string{"11:00", "13:00", "15:00"}},
	}

	created := 0
	for day := 1; day <= days; day++ {
		date := time.Now().AddDate(0, 0, day).Format("2006-01-02")
		for _, p := range providers {
			slots, problems, err := availabilityService.CreateSlots(ctx, p.id, date, p.starts, p.slotType)
			if err != nil {
				log.Printf("Failed to seed %s on %s: %v (problems: %v)", p.id, date, err, problems)
				continue
			}
			created += len(slots)
		}
	}

	log.Printf("Seeding complete: %d slots across %d providers over %d days", created, len(providers), days)
}
