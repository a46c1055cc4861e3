package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clinicdesk/scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicID := uuid.New()

	doctorIDs, err := seedDoctors(context.Background(), pool, clinicID, 25)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedFees(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed fees: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, clinic_id, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, now(), now())
		`, id, name, spec, clinicID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			email := gofakeit.Email()
			phone := gofakeit.Phone()
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), gofakeit.Name(), email, phone)
			if err != nil {
				tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("patients seeded")
	return nil
}

// seedAvailability gives each doctor a weekday pattern: morning and
// afternoon windows Monday through Friday, with 20 or 30 minute slots.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	durations := []int{20, 30}

	for _, doctorID := range doctorIDs {
		dur := durations[gofakeit.Number(0, 1)]
		windows := []struct{ start, end int }{
			{9 * 60, 12 * 60},  // 09:00-12:00
			{14 * 60, 17 * 60}, // 14:00-17:00
		}
		for day := 1; day <= 5; day++ {
			for _, win := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO weekly_slots (id, doctor_id, day_of_week, start_minute, end_minute, slot_duration, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, true, now(), now())
				`, uuid.New(), doctorID, day, win.start, win.end, dur)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}

func seedFees(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding fees for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		amount := decimal.NewFromInt(int64(gofakeit.Number(4, 20)) * 100)
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_fees (doctor_id, amount, updated_at)
			VALUES ($1, $2, now())
		`, doctorID, amount)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("fees seeded")
	return nil
}
