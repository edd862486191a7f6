package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, pool)
	seedDelivery(ctx, pool)
	seedCharges(ctx, pool)
	seedCoupons(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Name        string
		UnitPrice   int64
		WeightGrams int64
		Stock       int32
	}{
		{"Basmati Rice 5kg", 8_500, 5_000, 120},
		{"Red Lentils 1kg", 1_650, 1_000, 300},
		{"Mustard Oil 1L", 2_100, 950, 80},
		{"Organic Honey 500g", 4_750, 620, 40},
		{"Cardamom 100g", 3_900, 100, 60},
		{"Green Tea 250g", 1_250, 250, 150},
	}

	log.Println("Seeding products...")
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (name, unit_price, weight_grams, stock)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`,
			p.Name, p.UnitPrice, p.WeightGrams, p.Stock)
		if err != nil {
			log.Fatalf("Failed to seed product %q: %v", p.Name, err)
		}
	}
}

func seedDelivery(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding delivery methods...")

	var standardID string
	err := pool.QueryRow(ctx, `
		INSERT INTO delivery_methods (label, fallback_amount, is_default, is_active)
		VALUES ('Standard', 700, true, true)
		RETURNING id`).Scan(&standardID)
	if err != nil {
		log.Fatalf("Failed to seed standard delivery: %v", err)
	}

	var expressID string
	err = pool.QueryRow(ctx, `
		INSERT INTO delivery_methods (label, fallback_amount, is_default, is_active)
		VALUES ('Express', 1500, false, true)
		RETURNING id`).Scan(&expressID)
	if err != nil {
		log.Fatalf("Failed to seed express delivery: %v", err)
	}

	rules := []struct {
		MethodID  string
		Min, Max  int64
		Base      int64
		BaseFee   int64
		Unit      int64
		UnitFee   int64
		Rounding  string
		SortOrder int32
	}{
		{standardID, 0, 2_000, 1_000, 500, 500, 200, "ceil", 0},
		{standardID, 2_001, 10_000, 2_000, 900, 1_000, 150, "round", 1},
		{expressID, 0, 5_000, 500, 1_200, 500, 400, "ceil", 0},
	}
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO delivery_weight_rules
				(method_id, min_weight_grams, max_weight_grams, base_weight_grams, base_charge,
				 increment_unit_grams, increment_charge, rounding_mode, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.MethodID, r.Min, r.Max, r.Base, r.BaseFee, r.Unit, r.UnitFee, r.Rounding, r.SortOrder)
		if err != nil {
			log.Fatalf("Failed to seed delivery rule: %v", err)
		}
	}
}

func seedCharges(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding extra charges...")
	charges := []struct {
		Label      string
		Kind       string
		Calc       string
		Amount     int64
		PercentBps int32
		SortOrder  int32
	}{
		{"Handling fee", "charge", "amount", 300, 0, 0},
		{"VAT", "charge", "percent", 0, 500, 1},
		{"Member reduction", "discount", "percent", 0, 250, 2},
	}
	for _, c := range charges {
		_, err := pool.Exec(ctx, `
			INSERT INTO extra_charges (label, kind, calc_type, amount, percent_bps, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING`,
			c.Label, c.Kind, c.Calc, c.Amount, c.PercentBps, c.SortOrder)
		if err != nil {
			log.Fatalf("Failed to seed charge %q: %v", c.Label, err)
		}
	}
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding coupons...")
	now := time.Now()
	coupons := []struct {
		Code       string
		Calc       string
		Amount     int64
		PercentBps int32
		MinOrder   *int64
		ValidFrom  *time.Time
		ValidTo    *time.Time
	}{
		{"WELCOME10", "percent", 0, 1_000, nil, nil, nil},
		{"SUMMER25", "percent", 0, 2_500, ptrInt64(5_000), ptrTime(now), ptrTime(now.AddDate(0, 3, 0))},
		{"FLAT5", "amount", 500, 0, nil, nil, nil},
	}
	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, calc_type, amount, percent_bps, min_order_amount, valid_from, valid_to)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT DO NOTHING`,
			c.Code, c.Calc, c.Amount, c.PercentBps, c.MinOrder, c.ValidFrom, c.ValidTo)
		if err != nil {
			log.Fatalf("Failed to seed coupon %q: %v", c.Code, err)
		}
	}
}

func ptrInt64(v int64) *int64        { return &v }
func ptrTime(t time.Time) *time.Time { return &t }
