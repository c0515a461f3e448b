package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(db)
	seedRegisters(db)
	seedProducts(db)
	seedExchangeRate(db)

	log.Println("Seeding completed successfully!")
}

func seedUsers(db *sql.DB) {
	users := []struct {
		Username string
		FullName string
		Role     string
		Password string
	}{
		{"admin", "Roberto Lunar", "admin", "admin123"},
		{"maria", "Maria Gonzalez", "cashier", "caja123"},
		{"jose", "Jose Rodriguez", "cashier", "caja123"},
	}

	fmt.Println("Seeding Users...")
	for _, u := range users {
		hash, err := argon2id.CreateHash(u.Password, argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", u.Username, err)
		}
		_, err = db.Exec(`
			INSERT INTO users (username, full_name, role, password_hash, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (username) DO NOTHING;
		`, u.Username, u.FullName, u.Role, hash)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Username, err)
		}
	}
}

func seedRegisters(db *sql.DB) {
	registers := []struct {
		Number int
		Name   string
	}{
		{1, "Caja Principal"},
		{2, "Caja Rapida"},
	}

	fmt.Println("Seeding Registers...")
	for _, r := range registers {
		_, err := db.Exec(`
			INSERT INTO registers (number, name, active)
			VALUES ($1, $2, TRUE)
			ON CONFLICT (number) DO UPDATE SET name = EXCLUDED.name;
		`, r.Number, r.Name)
		if err != nil {
			log.Printf("Failed to seed register %d: %v", r.Number, err)
		}
	}
}

func seedProducts(db *sql.DB) {
	products := []struct {
		Barcode  string
		Code     string
		Name     string
		Category string
		Unit     string
		Price    string
		Cost     string
		Stock    int
		MinStock int
	}{
		{"7591002100018", "HAR-001", "Harina de Maiz Precocida 1kg", "viveres", "unidad", "1.50", "1.10", 120, 24},
		{"7591002100025", "ARR-001", "Arroz Blanco Tipo I 1kg", "viveres", "unidad", "1.80", "1.30", 90, 20},
		{"7591002100032", "PAS-001", "Pasta Larga 500g", "viveres", "unidad", "1.20", "0.85", 110, 24},
		{"7591002100049", "ACE-001", "Aceite de Girasol 1L", "viveres", "unidad", "4.50", "3.60", 48, 12},
		{"7591002100056", "AZU-001", "Azucar Refinada 1kg", "viveres", "unidad", "1.60", "1.15", 75, 18},
		{"7591002100063", "CAF-001", "Cafe Molido 250g", "viveres", "unidad", "3.90", "2.95", 40, 10},
		{"7591002100070", "LEC-001", "Leche en Polvo 400g", "lacteos", "unidad", "5.20", "4.10", 36, 10},
		{"7591002100087", "QUE-001", "Queso Blanco Duro", "lacteos", "kg", "6.50", "5.00", 25, 5},
		{"7591002100094", "JAB-001", "Jabon de Tocador 110g", "limpieza", "unidad", "0.90", "0.60", 150, 30},
		{"7591002100100", "DET-001", "Detergente en Polvo 900g", "limpieza", "unidad", "2.80", "2.05", 60, 15},
		{"7591002100117", "REF-001", "Refresco Cola 2L", "bebidas", "unidad", "2.10", "1.50", 80, 20},
		{"7591002100124", "AGU-001", "Agua Mineral 1.5L", "bebidas", "unidad", "0.80", "0.50", 140, 30},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := db.Exec(`
			INSERT INTO products
				(barcode, code, name, category, unit, sale_price_usd, cost_price_usd, stock, min_stock, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
			ON CONFLICT (barcode) DO UPDATE SET
				name = EXCLUDED.name,
				sale_price_usd = EXCLUDED.sale_price_usd,
				cost_price_usd = EXCLUDED.cost_price_usd;
		`, p.Barcode, p.Code, p.Name, p.Category, p.Unit, p.Price, p.Cost, p.Stock, p.MinStock)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Code, err)
		}
	}
}

func seedExchangeRate(db *sql.DB) {
	fmt.Println("Seeding Exchange Rate...")
	var adminID string
	if err := db.QueryRow(`SELECT id FROM users WHERE username = 'admin'`).Scan(&adminID); err != nil {
		log.Fatalf("Failed to find admin user for rate seed: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT count(*) FROM exchange_rates`).Scan(&count); err != nil {
		log.Fatalf("Failed to count exchange rates: %v", err)
	}
	if count > 0 {
		log.Println("Exchange rates already present, skipping")
		return
	}
	_, err := db.Exec(`
		INSERT INTO exchange_rates (rate, source, observed_at, created_by)
		VALUES ($1, 'manual', now(), $2);
	`, "36.50", adminID)
	if err != nil {
		log.Printf("Failed to seed exchange rate: %v", err)
	}
}
