// Command main runs the database seeder for Atelier.
package main

import (
	"flag"
	"log"

	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/seed"
)

func main() {
	// Parse command line flags
	perCategory := flag.Int("products", 12, "Number of products to create per category")
	shouldClean := flag.Bool("clean", false, "Clean catalog and order data before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d products per category, clean=%v\n", *perCategory, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, seed.Options{
		ProductsPerCategory: *perCategory,
		ShouldClean:         *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Println("📧 Sign in with admin@atelier.dev / admin-dev-password or maya@atelier.dev / customer-dev-password")
}
