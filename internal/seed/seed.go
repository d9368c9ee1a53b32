// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"atelier/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	ProductsPerCategory int
	ShouldClean         bool
}

var categoryNames = []string{
	"Dresses", "Outerwear", "Knitwear", "Denim", "Tailoring", "Footwear", "Accessories",
}

var brandNames = []string{
	"Maison Vela", "Atelier Noir", "Forme Studio", "Linnea", "Casa Duarte",
	"Ode & Arrow", "Halcyon Row", "Mirelle", "Verso", "North Thread",
}

var styleNames = []string{
	"minimalist", "capsule", "avant-garde", "classic", "streetwear", "romantic", "utilitarian",
}

var audiences = []string{
	models.AudienceWomen, models.AudienceMen, models.AudienceKids, models.AudienceUnisex,
}

var colorPool = []string{
	"black", "ivory", "camel", "navy", "olive", "burgundy", "slate", "ecru", "rust", "sage",
}

var sizePools = map[string][]string{
	"Footwear": {"36", "37", "38", "39", "40", "41", "42", "43", "44"},
	"default":  {"xs", "s", "m", "l", "xl"},
}

var materialPool = []string{
	"organic cotton", "merino wool", "linen", "silk", "cashmere", "recycled polyester", "leather", "tencel",
}

var badgePool = []string{
	"statement", "runway", "artisanal", "bestseller", "limited", "eco",
}

func pick(rng *rand.Rand, pool []string, n int) models.StringList {
	shuffled := append([]string(nil), pool...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return models.NormalizeList(shuffled[:n]...)
}

// Run populates the database with demo accounts and a fashion catalog.
// The two accounts are deterministic so local clients can sign in:
// admin@atelier.dev / admin-dev-password and maya@atelier.dev / customer-dev-password.
func Run(db *gorm.DB, opts Options) error {
	if opts.ProductsPerCategory <= 0 {
		opts.ProductsPerCategory = 12
	}

	if opts.ShouldClean {
		log.Println("Cleaning existing data...")
		for _, table := range []string{
			"messages", "conversations", "order_items", "orders", "cart_items", "carts",
			"inventories", "products", "categories", "events",
		} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clean %s: %w", table, err)
			}
		}
	}

	gofakeit.Seed(time.Now().UnixNano())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := seedUsers(db); err != nil {
		return err
	}
	return seedCatalog(db, rng, opts.ProductsPerCategory)
}

func seedUsers(db *gorm.DB) error {
	accounts := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{"Atelier Admin", "admin@atelier.dev", "admin-dev-password", models.RoleAdmin},
		{"Maya Lindqvist", "maya@atelier.dev", "customer-dev-password", models.RoleCustomer},
	}

	for _, account := range accounts {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", account.email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(account.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := models.User{
			Name:     account.name,
			Email:    account.email,
			Password: string(hash),
			Role:     account.role,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		log.Printf("Seeded user %s (%s)", account.email, account.role)
	}
	return nil
}

func seedCatalog(db *gorm.DB, rng *rand.Rand, perCategory int) error {
	for _, name := range categoryNames {
		category := models.Category{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&category).Error; err != nil {
			return err
		}

		var existing int64
		if err := db.Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		sizes := sizePools["default"]
		if pool, ok := sizePools[name]; ok {
			sizes = pool
		}

		for i := 0; i < perCategory; i++ {
			brand := brandNames[rng.Intn(len(brandNames))]
			productName := fmt.Sprintf("%s %s %s",
				strings.Title(gofakeit.AdjectiveDescriptive()),
				gofakeit.Color(),
				strings.TrimSuffix(name, "s"),
			)

			price := float64(rng.Intn(38000)+2500) / 100 // 25.00 .. 405.00
			rating := float64(rng.Intn(21)+30) / 10      // 3.0 .. 5.0

			product := models.Product{
				Name:             productName,
				ShortDescription: gofakeit.Sentence(8),
				Description:      gofakeit.Paragraph(1, 3, 12, " "),
				Price:            price,
				Image:            fmt.Sprintf("https://picsum.photos/seed/%s/900/1200", gofakeit.UUID()),
				SKU:              fmt.Sprintf("ATL-%s-%04d", strings.ToUpper(name[:3]), rng.Intn(10000)),
				Brand:            brand,
				Style:            styleNames[rng.Intn(len(styleNames))],
				Audience:         audiences[rng.Intn(len(audiences))],
				Rating:           &rating,
				IsFeatured:       rng.Intn(8) == 0,
				IsNewArrival:     rng.Intn(4) == 0,
				ColorOptions:     pick(rng, colorPool, rng.Intn(3)+2),
				SizeOptions:      models.NormalizeList(sizes...),
				Materials:        pick(rng, materialPool, rng.Intn(2)+1),
				Badges:           pick(rng, badgePool, rng.Intn(3)),
				CategoryID:       category.ID,
			}
			if err := db.Create(&product).Error; err != nil {
				// SKU collisions are possible with random suffixes; retry once.
				product.SKU = fmt.Sprintf("ATL-%s-%04d-%d", strings.ToUpper(name[:3]), rng.Intn(10000), i)
				if err := db.Create(&product).Error; err != nil {
					return err
				}
			}

			inv := models.Inventory{ProductID: product.ID, Quantity: rng.Intn(60) + 5}
			if err := db.Create(&inv).Error; err != nil {
				return err
			}
		}
		log.Printf("Seeded %d products in %s", perCategory, name)
	}
	return nil
}
