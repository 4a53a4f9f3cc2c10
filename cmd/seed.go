package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/doinghun/merlabot-public/internal/config"
	"github.com/doinghun/merlabot-public/internal/db"
	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo restaurants",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo restaurants...")

		if err := seedRestaurants(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

// seedRestaurants inserts deterministic demo rows (idempotent).
func seedRestaurants(dbx *sqlx.DB) error {
	restaurants := []model.Restaurant{
		{
			Name:        "Hjh Maimunah",
			Cuisine:     "malay",
			Description: "Kampung-style nasi padang, queue moves fast",
			MapURL:      "https://goo.gl/maps/jQ8VXhV8bUv",
			ImageURL:    "https://example.com/img/hjh-maimunah.jpg",
		},
		{
			Name:        "Tian Tian Hainanese Chicken Rice",
			Cuisine:     "chinese",
			Description: "Maxwell Food Centre stall, the chicken rice benchmark",
			MapURL:      "https://goo.gl/maps/PSQwQy2nTGz",
			ImageURL:    "https://example.com/img/tian-tian.jpg",
		},
		{
			Name:        "Keng Eng Kee Seafood",
			Cuisine:     "chinese",
			Description: "Zi char classics, go for the moonlight hor fun",
			MapURL:      "https://goo.gl/maps/Vn1tWBGsbQM2",
			ImageURL:    "https://example.com/img/kek.jpg",
		},
		{
			Name:        "Komala Vilas",
			Cuisine:     "indian",
			Description: "Serangoon Road institution for dosai and thali",
			MapURL:      "https://goo.gl/maps/cCeSx4LZQJu",
			ImageURL:    "https://example.com/img/komala-vilas.jpg",
		},
		{
			Name:        "Teppei Japanese Restaurant",
			Cuisine:     "japanese",
			Description: "Omakase worth the waitlist, kaisendon at lunch",
			MapURL:      "https://goo.gl/maps/kQz1t8PStpE2",
			ImageURL:    "https://example.com/img/teppei.jpg",
		},
		{
			Name:        "Wala Wala Cafe Bar",
			Cuisine:     "western",
			Description: "Holland Village staple, wings and live music",
			MapURL:      "https://goo.gl/maps/CJvEsbRrqYG2",
			ImageURL:    "https://example.com/img/wala-wala.jpg",
		},
		{
			Name:        "Dookki Korea",
			Cuisine:     "korean",
			Description: "Tteokbokki buffet, bring friends and an appetite",
			MapURL:      "https://goo.gl/maps/omWyTX5ASbR2",
			ImageURL:    "https://example.com/img/dookki.jpg",
		},
	}

	// idempotent upsert based on name (UNIQUE)
	const q = `
INSERT INTO restaurants
    (name, cuisine, description, map_url, image_url, created_at)
VALUES
    (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    cuisine     = VALUES(cuisine),
    description = VALUES(description),
    map_url     = VALUES(map_url),
    image_url   = VALUES(image_url)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, r := range restaurants {
		if _, err := tx.Exec(q, r.Name, r.Cuisine, r.Description, r.MapURL, r.ImageURL, now); err != nil {
			return fmt.Errorf("insert restaurant %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restaurants: %w", err)
	}
	return nil
}
