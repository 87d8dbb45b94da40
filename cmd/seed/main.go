// Command seed fills the configured database with demo data.
package main

import (
	"flag"
	"log"

	"artfeed/internal/bootstrap"
	"artfeed/internal/config"
	"artfeed/internal/seed"
)

func main() {
	users := flag.Int("users", 10, "number of demo users to create")
	posts := flag.Int("posts", 30, "number of demo posts to create")
	clean := flag.Bool("clean", false, "delete non-admin data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	if err := seed.Run(db, seed.Options{
		NumUsers:    *users,
		NumPosts:    *posts,
		ShouldClean: *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
