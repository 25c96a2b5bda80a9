package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"linkinbio-service/internal/config"
	"linkinbio-service/internal/database"
	"linkinbio-service/internal/models"
	"linkinbio-service/internal/repositories/postgres"
	"linkinbio-service/internal/services"
)

func main() {
	users := flag.String("users", "1,2,42", "comma separated user ids to seed")
	perUser := flag.Int("posts", 3, "posts per user")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Fatal("Seeding needs a persistent database driver")
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close(db)

	postService := services.NewPostService(postgres.NewPostRepository(db), slog.Default())

	auth, err := services.NewAuthenticator(cfg.Auth)
	if err != nil {
		log.Fatal("Failed to initialize authenticator:", err)
	}
	signer, _ := auth.(*services.JWTAuthenticator)

	ctx := context.Background()
	for _, user := range strings.Split(*users, ",") {
		user = strings.TrimSpace(user)
		if user == "" {
			continue
		}

		for i := 1; i <= *perUser; i++ {
			post, err := postService.Create(ctx, user, models.CreatePostRequest{
				URL:   fmt.Sprintf("https://example.com/%s/link-%d", user, i),
				Image: fmt.Sprintf("https://picsum.photos/seed/%s-%d/400", user, i),
			})
			if err != nil {
				slog.Warn("Failed to create post", "user", user, "error", err)
				continue
			}
			slog.Info("Created post", "user", user, "id", post.ID)
		}

		// Print a token per user so the seeded data can be queried right away
		if signer != nil {
			token, err := signer.SignToken(user)
			if err != nil {
				slog.Warn("Failed to sign token", "user", user, "error", err)
				continue
			}
			fmt.Printf("user %s token: %s\n", user, token)
		}
	}

	slog.Info("Database seeding completed successfully!")
}
