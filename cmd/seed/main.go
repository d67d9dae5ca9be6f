// Package main provides a tool to seed the catalog with starter books.
//
// The catalog feeds the similar-books endpoint. Embeddings are computed when
// an API key is configured; otherwise books are seeded without them and picked
// up later once embeddings exist.
//
// Usage:
//
//	DATA_PATH=~/ShelfScout/data go run ./cmd/seed
//	DATA_PATH=~/ShelfScout/data OPENAI_API_KEY=sk-... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shelfscout/shelfscout-server/internal/ai"
	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
	"github.com/shelfscout/shelfscout-server/internal/id"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

var starterCatalog = []struct {
	title       string
	author      string
	description string
}{
	{
		title:       "Dune",
		author:      "Frank Herbert",
		description: "Una épica de ciencia ficción sobre política, religión y ecología en un planeta desértico con gusanos gigantes.",
	},
	{
		title:       "El Señor de los Anillos",
		author:      "J.R.R. Tolkien",
		description: "Un grupo de héroes emprende un viaje peligroso para destruir un anillo poderoso y salvar la Tierra Media de la oscuridad.",
	},
	{
		title:       "Fundación",
		author:      "Isaac Asimov",
		description: "Un matemático desarrolla una ciencia para predecir la caída de un imperio galáctico y reducir el tiempo de barbarie.",
	},
}

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/ShelfScout/data")
	}

	dbPath := filepath.Join(dataPath, "shelfscout.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var embedder *ai.Client
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		embedder = ai.NewClient(ai.Config{
			BaseURL:        envOr("OPENAI_BASE_URL", "https://api.openai.com"),
			APIKey:         apiKey,
			EmbeddingModel: envOr("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:        30 * time.Second,
		}, logger)
	} else {
		fmt.Println("No OPENAI_API_KEY set, seeding without embeddings")
	}

	ctx := context.Background()
	created := 0

	for _, entry := range starterCatalog {
		book := &domain.CatalogBook{
			ID:          id.MustGenerate("catalog"),
			Title:       entry.title,
			Author:      entry.author,
			Description: entry.description,
			CreatedAt:   time.Now().UTC(),
		}

		if embedder != nil {
			embedding, err := embedder.Embed(ctx, entry.description)
			if err != nil {
				log.Fatalf("Failed to embed %q: %v", entry.title, err)
			}
			book.Embedding = embedding
		}

		err := db.CreateCatalogBook(ctx, book)
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			fmt.Printf("Skipping %q by %s: already in catalog\n", entry.title, entry.author)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to seed %q: %v", entry.title, err)
		}

		fmt.Printf("Seeded %q by %s\n", entry.title, entry.author)
		created++
	}

	fmt.Printf("Done: %d of %d catalog books created\n", created, len(starterCatalog))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
