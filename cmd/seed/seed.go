package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"

	"libris/internal/auth"
	"libris/internal/model"
	"libris/internal/repository"
	"libris/internal/service"
)

//go:embed fixtures.json
var defaultFixture []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Fixture is the seed payload: accounts and catalogued titles.
type Fixture struct {
	Users []SeedUser `json:"users"`
	Books []SeedBook `json:"books"`
}

// SeedUser is one account to create.
type SeedUser struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// SeedBook is one title to catalogue with its copies.
type SeedBook struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre"`
	PublishedYear int    `json:"published_year"`
	Pages         int    `json:"pages"`
	ImageURL      string `json:"image_url"`
	Description   string `json:"description"`
	TotalCopies   int    `json:"total_copies"`
}

// Result counts what a seed run did.
type Result struct {
	UsersCreated int
	UsersSkipped int
	BooksCreated int
	BooksSkipped int
	CopiesAdded  int
	Users        []model.User
}

// loadFixture reads path, or the embedded fixture when path is empty.
func loadFixture(path string) (*Fixture, error) {
	data := defaultFixture
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open fixture: %w", err)
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
	}

	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// seed creates the fixture's users and books through the services, so every
// catalog invariant holds. Users whose email exists and books whose title and
// author already exist are skipped, which makes repeated runs harmless.
func seed(ctx context.Context, store repository.Store, catalog service.CatalogService, users service.UserService, fx *Fixture) (*Result, error) {
	res := &Result{}

	for _, u := range fx.Users {
		existing, err := store.Users().FindByEmail(ctx, u.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return res, fmt.Errorf("error checking user %s: %w", u.Email, err)
		}
		if existing != nil {
			res.UsersSkipped++
			res.Users = append(res.Users, *existing)
			continue
		}

		created, err := users.CreateUser(ctx, service.UserInput{
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			Email:       u.Email,
			Password:    u.Password,
			PhoneNumber: u.PhoneNumber,
			Role:        u.Role,
		})
		if err != nil {
			return res, fmt.Errorf("error creating user %s: %w", u.Email, err)
		}
		res.UsersCreated++
		res.Users = append(res.Users, *created)
	}

	books, err := catalog.ListBooks(ctx)
	if err != nil {
		return res, fmt.Errorf("list books: %w", err)
	}
	known := make(map[string]bool, len(books))
	for _, b := range books {
		known[b.Title+"\x00"+b.Author] = true
	}

	for _, b := range fx.Books {
		if known[b.Title+"\x00"+b.Author] {
			res.BooksSkipped++
			continue
		}
		copies := b.TotalCopies
		_, created, err := catalog.CreateBook(ctx, service.BookInput{
			Title:         b.Title,
			Author:        b.Author,
			Genre:         b.Genre,
			PublishedYear: b.PublishedYear,
			Pages:         b.Pages,
			ImageURL:      b.ImageURL,
			Description:   b.Description,
			TotalCopies:   &copies,
		})
		if err != nil {
			return res, fmt.Errorf("error creating book %q: %w", b.Title, err)
		}
		known[b.Title+"\x00"+b.Author] = true
		res.BooksCreated++
		res.CopiesAdded += len(created)
	}

	return res, nil
}

// printTokens writes a development bearer token for every seeded user.
func printTokens(w io.Writer, jwtService *auth.JWTService, users []model.User, ttl time.Duration) error {
	for _, u := range users {
		token, err := jwtService.GenerateAccessToken(u.ID, u.Role, ttl)
		if err != nil {
			return fmt.Errorf("sign token for %s: %w", u.Email, err)
		}
		if _, err := fmt.Fprintf(w, "%-28s %-10s Bearer %s\n", u.Email, u.Role, token); err != nil {
			return err
		}
	}
	log.Printf("Printed %d development tokens", len(users))
	return nil
}
