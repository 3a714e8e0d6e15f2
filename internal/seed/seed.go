// Package seed loads demo accounts into an empty or partially filled database.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

type UserFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Company  string `yaml:"company"`
}

type Fixtures struct {
	Users []UserFixture `yaml:"users"`
}

// Outcome of seeding a single user
type Result struct {
	User    models.User
	Created bool
}

// Default returns the embedded demo fixtures.
func Default() (*Fixtures, error) {
	return Parse(bytes.NewReader(defaultFixtures))
}

// Load reads fixtures from a YAML file.
func Load(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates fixtures.
func Parse(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	for i, u := range fx.Users {
		if strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return nil, fmt.Errorf("user %d: name, email and password are required", i)
		}
		if !models.Role(u.Role).Valid() {
			return nil, fmt.Errorf("user %d: invalid role %q", i, u.Role)
		}
		if !utils.IsValidEmail(utils.NormalizeEmail(u.Email)) {
			return nil, fmt.Errorf("user %d: invalid email %q", i, u.Email)
		}
	}
	return &fx, nil
}

// Seed inserts every fixture user whose email is not registered yet.
// Existing users are left untouched, so running it twice is harmless.
func Seed(ctx context.Context, users repository.UserRepository, fx *Fixtures) ([]Result, error) {
	results := make([]Result, 0, len(fx.Users))
	for _, u := range fx.Users {
		email := utils.NormalizeEmail(u.Email)

		existing, err := users.FindByEmail(ctx, email)
		if err == nil {
			results = append(results, Result{User: *existing})
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return results, fmt.Errorf("failed to look up %s: %w", email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return results, fmt.Errorf("failed to hash password for %s: %w", email, err)
		}

		user := models.User{
			Name:         strings.TrimSpace(u.Name),
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.Role(u.Role),
		}
		if company := strings.TrimSpace(u.Company); company != "" {
			user.Company = &company
		}

		if err := users.Create(ctx, &user); err != nil {
			return results, fmt.Errorf("failed to create %s: %w", email, err)
		}
		results = append(results, Result{User: user, Created: true})
	}
	return results, nil
}
