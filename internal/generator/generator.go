// Package generator produces deterministic demo datasets for the deposit
// ledger: a population of senders, their saved contacts, and a spread of
// deposits across recent months in every lifecycle state.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lcardona/depositrack/internal/domain"
)

// Config controls dataset generation.
type Config struct {
	NumUsers    int
	NumDeposits int
	// ReadRatio is the fraction of deposits already confirmed by their
	// recipient; TrashRatio the fraction soft-deleted by their sender.
	ReadRatio  float64
	TrashRatio float64
	// ContactChance is the probability a sender saved the recipient as a
	// contact.
	ContactChance float64
	// MonthsBack bounds how far in the past deposit dates are spread.
	MonthsBack int
	Seed       int64
	// Now anchors the generated date range; zero means time.Now().
	Now time.Time
}

// DefaultConfig returns sensible demo proportions.
func DefaultConfig() Config {
	return Config{
		NumUsers:      8,
		NumDeposits:   120,
		ReadRatio:     0.5,
		TrashRatio:    0.1,
		ContactChance: 0.6,
		MonthsBack:    6,
		Seed:          42,
	}
}

// SeedUser is one generated identity.
type SeedUser struct {
	Identity domain.Identity
}

// Dataset is a complete generated ledger population.
type Dataset struct {
	Users    []SeedUser
	Deposits []domain.Deposit
	Contacts []domain.Contact
}

// Generator builds datasets from a config.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New constructs a Generator with a deterministic random source.
func New(cfg Config) *Generator {
	if cfg.NumUsers < 2 {
		cfg.NumUsers = 2
	}
	if cfg.MonthsBack <= 0 {
		cfg.MonthsBack = 6
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate produces the full dataset.
func (g *Generator) Generate() Dataset {
	users := g.generateUsers()

	var (
		deposits []domain.Deposit
		contacts []domain.Contact
		saved    = make(map[string]bool) // userID+email pairs already saved
	)

	for i := 0; i < g.cfg.NumDeposits; i++ {
		sender := users[g.rng.Intn(len(users))]
		recipient := users[g.rng.Intn(len(users))]
		for recipient.Identity.ID == sender.Identity.ID {
			recipient = users[g.rng.Intn(len(users))]
		}

		d := g.generateDeposit(sender.Identity, recipient.Identity)
		deposits = append(deposits, d)

		key := sender.Identity.ID + "|" + recipient.Identity.Email
		if !saved[key] && g.rng.Float64() < g.cfg.ContactChance {
			saved[key] = true
			contacts = append(contacts, domain.Contact{
				ID:        uuid.NewString(),
				UserID:    sender.Identity.ID,
				Email:     recipient.Identity.Email,
				Name:      recipient.Identity.Name,
				CreatedAt: d.CreatedAt,
			})
		}
	}

	return Dataset{Users: users, Deposits: deposits, Contacts: contacts}
}

func (g *Generator) generateUsers() []SeedUser {
	firstNames := []string{"Ana", "Bruno", "Carla", "Diego", "Elena", "Fabio", "Gloria", "Hugo", "Irene", "Jorge"}
	users := make([]SeedUser, 0, g.cfg.NumUsers)
	for i := 0; i < g.cfg.NumUsers; i++ {
		name := firstNames[i%len(firstNames)]
		id := fmt.Sprintf("usr-%03d", i+1)
		users = append(users, SeedUser{
			Identity: domain.Identity{
				ID:            id,
				Email:         fmt.Sprintf("%s%d@example.com", lower(name), i+1),
				Name:          name,
				Role:          domain.RoleMember,
				AccountStatus: domain.AccountActive,
			},
		})
	}
	return users
}

func (g *Generator) generateDeposit(sender, recipient domain.Identity) domain.Deposit {
	daysBack := g.rng.Intn(g.cfg.MonthsBack * 30)
	depositDate := g.cfg.Now.AddDate(0, 0, -daysBack)
	createdAt := depositDate.Add(time.Duration(g.rng.Intn(12)) * time.Hour)

	cents := 500 + g.rng.Intn(500000) // 5.00 .. 5005.00
	amount := decimal.New(int64(cents), -2)

	d := domain.Deposit{
		ID:             uuid.NewString(),
		SenderID:       sender.ID,
		SenderEmail:    sender.Email,
		SenderName:     sender.Name,
		RecipientEmail: recipient.Email,
		Amount:         amount,
		DepositDate:    depositDate,
		Status:         domain.StatusSent,
		CreatedAt:      createdAt.UTC(),
	}

	if g.rng.Float64() < g.cfg.ReadRatio {
		readAt := createdAt.Add(time.Duration(1+g.rng.Intn(72)) * time.Hour).UTC()
		d.Status = domain.StatusRead
		d.ReadAt = &readAt
	}
	if g.rng.Float64() < g.cfg.TrashRatio {
		deletedAt := createdAt.Add(time.Duration(1+g.rng.Intn(240)) * time.Hour).UTC()
		d.SenderDeletedAt = &deletedAt
	}
	return d
}

func lower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}
