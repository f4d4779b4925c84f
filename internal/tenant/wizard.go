// internal/tenant/wizard.go
//
// First-run tenant provisioning.
//
// Context
// -------
// A new tenant is never created bare.  The wizard inserts the tenants
// row, seeds the four default globals (header, footer, navigation, and
// settings), and creates a published home page whose first version holds
// a welcome hero and a three-post feed.  The result is a site that
// renders something sensible before its owner touches the editor.
//
// The globals and home page are seeded after the tenants row commits;
// the page repository runs its own transaction.  When any seeding step
// fails, the tenants row is deleted again so a retry starts clean and no
// half-provisioned tenant survives.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/block"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/page"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/routing"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/settings"
)

// ErrSlugTaken reports a duplicate tenant slug or domain.
var ErrSlugTaken = errors.New("tenant: slug or domain already in use")

var validate = validator.New()

// WizardInput carries the user-supplied fields for a new tenant.
type WizardInput struct {
	Name   string `validate:"required"`
	Slug   string `validate:"required"`
	Domain string `validate:"required,fqdn"`
}

// Wizard provisions complete tenants.
type Wizard struct {
	db    *sqlx.DB
	pages *page.Repository
}

// NewWizard wires the wizard to the control-plane pool and the page
// repository used to seed the home page.
func NewWizard(db *sqlx.DB, pages *page.Repository) *Wizard {
	return &Wizard{db: db, pages: pages}
}

// Create provisions a tenant with default globals and a seeded home page.
func (w *Wizard) Create(ctx context.Context, in WizardInput) (*Record, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:     uuid.NewString(),
		Slug:   routing.MakeSlug(in.Slug),
		Name:   in.Name,
		Domain: in.Domain,
	}

	const q = `
	    INSERT INTO tenants (id, slug, name, domain)
	    VALUES (?, ?, ?, ?)`
	if _, err := w.db.ExecContext(ctx, q, rec.ID, rec.Slug, rec.Name, rec.Domain); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	if err := w.seed(ctx, rec); err != nil {
		// Compensating delete: a tenant must never survive half-provisioned.
		if _, derr := w.db.ExecContext(ctx,
			`DELETE FROM tenants WHERE id = ?`, rec.ID); derr != nil {
			zap.S().Errorw("tenant rollback failed", "tenant", rec.ID, "err", derr)
		}
		return nil, err
	}

	zap.S().Infow("tenant provisioned", "tenant", rec.ID, "slug", rec.Slug, "domain", rec.Domain)
	return rec, nil
}

func (w *Wizard) seed(ctx context.Context, rec *Record) error {
	if err := w.seedGlobals(ctx, rec); err != nil {
		return fmt.Errorf("tenant: seed globals: %w", err)
	}
	if err := w.seedHomePage(ctx, rec); err != nil {
		return fmt.Errorf("tenant: seed home page: %w", err)
	}
	return nil
}

// seedGlobals writes the four default documents.
func (w *Wizard) seedGlobals(ctx context.Context, rec *Record) error {
	site, err := json.Marshal(settings.SiteSettings{Domain: rec.Domain})
	if err != nil {
		return err
	}
	home := routing.BuildPath("", "home")
	defaults := []settings.Global{
		{TenantID: rec.ID, Key: "header", Value: json.RawMessage(fmt.Sprintf(`{"siteName":%q,"links":[{"label":"Home","href":%q}]}`, rec.Name, home))},
		{TenantID: rec.ID, Key: "footer", Value: json.RawMessage(fmt.Sprintf(`{"text":%q}`, "© "+rec.Name))},
		{TenantID: rec.ID, Key: "navigation", Value: json.RawMessage(fmt.Sprintf(`{"items":[{"label":"Home","href":%q}]}`, home))},
		{TenantID: rec.ID, Key: "settings", Value: site},
	}
	for _, g := range defaults {
		if err := settings.Upsert(ctx, w.db, g); err != nil {
			return err
		}
	}
	return nil
}

// seedHomePage creates the published landing page: a welcome hero plus a
// feed of the three latest posts.
func (w *Wizard) seedHomePage(ctx context.Context, rec *Record) error {
	hero := block.New(block.TypeHero)
	hero.Hero.Title = "Welcome to " + rec.Name
	hero.Hero.Subtitle = "Edit this page to get started"
	feed := block.New(block.TypePostsFeed)

	p, err := w.pages.Create(ctx, rec.ID, page.CreateInput{Title: "Home", Slug: "home"}, []block.Block{hero, feed})
	if err != nil {
		return err
	}
	return w.pages.Publish(ctx, p.ID, rec.ID, "")
}
