// Package services – CatalogService
//
// This file implements the CatalogService, which owns the product catalog:
// admin CRUD, discount and sale management, effective-price computation, and
// the buyer-facing listings (all, by max price, by genre, by text search).
//
// Pricing is computed at read time and never mutates storage: an expired sale
// simply stops contributing a label or a price override. The persisted sale
// fields are cleared separately by ExpireSales, which main runs on a timer.
// The observable behavior is identical to clearing on read (an expired sale
// never shows a sale label) without hiding a write inside every listing.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vl-kp/gamekey-bot/internal/domain"
	"github.com/vl-kp/gamekey-bot/internal/repo"
)

// Listing is a catalog row with its computed effective price and an optional
// promotional label, ready for rendering.
type Listing struct {
	Product    domain.Product
	FinalPrice float64
	SaleLabel  string
}

// ProductInput carries the fields of an admin add-product command.
type ProductInput struct {
	Name      string
	Key       string
	Price     int64
	Stock     int
	Genre     string
	Region    string
	ImageURLs string
}

// ProductPatch carries the optional fields of an admin edit-product command.
// Nil pointers leave the stored value untouched.
type ProductPatch struct {
	Name     *string
	Key      *string
	Price    *int64
	Stock    *int
	Discount *int
	Genre    *string
	Region   *string
}

// ListFilter narrows a buyer-facing listing. Zero value means no filter.
// Query may be a product id (all digits) or a name fragment.
type ListFilter struct {
	MaxPrice *int64
	Genre    string
	Query    string
}

// CatalogService provides catalog-level operations for both buyers and
// admins. All methods are context-aware; mutating methods run against the
// shared handle and rely on single-statement atomicity.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// AddProduct validates and inserts a new product, returning it with the
// assigned id.
func (s *CatalogService) AddProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Key = strings.TrimSpace(in.Key)
	if in.Name == "" || in.Key == "" {
		return nil, fmt.Errorf("%w: name and key are required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}

	p := &domain.Product{
		Name:      in.Name,
		Key:       in.Key,
		Price:     in.Price,
		Stock:     in.Stock,
		Genre:     strings.TrimSpace(in.Genre),
		Region:    strings.TrimSpace(in.Region),
		ImageURLs: strings.TrimSpace(in.ImageURLs),
	}
	return repo.CreateProduct(ctx, s.DB, p)
}

// EditProduct applies the supplied fields to an existing product. Fields
// left nil keep their stored value.
func (s *CatalogService) EditProduct(ctx context.Context, id int64, patch ProductPatch) error {
	fields := map[string]any{}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return fmt.Errorf("%w: name must not be blank", ErrInvalidInput)
		}
		fields["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Key != nil {
		if strings.TrimSpace(*patch.Key) == "" {
			return fmt.Errorf("%w: key must not be blank", ErrInvalidInput)
		}
		fields["key"] = strings.TrimSpace(*patch.Key)
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
		}
		fields["price"] = *patch.Price
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
		}
		fields["stock"] = *patch.Stock
	}
	if patch.Discount != nil {
		if *patch.Discount < 0 || *patch.Discount > 100 {
			return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidInput)
		}
		fields["discount"] = *patch.Discount
	}
	if patch.Genre != nil {
		fields["genre"] = strings.TrimSpace(*patch.Genre)
	}
	if patch.Region != nil {
		fields["region"] = strings.TrimSpace(*patch.Region)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	if err := repo.UpdateProduct(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// SetDiscount sets the plain discount percentage of a product.
func (s *CatalogService) SetDiscount(ctx context.Context, id int64, percent int) error {
	return s.EditProduct(ctx, id, ProductPatch{Discount: &percent})
}

// SetSale activates a time-boxed sale on a product. A percentage inside note
// (e.g. "Summer sale -30%") overrides the effective price while the sale
// lasts; without one the note is display-only.
func (s *CatalogService) SetSale(ctx context.Context, id int64, note string, endsAt *time.Time) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return fmt.Errorf("%w: sale note is required", ErrInvalidInput)
	}
	err := repo.UpdateProduct(ctx, s.DB, id, map[string]any{
		"sale_active":  true,
		"sale_note":    note,
		"sale_ends_at": endsAt,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	return err
}

// ClearSale deactivates a product's sale and wipes the sale fields.
func (s *CatalogService) ClearSale(ctx context.Context, id int64) error {
	err := repo.UpdateProduct(ctx, s.DB, id, map[string]any{
		"sale_active":  false,
		"sale_note":    "",
		"sale_ends_at": nil,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	return err
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := repo.DeleteProduct(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// GetProduct fetches a single product regardless of stock.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := repo.GetProduct(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListAll returns every product, including sold-out rows, with pricing
// applied. Admin listings only.
func (s *CatalogService) ListAll(ctx context.Context) ([]Listing, error) {
	products, err := repo.ListProducts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	return s.toListings(products), nil
}

// ListAvailable returns in-stock products matching the filter, with pricing
// applied. An all-digits query is treated as a product id lookup.
func (s *CatalogService) ListAvailable(ctx context.Context, f ListFilter) ([]Listing, error) {
	var (
		products []domain.Product
		err      error
	)
	switch {
	case f.Query != "":
		q := strings.TrimSpace(f.Query)
		if idRE.MatchString(q) {
			id, _ := strconv.ParseInt(q, 10, 64)
			p, gerr := repo.GetInStock(ctx, s.DB, id)
			if gerr != nil {
				if errors.Is(gerr, gorm.ErrRecordNotFound) {
					return []Listing{}, nil
				}
				return nil, gerr
			}
			products = []domain.Product{*p}
		} else {
			products, err = repo.SearchInStockByName(ctx, s.DB, q)
		}
	case f.Genre != "":
		products, err = repo.ListInStockByGenre(ctx, s.DB, normalizeGenre(f.Genre))
	case f.MaxPrice != nil:
		products, err = repo.ListInStockMaxPrice(ctx, s.DB, *f.MaxPrice)
	default:
		products, err = repo.ListInStock(ctx, s.DB)
	}
	if err != nil {
		return nil, err
	}
	return s.toListings(products), nil
}

// ExpireSales clears the persisted sale fields of every product whose sale
// window has passed, returning the number of rows swept.
func (s *CatalogService) ExpireSales(ctx context.Context, now time.Time) (int64, error) {
	return repo.ClearExpiredSales(ctx, s.DB, now)
}

func (s *CatalogService) toListings(products []domain.Product) []Listing {
	now := time.Now().UTC()
	out := make([]Listing, 0, len(products))
	for _, p := range products {
		price, label := EffectivePrice(&p, now)
		out = append(out, Listing{Product: p, FinalPrice: price, SaleLabel: label})
	}
	return out
}

// EffectivePrice computes what a buyer pays for p at the given instant,
// plus a promotional label ("" when nothing applies).
//
// Rules, in order:
//   - An active, unexpired sale whose note contains "N%" overrides the price
//     with that percentage off; the label repeats the note (and the end date
//     when the sale is time-boxed).
//   - An active, unexpired sale without a percentage keeps the list price and
//     only contributes the label.
//   - Otherwise a non-zero Discount applies.
//
// The function is pure: an expired sale is ignored here and cleared from
// storage by the ExpireSales sweep.
func EffectivePrice(p *domain.Product, now time.Time) (float64, string) {
	price := float64(p.Price)

	saleLive := p.SaleActive && p.SaleNote != "" &&
		(p.SaleEndsAt == nil || now.Before(*p.SaleEndsAt))

	if saleLive {
		if m := salePercentRE.FindStringSubmatch(p.SaleNote); m != nil {
			percent, _ := strconv.Atoi(m[1])
			price = price * (1 - float64(percent)/100)
		}
		label := "SALE! " + p.SaleNote
		if p.SaleEndsAt != nil {
			label += " until " + p.SaleEndsAt.UTC().Format("2006-01-02")
		}
		return round2(price), label
	}

	if p.Discount > 0 {
		price = price * (1 - float64(p.Discount)/100)
		return round2(price), fmt.Sprintf("Discount %d%%", p.Discount)
	}
	return round2(price), ""
}

// normalizeGenre folds a genre filter to lowercase and title-cases it, so
// "rpg", "RPG" and "Rpg" hit the same rows.
func normalizeGenre(genre string) string {
	return genreCaser.String(strings.ToLower(strings.TrimSpace(genre)))
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

var (
	// idRE matches a query consisting solely of digits (a product id).
	idRE = regexp.MustCompile(`^\d+$`)
	// salePercentRE extracts the percentage from a sale note, e.g. "-30%".
	salePercentRE = regexp.MustCompile(`(\d+)%`)

	genreCaser = cases.Title(language.Und)
)
