package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	domain "github.com/vsinha/stockroom/pkg/domain/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"github.com/vsinha/stockroom/pkg/infrastructure/fixtures"
	"github.com/vsinha/stockroom/pkg/infrastructure/spreadsheet"
	"go.uber.org/zap"
)

// ImportService loads catalog data in bulk from spreadsheets and seed fixtures
type ImportService struct {
	deps
	validator *domain.BOMValidator
}

// NewImportService creates an import service over store
func NewImportService(store repositories.TxStore, opts ...Option) *ImportService {
	return &ImportService{
		deps:      newDeps(store, "import", opts),
		validator: domain.NewBOMValidator(),
	}
}

// ImportFile reads an uploaded .csv or .xlsx file and imports it as kind
func (s *ImportService) ImportFile(ctx context.Context, kind spreadsheet.TemplateKind, filename string, r io.Reader) (*dto.ImportResult, error) {
	format, err := spreadsheet.DetectFormat(filename)
	if err != nil {
		return nil, entities.Invalidf("%v", err)
	}
	table, err := spreadsheet.Read(r, format)
	if err != nil {
		return nil, entities.Invalidf("%v", err)
	}
	return s.Import(ctx, kind, table)
}

// Import applies every row of table in one transaction. Rows that match an existing
// supplier name, SKU or BOM pair update it; the rest are created. Any bad row aborts
// the whole file with an error naming its line.
func (s *ImportService) Import(ctx context.Context, kind spreadsheet.TemplateKind, table *spreadsheet.Table) (*dto.ImportResult, error) {
	if len(kind.Columns()) == 0 {
		return nil, entities.Invalidf("unknown import kind %q", kind)
	}
	if err := table.RequireColumns(string(kind), kind.Columns()); err != nil {
		return nil, entities.Invalidf("%v", err)
	}
	records := table.Records()
	if len(records) == 0 {
		return nil, entities.Invalidf("%s file has no data rows", kind)
	}

	var (
		result    *dto.ImportResult
		published []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		result = &dto.ImportResult{Kind: string(kind)}
		published = published[:0]
		im := &importer{service: s, tx: tx, result: result, suppliers: make(map[string]*int64)}
		for _, rec := range records {
			var err error
			switch kind {
			case spreadsheet.SuppliersTemplate:
				err = im.supplier(ctx, rec)
			case spreadsheet.RawMaterialsTemplate:
				err = im.product(ctx, rec, entities.RawMaterial)
			case spreadsheet.ProductsTemplate:
				err = im.product(ctx, rec, entities.FinishedGood)
			case spreadsheet.BOMTemplate:
				err = im.bomLine(ctx, rec)
			default:
				return entities.Invalidf("unknown import kind %q", kind)
			}
			if err != nil {
				return fmt.Errorf("row %d: %w", rec.Line, err)
			}
		}
		published = im.published
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk import applied",
		zap.String("kind", result.Kind),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	s.publish(events.NewCatalogChangedEvent(strings.ToLower(result.Kind), 0, events.ActionImported))
	s.publish(published...)
	return result, nil
}

// importer applies the rows of one file inside a transaction
type importer struct {
	service   *ImportService
	tx        repositories.Store
	result    *dto.ImportResult
	suppliers map[string]*int64
	published []events.Event
}

func (im *importer) supplier(ctx context.Context, rec spreadsheet.Record) error {
	in := &entities.Supplier{
		Name:          rec.Get("Name"),
		Contact:       rec.Get("Contact"),
		Phone:         rec.Get("Phone"),
		Email:         rec.Get("Email"),
		RawMaterials:  rec.Get("RawMaterials"),
		CategoryCodes: rec.Get("CategoryCodes"),
		CreatedAt:     im.service.now().UTC(),
	}
	if err := in.Validate(); err != nil {
		return err
	}

	existing, err := im.tx.Suppliers().GetByName(ctx, in.Name)
	switch {
	case err == nil:
		in.ID = existing.ID
		in.CreatedAt = existing.CreatedAt
		if err := im.tx.Suppliers().Update(ctx, in); err != nil {
			return err
		}
		im.result.Updated++
	case errors.Is(err, entities.ErrNotFound):
		if err := im.tx.Suppliers().Create(ctx, in); err != nil {
			return err
		}
		im.result.Created++
	default:
		return err
	}
	return nil
}

func (im *importer) product(ctx context.Context, rec spreadsheet.Record, productType entities.ProductType) error {
	sku := entities.SKU(rec.Get("SKU"))
	product, err := entities.NewProduct(rec.Get("Name"), sku, productType)
	if err != nil {
		return err
	}
	product.Category = rec.Get("Category")
	product.CategoryCode = rec.Get("CategoryCode")
	if productType == entities.RawMaterial {
		if product.QuantityInStock, err = rec.Decimal("Quantity"); err != nil {
			return entities.Invalidf("%v", err)
		}
		if product.PricePaid, err = rec.Decimal("PricePaid"); err != nil {
			return entities.Invalidf("%v", err)
		}
	} else if product.PriceSelling, err = rec.Decimal("PriceSelling"); err != nil {
		return entities.Invalidf("%v", err)
	}
	if product.SupplierID, err = im.supplierID(ctx, rec.Get("Supplier")); err != nil {
		return err
	}
	product.CreatedAt = im.service.now().UTC()
	if err := product.Validate(); err != nil {
		return err
	}

	existing, err := im.tx.Products().GetBySKU(ctx, product.SKU)
	switch {
	case err == nil:
		if existing.Type != productType {
			return entities.Invalidf("sku %s is already used by a %s product", product.SKU, existing.Type)
		}
		// stock only moves through transactions, so re-imports keep the on-hand quantity
		existing.Name = product.Name
		existing.Category = product.Category
		existing.CategoryCode = product.CategoryCode
		existing.SupplierID = product.SupplierID
		if productType == entities.RawMaterial {
			existing.PricePaid = product.PricePaid
		} else {
			existing.PriceSelling = product.PriceSelling
		}
		if err := im.tx.Products().Update(ctx, existing); err != nil {
			return err
		}
		im.result.Updated++
	case errors.Is(err, entities.ErrNotFound):
		opening, err := createProduct(ctx, im.tx, product, im.service.now())
		if err != nil {
			return err
		}
		if opening != nil {
			im.published = append(im.published, im.service.stockEvents(opening, product)...)
		}
		im.result.Created++
	default:
		return err
	}
	return nil
}

// supplierID resolves a supplier by exact name; blank means none
func (im *importer) supplierID(ctx context.Context, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	if id, ok := im.suppliers[name]; ok {
		return id, nil
	}
	supplier, err := im.tx.Suppliers().GetByName(ctx, name)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, entities.Invalidf("supplier %q does not exist", name)
	}
	if err != nil {
		return nil, err
	}
	id := supplier.ID
	im.suppliers[name] = &id
	return &id, nil
}

func (im *importer) bomLine(ctx context.Context, rec spreadsheet.Record) error {
	productID, err := im.resolveProduct(ctx, rec, "ProductID")
	if err != nil {
		return err
	}
	materialID, err := im.resolveProduct(ctx, rec, "RawMaterialID")
	if err != nil {
		return err
	}
	quantity, err := rec.Decimal("QuantityRequired")
	if err != nil {
		return entities.Invalidf("%v", err)
	}
	volume, err := rec.Decimal("Volume")
	if err != nil {
		return entities.Invalidf("%v", err)
	}
	line, err := entities.NewBOMLine(productID, materialID, quantity, volume)
	if err != nil {
		return err
	}

	existing, err := im.tx.BOM().ListForProduct(ctx, productID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.RawMaterialID == materialID {
			e.QuantityRequired = line.QuantityRequired
			e.ProductVolume = line.ProductVolume
			if err := im.tx.BOM().Update(ctx, e); err != nil {
				return err
			}
			im.result.Updated++
			return nil
		}
	}

	if err := checkBOMLine(ctx, im.tx, im.service.validator, *line); err != nil {
		return err
	}
	if err := im.tx.BOM().Create(ctx, line); err != nil {
		return err
	}
	im.result.Created++
	return nil
}

// resolveProduct reads a product reference as a numeric id, falling back to a SKU
func (im *importer) resolveProduct(ctx context.Context, rec spreadsheet.Record, column string) (int64, error) {
	raw := rec.Get(column)
	if raw == "" {
		return 0, entities.Invalidf("%s cannot be empty", column)
	}
	if id, ok := rec.Int(column); ok {
		if _, err := im.tx.Products().Get(ctx, id); err != nil {
			return 0, fmt.Errorf("%s %d: %w", column, id, err)
		}
		return id, nil
	}
	p, err := im.tx.Products().GetBySKU(ctx, entities.SKU(raw))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", column, raw, err)
	}
	return p.ID, nil
}

// Seed loads a fixture in one transaction. Entries that already exist, by supplier
// name, SKU, BOM pair or email, are skipped so seeding can be repeated.
func (s *ImportService) Seed(ctx context.Context, f *fixtures.Fixture) (*dto.SeedResult, error) {
	if err := f.Validate(); err != nil {
		return nil, entities.Invalidf("%v", err)
	}

	// hashing is slow; do it before the transaction opens
	hashes := make(map[string]string, len(f.Users))
	for _, u := range f.Users {
		hash, err := auth.HashPasswordWithCost(u.Password, s.passwordCost)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Email, err)
		}
		hashes[u.Email] = hash
	}

	var result *dto.SeedResult
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		result = &dto.SeedResult{}
		seeder := &seeder{service: s, tx: tx, result: result}
		if err := seeder.suppliers(ctx, f.Suppliers); err != nil {
			return err
		}
		if err := seeder.materials(ctx, f.Materials); err != nil {
			return err
		}
		if err := seeder.products(ctx, f.Products); err != nil {
			return err
		}
		if err := seeder.bom(ctx, f.BOM); err != nil {
			return err
		}
		return seeder.users(ctx, f.Users, hashes)
	})
	if err != nil {
		return nil, fmt.Errorf("seed failed: %w", err)
	}

	s.logger.Info("fixtures seeded",
		zap.Int("suppliers", result.Suppliers),
		zap.Int("products", result.Products),
		zap.Int("bom_lines", result.BOMLines),
		zap.Int("users", result.Users),
		zap.Int("skipped", result.Skipped))
	s.publish(events.NewCatalogChangedEvent("seed", 0, events.ActionImported))
	return result, nil
}

type seeder struct {
	service *ImportService
	tx      repositories.Store
	result  *dto.SeedResult
}

func (sd *seeder) suppliers(ctx context.Context, suppliers []fixtures.Supplier) error {
	for _, in := range suppliers {
		if _, err := sd.tx.Suppliers().GetByName(ctx, strings.TrimSpace(in.Name)); err == nil {
			sd.result.Skipped++
			continue
		} else if !errors.Is(err, entities.ErrNotFound) {
			return err
		}
		supplier, err := entities.NewSupplier(in.Name, in.Contact, in.Phone, in.Email)
		if err != nil {
			return fmt.Errorf("supplier %q: %w", in.Name, err)
		}
		supplier.RawMaterials = in.RawMaterials
		supplier.CategoryCodes = in.CategoryCodes
		supplier.CreatedAt = sd.service.now().UTC()
		if err := sd.tx.Suppliers().Create(ctx, supplier); err != nil {
			return err
		}
		sd.result.Suppliers++
	}
	return nil
}

func (sd *seeder) materials(ctx context.Context, materials []fixtures.Material) error {
	for _, in := range materials {
		p := &entities.Product{
			Name:            strings.TrimSpace(in.Name),
			SKU:             entities.SKU(strings.TrimSpace(in.SKU)),
			Type:            entities.RawMaterial,
			Category:        in.Category,
			CategoryCode:    in.CategoryCode,
			QuantityInStock: in.Quantity,
			PricePaid:       in.PricePaid,
		}
		if err := sd.create(ctx, p, in.Supplier); err != nil {
			return err
		}
	}
	return nil
}

func (sd *seeder) products(ctx context.Context, products []fixtures.Product) error {
	for _, in := range products {
		p := &entities.Product{
			Name:         strings.TrimSpace(in.Name),
			SKU:          entities.SKU(strings.TrimSpace(in.SKU)),
			Type:         entities.FinishedGood,
			Category:     in.Category,
			PriceSelling: in.PriceSelling,
		}
		if err := sd.create(ctx, p, in.Supplier); err != nil {
			return err
		}
	}
	return nil
}

func (sd *seeder) create(ctx context.Context, p *entities.Product, supplierName string) error {
	if _, err := sd.tx.Products().GetBySKU(ctx, p.SKU); err == nil {
		sd.result.Skipped++
		return nil
	} else if !errors.Is(err, entities.ErrNotFound) {
		return err
	}
	if supplierName != "" {
		supplier, err := sd.tx.Suppliers().GetByName(ctx, supplierName)
		if err != nil {
			return fmt.Errorf("product %s: supplier %q: %w", p.SKU, supplierName, err)
		}
		p.SupplierID = &supplier.ID
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("product %s: %w", p.SKU, err)
	}
	p.CreatedAt = sd.service.now().UTC()
	if _, err := createProduct(ctx, sd.tx, p, sd.service.now()); err != nil {
		return err
	}
	sd.result.Products++
	return nil
}

func (sd *seeder) bom(ctx context.Context, lines []fixtures.BOMLine) error {
	for _, in := range lines {
		product, err := sd.tx.Products().GetBySKU(ctx, entities.SKU(in.Product))
		if err != nil {
			return fmt.Errorf("bom product %s: %w", in.Product, err)
		}
		material, err := sd.tx.Products().GetBySKU(ctx, entities.SKU(in.Material))
		if err != nil {
			return fmt.Errorf("bom material %s: %w", in.Material, err)
		}
		existing, err := sd.tx.BOM().ListForProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		if hasMaterial(existing, material.ID) {
			sd.result.Skipped++
			continue
		}
		line, err := entities.NewBOMLine(product.ID, material.ID, in.Quantity, in.Volume)
		if err != nil {
			return fmt.Errorf("bom %s/%s: %w", in.Product, in.Material, err)
		}
		if err := checkBOMLine(ctx, sd.tx, sd.service.validator, *line); err != nil {
			return fmt.Errorf("bom %s/%s: %w", in.Product, in.Material, err)
		}
		if err := sd.tx.BOM().Create(ctx, line); err != nil {
			return err
		}
		sd.result.BOMLines++
	}
	return nil
}

func hasMaterial(lines []*entities.BOMLine, materialID int64) bool {
	for _, l := range lines {
		if l.RawMaterialID == materialID {
			return true
		}
	}
	return false
}

func (sd *seeder) users(ctx context.Context, users []fixtures.User, hashes map[string]string) error {
	for _, in := range users {
		user, err := entities.NewUser(in.Email, in.FullName, in.Password, in.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", in.Email, err)
		}
		if _, err := sd.tx.Users().GetByEmail(ctx, user.Email); err == nil {
			sd.result.Skipped++
			continue
		} else if !errors.Is(err, entities.ErrNotFound) {
			return err
		}
		user.PasswordHash = hashes[in.Email]
		user.CreatedAt = sd.service.now().UTC()
		if err := sd.tx.Users().Create(ctx, user); err != nil {
			return err
		}
		sd.result.Users++
	}
	return nil
}
