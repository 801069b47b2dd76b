package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/lead-enricher/internal/dto"
	"github.com/octobees/lead-enricher/internal/entity"
)

// CompaniesRepository describes persistence operations for companies.
type CompaniesRepository interface {
	Upsert(ctx context.Context, company *entity.Company) error
	FindByDomain(ctx context.Context, domain string) (*entity.Company, error)
	FindByRegistrationNumber(ctx context.Context, number string) (*entity.Company, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Company, error)
	List(ctx context.Context, filter dto.ListFilter) ([]entity.Company, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateKeyPersonPhone(ctx context.Context, domain string, role entity.Role, phone string) (string, error)
}

// ErrCompanyNotFound indicates there is no company row for the given key.
var ErrCompanyNotFound = errors.New("company not found")

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// PGXCompaniesRepository implements CompaniesRepository using pgx.
type PGXCompaniesRepository struct {
	pool pgxPool
}

// NewPGXCompaniesRepository wires a pgx backed repository.
func NewPGXCompaniesRepository(pool *pgxpool.Pool) *PGXCompaniesRepository {
	return &PGXCompaniesRepository{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// writableColumns are every column except the timestamps, in argument order.
var writableColumns = []string{
	"id", "name", "domain", "registration_number", "directory_id", "logo_url", "linkedin_url",
	"business_model", "has_online_checkout", "short_description", "products_and_services",
	"sales_channels", "website_sales_channels", "ecommerce_platforms", "payment_processors", "tech_source",
	"ceo_name", "ceo_title", "ceo_email", "ceo_phone", "ceo_linkedin_url", "ceo_directory_id",
	"cfo_name", "cfo_title", "cfo_email", "cfo_phone", "cfo_linkedin_url", "cfo_directory_id",
	"key_people",
}

var selectColumns = append(append([]string{}, writableColumns...), "created_at", "updated_at")

var upsertConflictClause = func() string {
	sets := make([]string, 0, len(writableColumns))
	for _, col := range writableColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return "ON CONFLICT (domain) DO UPDATE SET " + strings.Join(sets, ", ") +
		", updated_at = NOW() RETURNING id, created_at, updated_at"
}()

// Upsert updates the row with the company's id, falling back to an insert keyed by domain.
// The company's id and timestamps are set from the stored row.
func (r *PGXCompaniesRepository) Upsert(ctx context.Context, company *entity.Company) error {
	if company == nil {
		return fmt.Errorf("company payload is nil")
	}
	if strings.TrimSpace(company.Domain) == "" {
		return fmt.Errorf("company domain is required")
	}

	values, err := companyValues(company)
	if err != nil {
		return err
	}

	if company.ID != uuid.Nil {
		update := psql.Update("companies")
		for i, col := range writableColumns[1:] {
			update = update.Set(col, values[i+1])
		}
		query, args, err := update.
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": company.ID}).
			Suffix("RETURNING created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build company update: %w", err)
		}

		var createdAt, updatedAt time.Time
		err = r.pool.QueryRow(ctx, query, args...).Scan(&createdAt, &updatedAt)
		if err == nil {
			company.CreatedAt, company.UpdatedAt = createdAt, updatedAt
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update company: %w", err)
		}
	} else {
		values[0] = uuid.New()
	}

	query, args, err := psql.Insert("companies").
		Columns(writableColumns...).
		Values(values...).
		Suffix(upsertConflictClause).
		ToSql()
	if err != nil {
		return fmt.Errorf("build company insert: %w", err)
	}

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id, &company.CreatedAt, &company.UpdatedAt); err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}
	company.ID = id
	return nil
}

// FindByDomain returns the company stored for a normalized domain.
func (r *PGXCompaniesRepository) FindByDomain(ctx context.Context, domain string) (*entity.Company, error) {
	return r.findOne(ctx, sq.Eq{"domain": domain})
}

// FindByRegistrationNumber returns the company stored for a registry number.
func (r *PGXCompaniesRepository) FindByRegistrationNumber(ctx context.Context, number string) (*entity.Company, error) {
	return r.findOne(ctx, sq.Eq{"registration_number": number})
}

// Get returns the company with the given id.
func (r *PGXCompaniesRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *PGXCompaniesRepository) findOne(ctx context.Context, where sq.Eq) (*entity.Company, error) {
	query, args, err := psql.Select(selectColumns...).From("companies").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build company query: %w", err)
	}

	company, err := scanCompany(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return company, nil
}

// List retrieves companies matching the filter, most recently updated first.
func (r *PGXCompaniesRepository) List(ctx context.Context, filter dto.ListFilter) ([]entity.Company, error) {
	q := psql.Select(selectColumns...).From("companies")

	if filter.Q != "" {
		pattern := "%" + filter.Q + "%"
		q = q.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"domain": pattern}})
	}
	if filter.BusinessModel != "" {
		q = q.Where(sq.Eq{"business_model": filter.BusinessModel})
	}
	if filter.HasOnlineCheckout != "" {
		q = q.Where(sq.Eq{"has_online_checkout": filter.HasOnlineCheckout})
	}
	if filter.Ecommerce != "" {
		q = q.Where("EXISTS (SELECT 1 FROM unnest(ecommerce_platforms) AS platform WHERE platform ILIKE ?)", filter.Ecommerce)
	}
	if filter.UpdatedSince != nil {
		q = q.Where(sq.GtOrEq{"updated_at": *filter.UpdatedSince})
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	query, args, err := q.
		OrderBy("updated_at DESC", "name ASC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]entity.Company, 0)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, *company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

// Delete removes the company with the given id.
func (r *PGXCompaniesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

// UpdateKeyPersonPhone stores phone on the role's key person and returns that person's name.
func (r *PGXCompaniesRepository) UpdateKeyPersonPhone(ctx context.Context, domain string, role entity.Role, phone string) (string, error) {
	var prefix string
	switch role {
	case entity.RoleCEO:
		prefix = "ceo"
	case entity.RoleCFO:
		prefix = "cfo"
	default:
		return "", fmt.Errorf("unknown key person role %q", role)
	}

	query := fmt.Sprintf(`
        UPDATE companies
        SET %[1]s_phone = $1, updated_at = NOW()
        WHERE domain = $2
        RETURNING COALESCE(%[1]s_name, '')
    `, prefix)

	var name string
	if err := r.pool.QueryRow(ctx, query, phone, domain).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrCompanyNotFound
		}
		return "", fmt.Errorf("update %s phone: %w", prefix, err)
	}
	return name, nil
}

func companyValues(c *entity.Company) ([]any, error) {
	keyPeople := c.KeyPeople
	if keyPeople == nil {
		keyPeople = []entity.KeyPerson{}
	}
	keyPeopleJSON, err := json.Marshal(keyPeople)
	if err != nil {
		return nil, fmt.Errorf("marshal key people: %w", err)
	}

	businessModel := c.BusinessModel
	if businessModel == "" {
		businessModel = entity.BusinessModelUnknown
	}
	checkout := c.HasOnlineCheckout
	if checkout == "" {
		checkout = entity.CheckoutUnknown
	}

	values := []any{
		c.ID,
		c.Name,
		c.Domain,
		stringOrNil(c.RegistrationNumber),
		stringOrNil(c.DirectoryID),
		stringOrNil(c.LogoURL),
		stringOrNil(c.LinkedInURL),
		string(businessModel),
		string(checkout),
		textOrNil(c.ShortDescription),
		stringSliceOrEmpty(c.ProductsAndServices),
		textOrNil(c.SalesChannels),
		textOrNil(c.WebsiteSalesChannels),
		stringSliceOrEmpty(c.EcommercePlatforms),
		stringSliceOrEmpty(c.PaymentProcessors),
		string(c.TechSource),
	}
	values = append(values, personValues(c.CEO)...)
	values = append(values, personValues(c.CFO)...)
	values = append(values, keyPeopleJSON)
	return values, nil
}

func personValues(p entity.KeyPerson) []any {
	return []any{
		textOrNil(p.Name),
		textOrNil(p.Title),
		textOrNil(p.Email),
		textOrNil(p.Phone),
		textOrNil(p.LinkedInURL),
		textOrNil(p.DirectoryID),
	}
}

type personColumns struct {
	name, title, email, phone, linkedInURL, directoryID *string
}

func (p *personColumns) targets() []any {
	return []any{&p.name, &p.title, &p.email, &p.phone, &p.linkedInURL, &p.directoryID}
}

func (p *personColumns) person(role entity.Role) entity.KeyPerson {
	person := entity.KeyPerson{
		DirectoryID: deref(p.directoryID),
		Name:        deref(p.name),
		Title:       deref(p.title),
		Email:       deref(p.email),
		Phone:       deref(p.phone),
		LinkedInURL: deref(p.linkedInURL),
	}
	if !person.IsZero() {
		person.Role = role
	}
	return person
}

func scanCompany(row pgx.Row) (*entity.Company, error) {
	var (
		c                    entity.Company
		businessModel        string
		checkout             string
		techSource           string
		shortDescription     *string
		salesChannels        *string
		websiteSalesChannels *string
		ceo, cfo             personColumns
		keyPeople            []byte
	)

	dest := []any{
		&c.ID,
		&c.Name,
		&c.Domain,
		&c.RegistrationNumber,
		&c.DirectoryID,
		&c.LogoURL,
		&c.LinkedInURL,
		&businessModel,
		&checkout,
		&shortDescription,
		&c.ProductsAndServices,
		&salesChannels,
		&websiteSalesChannels,
		&c.EcommercePlatforms,
		&c.PaymentProcessors,
		&techSource,
	}
	dest = append(dest, ceo.targets()...)
	dest = append(dest, cfo.targets()...)
	dest = append(dest, &keyPeople, &c.CreatedAt, &c.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	c.BusinessModel = entity.ParseBusinessModel(businessModel)
	c.HasOnlineCheckout = entity.ParseCheckout(checkout)
	c.TechSource = entity.TechSource(techSource)
	c.ShortDescription = deref(shortDescription)
	c.SalesChannels = deref(salesChannels)
	c.WebsiteSalesChannels = deref(websiteSalesChannels)
	c.CEO = ceo.person(entity.RoleCEO)
	c.CFO = cfo.person(entity.RoleCFO)
	c.ProductsAndServices = stringSliceOrEmpty(c.ProductsAndServices)
	c.EcommercePlatforms = stringSliceOrEmpty(c.EcommercePlatforms)
	c.PaymentProcessors = stringSliceOrEmpty(c.PaymentProcessors)

	c.KeyPeople = []entity.KeyPerson{}
	if len(keyPeople) > 0 {
		if err := json.Unmarshal(keyPeople, &c.KeyPeople); err != nil {
			return nil, fmt.Errorf("decode key people: %w", err)
		}
	}
	// the role columns carry no fallback flag; key_people holds the merged person
	for _, p := range c.KeyPeople {
		if p.DirectoryID == "" || !p.Fallback {
			continue
		}
		if p.DirectoryID == c.CEO.DirectoryID {
			c.CEO.Fallback = true
		}
		if p.DirectoryID == c.CFO.DirectoryID {
			c.CFO.Fallback = true
		}
	}
	return &c, nil
}

func stringOrNil(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func textOrNil(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func stringSliceOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
