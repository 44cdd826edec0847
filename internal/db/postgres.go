package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/advelops/adcp-salesagent/internal/models"
)

// Postgres wraps a postgres DB connection and exposes the repository
// methods the lifecycle, catalog, creative, inventory and workflow
// components use to persist AdCP state.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS tenants (
    tenant_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    subdomain TEXT NOT NULL UNIQUE,
    ad_server TEXT NOT NULL,
    approval_mode TEXT NOT NULL DEFAULT 'auto-approve',
    authorized_emails TEXT[],
    authorized_domains TEXT[],
    auto_approve_format_ids TEXT[],
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS principals (
    principal_id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    name TEXT NOT NULL,
    access_token TEXT NOT NULL,
    platform_mappings JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS products (
    product_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    name TEXT NOT NULL,
    description TEXT,
    format_ids JSONB NOT NULL,
    delivery_type TEXT NOT NULL,
    publisher_properties JSONB NOT NULL,
    pricing_options JSONB NOT NULL,
    delivery_measurement JSONB,
    PRIMARY KEY (tenant_id, product_id)
);

CREATE TABLE IF NOT EXISTS creatives (
    creative_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    principal_id TEXT NOT NULL,
    name TEXT NOT NULL,
    format_id JSONB NOT NULL,
    assets JSONB NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending_review',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, creative_id)
);

CREATE TABLE IF NOT EXISTS media_buys (
    media_buy_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    principal_id TEXT NOT NULL,
    buyer_ref TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    raw_request JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, media_buy_id)
);

CREATE TABLE IF NOT EXISTS media_packages (
    media_buy_id TEXT NOT NULL,
    package_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    product_id TEXT NOT NULL,
    buyer_ref TEXT,
    pricing_option_id TEXT,
    budget DOUBLE PRECISION NOT NULL,
    currency TEXT NOT NULL,
    bid_price DOUBLE PRECISION,
    pacing TEXT,
    package_config JSONB,
    PRIMARY KEY (tenant_id, media_buy_id, package_id)
);

CREATE TABLE IF NOT EXISTS creative_assignments (
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    media_buy_id TEXT NOT NULL,
    package_id TEXT NOT NULL,
    creative_id TEXT NOT NULL,
    weight INT NOT NULL DEFAULT 100,
    rotation_type TEXT,
    click_url TEXT,
    start_time TIMESTAMPTZ,
    end_time TIMESTAMPTZ,
    PRIMARY KEY (tenant_id, media_buy_id, package_id, creative_id)
);

CREATE TABLE IF NOT EXISTS workflow_steps (
    step_id TEXT PRIMARY KEY,
    context_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    tool_name TEXT NOT NULL,
    step_type TEXT NOT NULL,
    status TEXT NOT NULL,
    owner TEXT,
    request_data JSONB,
    response_data JSONB,
    error_message TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS object_workflow_mappings (
    step_id TEXT NOT NULL REFERENCES workflow_steps(step_id),
    object_type TEXT NOT NULL,
    object_id TEXT NOT NULL,
    PRIMARY KEY (step_id, object_type, object_id)
);

CREATE TABLE IF NOT EXISTS sync_jobs (
    sync_id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    adapter_type TEXT NOT NULL,
    sync_type TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ,
    summary JSONB,
    error_message TEXT
);

CREATE TABLE IF NOT EXISTS inventory_rows (
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    inventory_type TEXT NOT NULL,
    inventory_id TEXT NOT NULL,
    name TEXT NOT NULL,
    path TEXT[],
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    inventory_metadata JSONB,
    last_synced TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, inventory_type, inventory_id)
);

CREATE TABLE IF NOT EXISTS webhook_delivery_logs (
    id SERIAL PRIMARY KEY,
    media_buy_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    task_type TEXT NOT NULL,
    notification_type TEXT NOT NULL,
    sequence_number INT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS push_notification_configs (
    tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
    principal_id TEXT NOT NULL,
    url TEXT NOT NULL,
    authentication_type TEXT NOT NULL,
    authentication_token TEXT,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (tenant_id, principal_id)
);

CREATE INDEX IF NOT EXISTS idx_principals_access_token ON principals (access_token);
CREATE INDEX IF NOT EXISTS idx_media_buys_status ON media_buys (status);
CREATE INDEX IF NOT EXISTS idx_media_buys_tenant ON media_buys (tenant_id);
CREATE INDEX IF NOT EXISTS idx_creatives_status ON creatives (tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_inventory_rows_type ON inventory_rows (tenant_id, inventory_type);
CREATE INDEX IF NOT EXISTS idx_webhook_logs_dedup ON webhook_delivery_logs (media_buy_id, task_type, sequence_number);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.connection_string", dsn),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// --- Tenants ---

// LoadTenantBySubdomain returns the tenant whose subdomain matches, if it is
// active.
func (p *Postgres) LoadTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	return p.scanTenant(ctx, `SELECT tenant_id, name, subdomain, ad_server, approval_mode, authorized_emails, authorized_domains, auto_approve_format_ids, active, created_at FROM tenants WHERE subdomain = $1 AND active`, subdomain)
}

// LoadTenantByID returns the tenant with the given ID, regardless of active
// state, so callers can distinguish "unknown" from "deactivated".
func (p *Postgres) LoadTenantByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return p.scanTenant(ctx, `SELECT tenant_id, name, subdomain, ad_server, approval_mode, authorized_emails, authorized_domains, auto_approve_format_ids, active, created_at FROM tenants WHERE tenant_id = $1`, tenantID)
}

func (p *Postgres) scanTenant(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	row := p.DB.QueryRowContext(ctx, query, arg)
	var t models.Tenant
	var emails, domains, autoApprove []string
	if err := row.Scan(&t.TenantID, &t.Name, &t.Subdomain, &t.AdServer, &t.ApprovalMode, pq.Array(&emails), pq.Array(&domains), pq.Array(&autoApprove), &t.Active, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.AuthorizedEmails = emails
	t.AuthorizedDomains = domains
	t.AutoApproveFormatIDs = autoApprove
	return &t, nil
}

// --- Principals ---

// LoadPrincipalByToken returns the principal whose access token matches,
// scoped to the given tenant. The SQL lookup is by indexed equality, which
// is acceptable since the index lookup cost is not an oracle for token
// contents; tenant.Resolver.ResolvePrincipal re-checks the fetched token
// with a constant-time compare.
func (p *Postgres) LoadPrincipalByToken(ctx context.Context, tenantID, token string) (*models.Principal, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT principal_id, tenant_id, name, access_token, platform_mappings, created_at FROM principals WHERE tenant_id = $1 AND access_token = $2`, tenantID, token)
	var pr models.Principal
	var mappings []byte
	if err := row.Scan(&pr.PrincipalID, &pr.TenantID, &pr.Name, &pr.AccessToken, &mappings, &pr.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	if len(mappings) > 0 {
		if err := jsonUnmarshal(mappings, &pr.PlatformMappings); err != nil {
			return nil, fmt.Errorf("parse platform_mappings: %w", err)
		}
	}
	return &pr, nil
}

// --- Products ---

// LoadProducts returns every product configured for a tenant.
func (p *Postgres) LoadProducts(ctx context.Context, tenantID string) ([]models.Product, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT product_id, name, description, format_ids, delivery_type, publisher_properties, pricing_options, delivery_measurement FROM products WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Product
	for rows.Next() {
		var pr models.Product
		pr.TenantID = tenantID
		var formatIDs, pubProps, pricingOpts, deliveryMeasurement []byte
		if err := rows.Scan(&pr.ProductID, &pr.Name, &pr.Description, &formatIDs, &pr.DeliveryType, &pubProps, &pricingOpts, &deliveryMeasurement); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if err := jsonUnmarshal(formatIDs, &pr.FormatIDs); err != nil {
			return nil, fmt.Errorf("parse format_ids: %w", err)
		}
		if err := jsonUnmarshal(pubProps, &pr.PublisherProperties); err != nil {
			return nil, fmt.Errorf("parse publisher_properties: %w", err)
		}
		if err := jsonUnmarshal(pricingOpts, &pr.PricingOptions); err != nil {
			return nil, fmt.Errorf("parse pricing_options: %w", err)
		}
		if len(deliveryMeasurement) > 0 {
			if err := jsonUnmarshal(deliveryMeasurement, &pr.DeliveryMeasurement); err != nil {
				return nil, fmt.Errorf("parse delivery_measurement: %w", err)
			}
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// --- Creatives ---

// InsertOrUpdateCreative upserts a creative by (tenant_id, creative_id).
func (p *Postgres) InsertOrUpdateCreative(ctx context.Context, c models.Creative) error {
	formatID, err := jsonMarshal(c.FormatID)
	if err != nil {
		return fmt.Errorf("marshal format_id: %w", err)
	}
	assets, err := jsonMarshal(c.Assets)
	if err != nil {
		return fmt.Errorf("marshal assets: %w", err)
	}
	_, err = p.DB.ExecContext(ctx, `
		INSERT INTO creatives (creative_id, tenant_id, principal_id, name, format_id, assets, status, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (tenant_id, creative_id) DO UPDATE SET
			name = EXCLUDED.name, format_id = EXCLUDED.format_id, assets = EXCLUDED.assets,
			status = EXCLUDED.status, updated_at = NOW()`,
		c.CreativeID, c.TenantID, c.PrincipalID, c.Name, formatID, assets, c.Status)
	if err != nil {
		return fmt.Errorf("upsert creative: %w", err)
	}
	return nil
}

// LoadCreatives returns the creatives a principal has synced for a tenant.
func (p *Postgres) LoadCreatives(ctx context.Context, tenantID, principalID string) ([]models.Creative, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT creative_id, principal_id, name, format_id, assets, status, created_at, updated_at FROM creatives WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID)
	if err != nil {
		return nil, fmt.Errorf("query creatives: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Creative
	for rows.Next() {
		var c models.Creative
		c.TenantID = tenantID
		var formatID, assets []byte
		if err := rows.Scan(&c.CreativeID, &c.PrincipalID, &c.Name, &formatID, &assets, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan creative: %w", err)
		}
		if err := jsonUnmarshal(formatID, &c.FormatID); err != nil {
			return nil, fmt.Errorf("parse format_id: %w", err)
		}
		if err := jsonUnmarshal(assets, &c.Assets); err != nil {
			return nil, fmt.Errorf("parse assets: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Media buys & packages ---

// InsertMediaBuy persists a newly created media buy.
func (p *Postgres) InsertMediaBuy(ctx context.Context, m models.MediaBuy) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO media_buys (media_buy_id, tenant_id, principal_id, buyer_ref, start_time, end_time, status, raw_request)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.MediaBuyID, m.TenantID, m.PrincipalID, m.BuyerRef, m.StartTime, m.EndTime, m.Status, m.RawRequest)
	if err != nil {
		return fmt.Errorf("insert media buy: %w", err)
	}
	return nil
}

// UpdateMediaBuyStatus transitions a media buy's status.
func (p *Postgres) UpdateMediaBuyStatus(ctx context.Context, tenantID, mediaBuyID, status string) error {
	_, err := p.DB.ExecContext(ctx, `UPDATE media_buys SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND media_buy_id = $3`, status, tenantID, mediaBuyID)
	if err != nil {
		return fmt.Errorf("update media buy status: %w", err)
	}
	return nil
}

// UpdateMediaBuySchedule persists a revised start_time/end_time for a media
// buy. Callers apply this only after an update_media_buy dispatch confirms
// the adapter accepted the new schedule.
func (p *Postgres) UpdateMediaBuySchedule(ctx context.Context, tenantID, mediaBuyID, startTime string, endTime time.Time) error {
	_, err := p.DB.ExecContext(ctx, `UPDATE media_buys SET start_time = $1, end_time = $2, updated_at = NOW() WHERE tenant_id = $3 AND media_buy_id = $4`, startTime, endTime, tenantID, mediaBuyID)
	if err != nil {
		return fmt.Errorf("update media buy schedule: %w", err)
	}
	return nil
}

// LoadMediaBuy returns a single media buy by ID.
func (p *Postgres) LoadMediaBuy(ctx context.Context, tenantID, mediaBuyID string) (*models.MediaBuy, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT media_buy_id, tenant_id, principal_id, buyer_ref, start_time, end_time, status, raw_request, created_at, updated_at FROM media_buys WHERE tenant_id = $1 AND media_buy_id = $2`, tenantID, mediaBuyID)
	var m models.MediaBuy
	if err := row.Scan(&m.MediaBuyID, &m.TenantID, &m.PrincipalID, &m.BuyerRef, &m.StartTime, &m.EndTime, &m.Status, &m.RawRequest, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan media buy: %w", err)
	}
	return &m, nil
}

// LoadMediaBuysByStatus returns every media buy across all tenants matching
// one of the provided statuses. Used by the background schedulers, which
// operate process-wide rather than per-request.
func (p *Postgres) LoadMediaBuysByStatus(ctx context.Context, statuses []string) ([]models.MediaBuy, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT media_buy_id, tenant_id, principal_id, buyer_ref, start_time, end_time, status, raw_request, created_at, updated_at FROM media_buys WHERE status = ANY($1)`, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("query media buys by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MediaBuy
	for rows.Next() {
		var m models.MediaBuy
		if err := rows.Scan(&m.MediaBuyID, &m.TenantID, &m.PrincipalID, &m.BuyerRef, &m.StartTime, &m.EndTime, &m.Status, &m.RawRequest, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan media buy: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadMediaBuysByTenant returns a tenant's media buys, optionally narrowed to
// the given statuses (all statuses when empty). Used by get_media_buy_delivery
// to resolve a status_filter into concrete media_buy_ids when the caller
// didn't name any explicitly.
func (p *Postgres) LoadMediaBuysByTenant(ctx context.Context, tenantID string, statuses []string) ([]models.MediaBuy, error) {
	query := `SELECT media_buy_id, tenant_id, principal_id, buyer_ref, start_time, end_time, status, raw_request, created_at, updated_at FROM media_buys WHERE tenant_id = $1`
	args := []any{tenantID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statuses))
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query media buys by tenant: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MediaBuy
	for rows.Next() {
		var m models.MediaBuy
		if err := rows.Scan(&m.MediaBuyID, &m.TenantID, &m.PrincipalID, &m.BuyerRef, &m.StartTime, &m.EndTime, &m.Status, &m.RawRequest, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan media buy: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMediaPackage persists a package belonging to a media buy, along
// with its dual-written JSON projection.
func (p *Postgres) InsertMediaPackage(ctx context.Context, tenantID string, pkg models.MediaPackage) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO media_packages (media_buy_id, package_id, tenant_id, product_id, buyer_ref, pricing_option_id, budget, currency, bid_price, pacing, package_config)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (tenant_id, media_buy_id, package_id) DO UPDATE SET
			product_id = EXCLUDED.product_id, buyer_ref = EXCLUDED.buyer_ref,
			pricing_option_id = EXCLUDED.pricing_option_id, budget = EXCLUDED.budget,
			currency = EXCLUDED.currency, bid_price = EXCLUDED.bid_price,
			pacing = EXCLUDED.pacing, package_config = EXCLUDED.package_config`,
		pkg.MediaBuyID, pkg.PackageID, tenantID, pkg.ProductID, pkg.BuyerRef, pkg.PricingOptionID, pkg.Budget, pkg.Currency, pkg.BidPrice, pkg.Pacing, pkg.PackageConfig)
	if err != nil {
		return fmt.Errorf("upsert media package: %w", err)
	}
	return nil
}

// LoadMediaPackages returns every package belonging to a media buy.
func (p *Postgres) LoadMediaPackages(ctx context.Context, tenantID, mediaBuyID string) ([]models.MediaPackage, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT media_buy_id, package_id, product_id, buyer_ref, pricing_option_id, budget, currency, bid_price, pacing, package_config FROM media_packages WHERE tenant_id = $1 AND media_buy_id = $2`, tenantID, mediaBuyID)
	if err != nil {
		return nil, fmt.Errorf("query media packages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MediaPackage
	for rows.Next() {
		var pkg models.MediaPackage
		var pricingOptionID, buyerRef sql.NullString
		if err := rows.Scan(&pkg.MediaBuyID, &pkg.PackageID, &pkg.ProductID, &buyerRef, &pricingOptionID, &pkg.Budget, &pkg.Currency, &pkg.BidPrice, &pkg.Pacing, &pkg.PackageConfig); err != nil {
			return nil, fmt.Errorf("scan media package: %w", err)
		}
		pkg.PricingOptionID = pricingOptionID.String
		pkg.BuyerRef = buyerRef.String
		out = append(out, pkg)
	}
	return out, rows.Err()
}

// --- Creative assignments ---

// InsertCreativeAssignment links a creative into a media buy package.
func (p *Postgres) InsertCreativeAssignment(ctx context.Context, tenantID string, a models.CreativeAssignment) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO creative_assignments (tenant_id, media_buy_id, package_id, creative_id, weight, rotation_type, click_url, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tenant_id, media_buy_id, package_id, creative_id) DO UPDATE SET
			weight = EXCLUDED.weight, rotation_type = EXCLUDED.rotation_type,
			click_url = EXCLUDED.click_url, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time`,
		tenantID, a.MediaBuyID, a.PackageID, a.CreativeID, a.Weight, a.RotationType, a.ClickURL, a.StartTime, a.EndTime)
	if err != nil {
		return fmt.Errorf("upsert creative assignment: %w", err)
	}
	return nil
}

// LoadCreativeAssignmentStatuses returns the current approval status of
// each creative assigned to a media buy's packages.
func (p *Postgres) LoadCreativeAssignmentStatuses(ctx context.Context, tenantID, mediaBuyID string) ([]string, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT c.status FROM creative_assignments ca
		JOIN creatives c ON c.tenant_id = ca.tenant_id AND c.creative_id = ca.creative_id
		WHERE ca.tenant_id = $1 AND ca.media_buy_id = $2`, tenantID, mediaBuyID)
	if err != nil {
		return nil, fmt.Errorf("query creative assignment statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var statuses []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan assignment status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// --- Workflow steps ---

// InsertWorkflowStep persists a new workflow step and its object mapping.
func (p *Postgres) InsertWorkflowStep(ctx context.Context, step models.WorkflowStep, mapping *models.ObjectWorkflowMapping) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_steps (step_id, context_id, tenant_id, tool_name, step_type, status, owner, request_data, response_data, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		step.StepID, step.ContextID, step.TenantID, step.ToolName, step.StepType, step.Status, step.Owner, step.RequestData, step.ResponseData, step.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert workflow step: %w", err)
	}
	if mapping != nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO object_workflow_mappings (step_id, object_type, object_id) VALUES ($1,$2,$3)`, mapping.StepID, mapping.ObjectType, mapping.ObjectID)
		if err != nil {
			return fmt.Errorf("insert workflow mapping: %w", err)
		}
	}
	return tx.Commit()
}

// UpdateWorkflowStep updates a step's status and response fields.
func (p *Postgres) UpdateWorkflowStep(ctx context.Context, stepID, status string, responseData []byte, errMsg string) error {
	_, err := p.DB.ExecContext(ctx, `UPDATE workflow_steps SET status = $1, response_data = $2, error_message = $3, updated_at = NOW() WHERE step_id = $4`, status, responseData, errMsg, stepID)
	if err != nil {
		return fmt.Errorf("update workflow step: %w", err)
	}
	return nil
}

// LoadWorkflowSteps returns workflow steps for a tenant filtered by status,
// or all steps if status is empty.
func (p *Postgres) LoadWorkflowSteps(ctx context.Context, tenantID, status string) ([]models.WorkflowStep, error) {
	query := `SELECT step_id, context_id, tool_name, step_type, status, owner, request_data, response_data, error_message, created_at, updated_at FROM workflow_steps WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workflow steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.WorkflowStep
	for rows.Next() {
		var s models.WorkflowStep
		s.TenantID = tenantID
		if err := rows.Scan(&s.StepID, &s.ContextID, &s.ToolName, &s.StepType, &s.Status, &s.Owner, &s.RequestData, &s.ResponseData, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow step: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadWorkflowStep returns a single workflow step by ID.
func (p *Postgres) LoadWorkflowStep(ctx context.Context, stepID string) (*models.WorkflowStep, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT step_id, context_id, tenant_id, tool_name, step_type, status, owner, request_data, response_data, error_message, created_at, updated_at FROM workflow_steps WHERE step_id = $1`, stepID)
	var s models.WorkflowStep
	if err := row.Scan(&s.StepID, &s.ContextID, &s.TenantID, &s.ToolName, &s.StepType, &s.Status, &s.Owner, &s.RequestData, &s.ResponseData, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan workflow step: %w", err)
	}
	return &s, nil
}

// LoadObjectWorkflowMappings returns every object mapping for a workflow
// step.
func (p *Postgres) LoadObjectWorkflowMappings(ctx context.Context, stepID string) ([]models.ObjectWorkflowMapping, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT step_id, object_type, object_id FROM object_workflow_mappings WHERE step_id = $1`, stepID)
	if err != nil {
		return nil, fmt.Errorf("query object workflow mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ObjectWorkflowMapping
	for rows.Next() {
		var m models.ObjectWorkflowMapping
		if err := rows.Scan(&m.StepID, &m.ObjectType, &m.ObjectID); err != nil {
			return nil, fmt.Errorf("scan object workflow mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListTasksFilter narrows a list_tasks page by status and/or the object a
// workflow step is mapped to.
type ListTasksFilter struct {
	Status     string
	ObjectType string
	ObjectID   string
	Limit      int
	Offset     int
}

// ListTasks returns a page of workflow steps for a tenant matching filter,
// ordered by created_at DESC, plus the total matching count for pagination.
func (p *Postgres) ListTasks(ctx context.Context, tenantID string, filter ListTasksFilter) ([]models.WorkflowStep, int, error) {
	where := `WHERE ws.tenant_id = $1`
	args := []any{tenantID}
	joinMapping := filter.ObjectType != "" || filter.ObjectID != ""
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND ws.status = $%d", len(args))
	}
	if filter.ObjectType != "" {
		args = append(args, filter.ObjectType)
		where += fmt.Sprintf(" AND m.object_type = $%d", len(args))
	}
	if filter.ObjectID != "" {
		args = append(args, filter.ObjectID)
		where += fmt.Sprintf(" AND m.object_id = $%d", len(args))
	}

	from := `FROM workflow_steps ws`
	if joinMapping {
		from += ` JOIN object_workflow_mappings m ON m.step_id = ws.step_id`
	}

	var total int
	if err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) `+from+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT ws.step_id, ws.context_id, ws.tool_name, ws.step_type, ws.status, ws.owner, ws.request_data, ws.response_data, ws.error_message, ws.created_at, ws.updated_at
		%s %s ORDER BY ws.created_at DESC LIMIT $%d OFFSET $%d`, from, where, len(args)-1, len(args))

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.WorkflowStep
	for rows.Next() {
		var s models.WorkflowStep
		s.TenantID = tenantID
		if err := rows.Scan(&s.StepID, &s.ContextID, &s.ToolName, &s.StepType, &s.Status, &s.Owner, &s.RequestData, &s.ResponseData, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// --- Sync jobs ---

// InsertSyncJob persists a new sync job record.
func (p *Postgres) InsertSyncJob(ctx context.Context, job models.SyncJob) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO sync_jobs (sync_id, tenant_id, adapter_type, sync_type, status, started_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		job.SyncID, job.TenantID, job.AdapterType, job.SyncType, job.Status, job.StartedAt)
	if err != nil {
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

// CompleteSyncJob marks a sync job terminal with its summary.
func (p *Postgres) CompleteSyncJob(ctx context.Context, syncID, status string, summary []byte, errMsg string) error {
	_, err := p.DB.ExecContext(ctx, `UPDATE sync_jobs SET status = $1, completed_at = NOW(), summary = $2, error_message = $3 WHERE sync_id = $4`, status, summary, errMsg, syncID)
	if err != nil {
		return fmt.Errorf("complete sync job: %w", err)
	}
	return nil
}

// --- Inventory rows ---

// UpsertInventoryRow writes or refreshes one inventory row.
func (p *Postgres) UpsertInventoryRow(ctx context.Context, row models.InventoryRow) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO inventory_rows (tenant_id, inventory_type, inventory_id, name, path, status, inventory_metadata, last_synced)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (tenant_id, inventory_type, inventory_id) DO UPDATE SET
			name = EXCLUDED.name, path = EXCLUDED.path, status = EXCLUDED.status,
			inventory_metadata = EXCLUDED.inventory_metadata, last_synced = NOW()`,
		row.TenantID, row.InventoryType, row.InventoryID, row.Name, pq.Array(row.Path), row.Status, row.InventoryMetadata)
	if err != nil {
		return fmt.Errorf("upsert inventory row: %w", err)
	}
	return nil
}

// MarkInventoryStaleBefore marks rows of the given type not refreshed since
// cutoff as STALE, skipping types exempt from the stale-marking policy.
func (p *Postgres) MarkInventoryStaleBefore(ctx context.Context, tenantID, inventoryType string, cutoff time.Time) (int64, error) {
	if inventoryType == models.InventoryTypeAdUnit {
		return 0, nil
	}
	res, err := p.DB.ExecContext(ctx, `UPDATE inventory_rows SET status = $1 WHERE tenant_id = $2 AND inventory_type = $3 AND last_synced < $4 AND status != $1`,
		models.InventoryStatusStale, tenantID, inventoryType, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark inventory stale: %w", err)
	}
	return res.RowsAffected()
}

// LoadInventoryByType returns every inventory row of the given type for a
// tenant, used to enumerate custom targeting keys before lazily loading
// their values.
func (p *Postgres) LoadInventoryByType(ctx context.Context, tenantID, inventoryType string) ([]models.InventoryRow, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT tenant_id, inventory_type, inventory_id, name, path, status, inventory_metadata, last_synced
		FROM inventory_rows WHERE tenant_id = $1 AND inventory_type = $2`, tenantID, inventoryType)
	if err != nil {
		return nil, fmt.Errorf("query inventory by type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.InventoryRow
	for rows.Next() {
		var row models.InventoryRow
		var path pq.StringArray
		if err := rows.Scan(&row.TenantID, &row.InventoryType, &row.InventoryID, &row.Name, &path, &row.Status, &row.InventoryMetadata, &row.LastSynced); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		row.Path = path
		out = append(out, row)
	}
	return out, rows.Err()
}

// LastInventorySync returns the most recent last_synced timestamp across a
// tenant's inventory rows, used as the incremental-sync watermark.
func (p *Postgres) LastInventorySync(ctx context.Context, tenantID string) (time.Time, error) {
	var t sql.NullTime
	err := p.DB.QueryRowContext(ctx, `SELECT MAX(last_synced) FROM inventory_rows WHERE tenant_id = $1`, tenantID).Scan(&t)
	if err != nil {
		return time.Time{}, fmt.Errorf("query last inventory sync: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// --- Webhooks ---

// NextWebhookSequence returns MAX(sequence_number)+1 for (media_buy_id,
// task_type), used to assign a monotonic sequence at insert time.
func (p *Postgres) NextWebhookSequence(ctx context.Context, mediaBuyID, taskType string) (int, error) {
	var max sql.NullInt64
	err := p.DB.QueryRowContext(ctx, `SELECT MAX(sequence_number) FROM webhook_delivery_logs WHERE media_buy_id = $1 AND task_type = $2`, mediaBuyID, taskType).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("query max sequence: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

// InsertWebhookDeliveryLog records a delivery attempt.
func (p *Postgres) InsertWebhookDeliveryLog(ctx context.Context, tenantID string, log models.WebhookDeliveryLog) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO webhook_delivery_logs (media_buy_id, tenant_id, task_type, notification_type, sequence_number, status) VALUES ($1,$2,$3,$4,$5,$6)`,
		log.MediaBuyID, tenantID, log.TaskType, log.NotificationType, log.SequenceNumber, log.Status)
	if err != nil {
		return fmt.Errorf("insert webhook delivery log: %w", err)
	}
	return nil
}

// LoadPushNotificationConfig returns the registered webhook endpoint for a
// (tenant, principal), if any.
func (p *Postgres) LoadPushNotificationConfig(ctx context.Context, tenantID, principalID string) (*models.PushNotificationConfig, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT url, authentication_type, authentication_token, is_active FROM push_notification_configs WHERE tenant_id = $1 AND principal_id = $2`, tenantID, principalID)
	var cfg models.PushNotificationConfig
	cfg.TenantID, cfg.PrincipalID = tenantID, principalID
	if err := row.Scan(&cfg.URL, &cfg.AuthenticationType, &cfg.AuthenticationToken, &cfg.IsActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan push notification config: %w", err)
	}
	return &cfg, nil
}
