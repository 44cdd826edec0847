package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/adapter/dispatch"
	"github.com/advelops/adcp-salesagent/internal/adapter/gam"
	"github.com/advelops/adcp-salesagent/internal/adapter/kevel"
	"github.com/advelops/adcp-salesagent/internal/adapter/mock"
	"github.com/advelops/adcp-salesagent/internal/adapter/triton"
	"github.com/advelops/adcp-salesagent/internal/analytics"
	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/catalog"
	"github.com/advelops/adcp-salesagent/internal/config"
	"github.com/advelops/adcp-salesagent/internal/creative"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/inventory"
	"github.com/advelops/adcp-salesagent/internal/lifecycle"
	"github.com/advelops/adcp-salesagent/internal/middleware"
	"github.com/advelops/adcp-salesagent/internal/models"
	"github.com/advelops/adcp-salesagent/internal/observability"
	"github.com/advelops/adcp-salesagent/internal/scheduler"
	"github.com/advelops/adcp-salesagent/internal/schema"
	"github.com/advelops/adcp-salesagent/internal/tenant"
	"github.com/advelops/adcp-salesagent/internal/webhook"
	"github.com/advelops/adcp-salesagent/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// GetProductsInput is the get_products tool envelope.
type GetProductsInput struct {
	TenantID      string `json:"tenant_id"`
	AuthToken     string `json:"auth_token,omitempty"`
	Brief         string `json:"brief,omitempty"`
	DeliveryType  string `json:"delivery_type,omitempty"`
	MinWidth      int    `json:"min_width,omitempty"`
	MinHeight     int    `json:"min_height,omitempty"`
	NameSubstring string `json:"name_substring,omitempty"`
}

type GetProductsOutput struct {
	Products []models.Product `json:"products"`
}

// CreateMediaBuyInput wraps lifecycle.CreateMediaBuyRequest with the
// tenant/principal envelope every tool call carries.
type CreateMediaBuyInput struct {
	TenantID  string `json:"tenant_id"`
	AuthToken string `json:"auth_token"`
	DryRun    bool   `json:"dry_run,omitempty"`
	lifecycle.CreateMediaBuyRequest
}

// UpdateMediaBuyInput wraps lifecycle.UpdateMediaBuyRequest likewise.
type UpdateMediaBuyInput struct {
	TenantID  string `json:"tenant_id"`
	AuthToken string `json:"auth_token"`
	DryRun    bool   `json:"dry_run,omitempty"`
	lifecycle.UpdateMediaBuyRequest
}

type SyncCreativesInput struct {
	TenantID  string            `json:"tenant_id"`
	AuthToken string            `json:"auth_token"`
	Creatives []models.Creative `json:"creatives"`
}

type SyncCreativesOutput struct {
	Creatives []models.Creative `json:"creatives"`
}

type ListCreativesInput struct {
	TenantID  string `json:"tenant_id"`
	AuthToken string `json:"auth_token"`
}

type ListCreativesOutput struct {
	Creatives []models.Creative `json:"creatives"`
}

type ListTasksInput struct {
	TenantID   string `json:"tenant_id"`
	AuthToken  string `json:"auth_token"`
	Status     string `json:"status,omitempty"`
	ObjectType string `json:"object_type,omitempty"`
	ObjectID   string `json:"object_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

type GetTaskInput struct {
	TenantID  string `json:"tenant_id"`
	AuthToken string `json:"auth_token"`
	TaskID    string `json:"task_id"`
}

type CompleteTaskInput struct {
	TenantID     string `json:"tenant_id"`
	AuthToken    string `json:"auth_token"`
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ResponseData []byte `json:"response_data,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type TriggerReportInput struct {
	TenantID   string `json:"tenant_id"`
	AuthToken  string `json:"auth_token"`
	MediaBuyID string `json:"media_buy_id"`
}

type TriggerReportOutput struct {
	Triggered bool `json:"triggered"`
}

type SyncInventoryInput struct {
	TenantID  string `json:"tenant_id"`
	AuthToken string `json:"auth_token"`
	Mode      string `json:"mode,omitempty"` // "full" | "incremental" | "selective"
}

// GetMediaBuyDeliveryInput is the get_media_buy_delivery tool envelope.
// status_filter accepts a single value or a list; when media_buy_ids is
// empty it narrows the tenant's media buys the call resolves against.
type GetMediaBuyDeliveryInput struct {
	TenantID     string    `json:"tenant_id"`
	AuthToken    string    `json:"auth_token"`
	MediaBuyIDs  []string  `json:"media_buy_ids,omitempty"`
	BuyerRefs    []string  `json:"buyer_refs,omitempty"`
	StatusFilter []string  `json:"status_filter,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	DryRun       bool      `json:"dry_run,omitempty"`
}

type GetMediaBuyDeliveryOutput struct {
	Rows []adapter.DeliveryRow `json:"rows"`
}

// ListCreativeFormatsInput is the list_creative_formats tool envelope; every
// filter field is optional and narrows the tenant's available formats.
type ListCreativeFormatsInput struct {
	TenantID     string          `json:"tenant_id"`
	AuthToken    string          `json:"auth_token"`
	Type         string          `json:"type,omitempty"`
	FormatIDs    []models.FormatID `json:"format_ids,omitempty"`
	IsResponsive *bool           `json:"is_responsive,omitempty"`
	NameSearch   string          `json:"name_search,omitempty"`
	MinWidth     *int            `json:"min_width,omitempty"`
	MaxWidth     *int            `json:"max_width,omitempty"`
	MinHeight    *int            `json:"min_height,omitempty"`
	MaxHeight    *int            `json:"max_height,omitempty"`
	AssetTypes   []string        `json:"asset_types,omitempty"`
}

type ListCreativeFormatsOutput struct {
	Formats []catalog.FormatSpec `json:"formats"`
}

// ListAuthorizedPropertiesInput is the list_authorized_properties tool
// envelope; all fields are optional per the AdCP schema.
type ListAuthorizedPropertiesInput struct {
	TenantID         string   `json:"tenant_id"`
	AuthToken        string   `json:"auth_token,omitempty"`
	PublisherDomains []string `json:"publisher_domains,omitempty"`
}

type ListAuthorizedPropertiesOutput struct {
	PublisherDomains []string `json:"publisher_domains"`
}

// AdCPServer holds the wired dependencies every tool handler dispatches
// through. One instance is built at startup and shared across calls; every
// field is safe for concurrent use.
type AdCPServer struct {
	tenants        *tenant.Resolver
	catalog        *catalog.Catalog
	creatives      *creative.Service
	mediaBuys      *lifecycle.Engine
	workflow       *workflow.Service
	inventorySync  *inventory.Engine
	supervisor     *scheduler.Supervisor
	resolveAdapter lifecycle.AdapterResolver
	dispatcher     *dispatch.Dispatcher
	analyticsStore *analytics.Store
	store          *db.Store
	formats        *catalog.FormatRegistry
	logger         *zap.Logger
	metrics        observability.MetricsRegistry
}

// resolve looks up the tenant and, when an auth token is supplied, the
// calling principal. With no auth token the principal is nil:
// create_media_buy, update_media_buy, sync_creatives and list_creatives
// reject such a call, and the other tools proceed without a principal.
func (s *AdCPServer) resolve(ctx context.Context, tenantID, authToken string) (models.Tenant, *models.Principal, error) {
	t, err := s.tenants.ResolveTenant(ctx, http.Header{}, "", tenantID)
	if err != nil {
		return models.Tenant{}, nil, err
	}
	if authToken == "" {
		return *t, nil, nil
	}
	p, err := s.tenants.ResolvePrincipal(ctx, t.TenantID, authToken)
	if err != nil {
		return models.Tenant{}, nil, err
	}
	return *t, p, nil
}

func errorResult(err error) *mcp.CallToolResult {
	if ae, ok := apperr.As(err); ok {
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("%s: %s", ae.Code, ae.Message),
		}}}
	}
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}}
}

// mediaBuyResultError extracts a Result's failure branch into a tool-call
// error, since the wire-level Result union already carries a structured
// {code, message}.
func mediaBuyResultError(result schema.Result[lifecycle.CreateMediaBuyResponse]) *mcp.CallToolResult {
	e, _ := result.ErrorValue()
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{
		Text: fmt.Sprintf("%s: %s", e.Code, e.Message),
	}}}
}

func (s *AdCPServer) GetProducts(ctx context.Context, req *mcp.CallToolRequest, input GetProductsInput) (*mcp.CallToolResult, GetProductsOutput, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), GetProductsOutput{}, nil
	}
	products, err := s.catalog.GetProducts(ctx, t.TenantID, input.Brief, catalog.Filters{
		DeliveryType:  input.DeliveryType,
		MinWidth:      input.MinWidth,
		MinHeight:     input.MinHeight,
		NameSubstring: input.NameSubstring,
	})
	if err != nil {
		return errorResult(err), GetProductsOutput{}, nil
	}
	return nil, GetProductsOutput{Products: products}, nil
}

func (s *AdCPServer) CreateMediaBuy(ctx context.Context, req *mcp.CallToolRequest, input CreateMediaBuyInput) (*mcp.CallToolResult, lifecycle.CreateMediaBuyResponse, error) {
	t, p, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), lifecycle.CreateMediaBuyResponse{}, nil
	}
	if p == nil {
		return errorResult(apperr.Authentication("create_media_buy requires an authenticated principal")), lifecycle.CreateMediaBuyResponse{}, nil
	}
	result, err := s.mediaBuys.CreateMediaBuy(ctx, t, p.PrincipalID, input.CreateMediaBuyRequest, input.DryRun)
	if err != nil {
		return errorResult(err), lifecycle.CreateMediaBuyResponse{}, nil
	}
	if !result.IsSuccess() {
		return mediaBuyResultError(result), lifecycle.CreateMediaBuyResponse{}, nil
	}
	value, _ := result.Value()
	return nil, value, nil
}

func (s *AdCPServer) UpdateMediaBuy(ctx context.Context, req *mcp.CallToolRequest, input UpdateMediaBuyInput) (*mcp.CallToolResult, lifecycle.CreateMediaBuyResponse, error) {
	t, p, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), lifecycle.CreateMediaBuyResponse{}, nil
	}
	if p == nil {
		return errorResult(apperr.Authentication("update_media_buy requires an authenticated principal")), lifecycle.CreateMediaBuyResponse{}, nil
	}
	result, err := s.mediaBuys.UpdateMediaBuy(ctx, t, input.UpdateMediaBuyRequest, input.DryRun)
	if err != nil {
		return errorResult(err), lifecycle.CreateMediaBuyResponse{}, nil
	}
	if !result.IsSuccess() {
		return mediaBuyResultError(result), lifecycle.CreateMediaBuyResponse{}, nil
	}
	value, _ := result.Value()
	return nil, value, nil
}

func (s *AdCPServer) SyncCreatives(ctx context.Context, req *mcp.CallToolRequest, input SyncCreativesInput) (*mcp.CallToolResult, SyncCreativesOutput, error) {
	t, p, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), SyncCreativesOutput{}, nil
	}
	if p == nil {
		return errorResult(apperr.Authentication("sync_creatives requires an authenticated principal")), SyncCreativesOutput{}, nil
	}
	for _, c := range input.Creatives {
		if err := s.creatives.Validate(ctx, t.TenantID, c); err != nil {
			return errorResult(err), SyncCreativesOutput{}, nil
		}
	}
	out, err := s.creatives.SyncCreatives(ctx, t.TenantID, p.PrincipalID, input.Creatives)
	if err != nil {
		return errorResult(err), SyncCreativesOutput{}, nil
	}
	return nil, SyncCreativesOutput{Creatives: out}, nil
}

func (s *AdCPServer) ListCreatives(ctx context.Context, req *mcp.CallToolRequest, input ListCreativesInput) (*mcp.CallToolResult, ListCreativesOutput, error) {
	t, p, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), ListCreativesOutput{}, nil
	}
	if p == nil {
		return errorResult(apperr.Authentication("list_creatives requires an authenticated principal")), ListCreativesOutput{}, nil
	}
	out, err := s.creatives.ListCreatives(ctx, t.TenantID, p.PrincipalID)
	if err != nil {
		return errorResult(err), ListCreativesOutput{}, nil
	}
	return nil, ListCreativesOutput{Creatives: out}, nil
}

func (s *AdCPServer) ListTasks(ctx context.Context, req *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, workflow.TaskPage, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), workflow.TaskPage{}, nil
	}
	page, err := s.workflow.ListTasks(ctx, t.TenantID, input.Status, input.ObjectType, input.ObjectID, input.Limit, input.Offset)
	if err != nil {
		return errorResult(err), workflow.TaskPage{}, nil
	}
	return nil, page, nil
}

func (s *AdCPServer) GetTask(ctx context.Context, req *mcp.CallToolRequest, input GetTaskInput) (*mcp.CallToolResult, workflow.TaskDetail, error) {
	if _, _, err := s.resolve(ctx, input.TenantID, input.AuthToken); err != nil {
		return errorResult(err), workflow.TaskDetail{}, nil
	}
	detail, err := s.workflow.GetTask(ctx, input.TaskID)
	if err != nil {
		return errorResult(err), workflow.TaskDetail{}, nil
	}
	return nil, detail, nil
}

func (s *AdCPServer) CompleteTask(ctx context.Context, req *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, models.WorkflowStep, error) {
	if _, _, err := s.resolve(ctx, input.TenantID, input.AuthToken); err != nil {
		return errorResult(err), models.WorkflowStep{}, nil
	}
	step, err := s.workflow.CompleteTask(ctx, input.TaskID, input.Status, input.ResponseData, input.ErrorMessage)
	if err != nil {
		return errorResult(err), models.WorkflowStep{}, nil
	}
	return nil, step, nil
}

func (s *AdCPServer) TriggerReportForMediaBuyByID(ctx context.Context, req *mcp.CallToolRequest, input TriggerReportInput) (*mcp.CallToolResult, TriggerReportOutput, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), TriggerReportOutput{}, nil
	}
	if err := s.supervisor.Delivery().TriggerNow(ctx, t.TenantID, input.MediaBuyID); err != nil {
		return errorResult(err), TriggerReportOutput{}, nil
	}
	return nil, TriggerReportOutput{Triggered: true}, nil
}

func (s *AdCPServer) SyncInventory(ctx context.Context, req *mcp.CallToolRequest, input SyncInventoryInput) (*mcp.CallToolResult, inventory.Summary, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), inventory.Summary{}, nil
	}
	capability, err := s.resolveAdapter(t.TenantID, t.AdServer)
	if err != nil {
		return errorResult(err), inventory.Summary{}, nil
	}
	mode := inventory.Mode(input.Mode)
	if mode == "" {
		mode = inventory.ModeIncremental
	}
	summary, err := s.inventorySync.Run(ctx, t.TenantID, t.AdServer, capability, inventory.Options{Mode: mode})
	if err != nil {
		return errorResult(err), inventory.Summary{}, nil
	}
	return nil, summary, nil
}

// GetMediaBuyDelivery dispatches a live delivery fetch to the tenant's
// adapter, honoring dry_run for testing context, and best-effort records the
// result into the analytics store so it contributes to future history
// rollups even though this call always reads live from the adapter.
func (s *AdCPServer) GetMediaBuyDelivery(ctx context.Context, req *mcp.CallToolRequest, input GetMediaBuyDeliveryInput) (*mcp.CallToolResult, GetMediaBuyDeliveryOutput, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), GetMediaBuyDeliveryOutput{}, nil
	}
	capability, err := s.resolveAdapter(t.TenantID, t.AdServer)
	if err != nil {
		return errorResult(err), GetMediaBuyDeliveryOutput{}, nil
	}
	for _, status := range input.StatusFilter {
		if !models.IsValidMediaBuyStatus(status) {
			return errorResult(apperr.InvalidRequest("unknown status_filter value %q", status)), GetMediaBuyDeliveryOutput{}, nil
		}
	}
	mediaBuyIDs := input.MediaBuyIDs
	if len(mediaBuyIDs) == 0 && len(input.StatusFilter) > 0 {
		matches, err := s.store.Postgres.LoadMediaBuysByTenant(ctx, t.TenantID, input.StatusFilter)
		if err != nil {
			return errorResult(err), GetMediaBuyDeliveryOutput{}, nil
		}
		for _, mb := range matches {
			mediaBuyIDs = append(mediaBuyIDs, mb.MediaBuyID)
		}
	}
	delivery, err := s.dispatcher.GetMediaBuyDelivery(ctx, capability, adapter.DeliveryRequest{
		MediaBuyIDs: mediaBuyIDs,
		BuyerRefs:   input.BuyerRefs,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		DryRun:      input.DryRun,
	})
	if err != nil {
		return errorResult(err), GetMediaBuyDeliveryOutput{}, nil
	}
	if !input.DryRun && s.analyticsStore != nil {
		if err := s.analyticsStore.RecordDelivery(ctx, t.TenantID, delivery.Rows, input.StartDate, input.EndDate); err != nil {
			middleware.LoggerFromContext(ctx, s.logger).Warn("record delivery history", zap.Error(err))
		}
	}
	return nil, GetMediaBuyDeliveryOutput{Rows: delivery.Rows}, nil
}

// ListCreativeFormats resolves the formats referenced by a tenant's product
// catalog against their creative agents and applies the caller's filters.
func (s *AdCPServer) ListCreativeFormats(ctx context.Context, req *mcp.CallToolRequest, input ListCreativeFormatsInput) (*mcp.CallToolResult, ListCreativeFormatsOutput, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), ListCreativeFormatsOutput{}, nil
	}
	candidates, err := s.catalog.DistinctFormatIDs(ctx, t.TenantID)
	if err != nil {
		return errorResult(err), ListCreativeFormatsOutput{}, nil
	}
	formats := s.formats.ListAll(ctx, t.TenantID, candidates, catalog.FormatFilter{
		Type:         input.Type,
		FormatIDs:    input.FormatIDs,
		IsResponsive: input.IsResponsive,
		NameSearch:   input.NameSearch,
		MinWidth:     input.MinWidth,
		MaxWidth:     input.MaxWidth,
		MinHeight:    input.MinHeight,
		MaxHeight:    input.MaxHeight,
		AssetTypes:   input.AssetTypes,
	})
	return nil, ListCreativeFormatsOutput{Formats: formats}, nil
}

// ListAuthorizedProperties reports the publisher domains a tenant has
// published, independent of its product catalog.
func (s *AdCPServer) ListAuthorizedProperties(ctx context.Context, req *mcp.CallToolRequest, input ListAuthorizedPropertiesInput) (*mcp.CallToolResult, ListAuthorizedPropertiesOutput, error) {
	t, _, err := s.resolve(ctx, input.TenantID, input.AuthToken)
	if err != nil {
		return errorResult(err), ListAuthorizedPropertiesOutput{}, nil
	}
	result := catalog.ListAuthorizedProperties(t, input.PublisherDomains)
	return nil, ListAuthorizedPropertiesOutput{PublisherDomains: result.PublisherDomains}, nil
}

// withMetrics wraps a tool handler with call-count/latency instrumentation
// and failure logging, so adding a tool to the server doesn't require
// repeating that boilerplate in every handler body.
func withMetrics[In any, Out any](s *AdCPServer, name string, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		result, out, err := handler(ctx, req, input)

		status := "success"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
			middleware.LoggerFromContext(ctx, s.logger).Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.IncrementToolCall(name, "", status)
			s.metrics.RecordToolCallLatency(name, time.Since(start))
		}
		return result, out, err
	}
}

// buildAdapterResolver returns a lifecycle.AdapterResolver that selects
// between the mock/gam/kevel/triton adapters by the tenant's configured
// ad_server, constructing each adapter once and reusing it across calls.
func buildAdapterResolver(cfg config.Config) lifecycle.AdapterResolver {
	mockAdapter := mock.New(cfg.MockAutomationMode)
	gamAdapter := gam.New(cfg.GAMBaseURL, cfg.GAMNetworkCode, cfg.AdapterHTTPTimeout, cfg.GAMAutomationMode)
	kevelAdapter := kevel.New(cfg.KevelBaseURL, cfg.KevelAPIKey, cfg.AdapterHTTPTimeout, cfg.KevelAutomationMode)
	tritonAdapter := triton.New(cfg.TritonBaseURL, cfg.TritonStationGroup, cfg.AdapterHTTPTimeout, cfg.TritonAutomationMode)

	return func(tenantID, adServer string) (adapter.Capability, error) {
		switch adServer {
		case "gam":
			return gamAdapter, nil
		case "kevel":
			return kevelAdapter, nil
		case "triton":
			return tritonAdapter, nil
		case "mock", "":
			return mockAdapter, nil
		default:
			return nil, apperr.InvalidRequest("tenant %s has unsupported ad_server %q", tenantID, adServer)
		}
	}
}

func main() {
	logger, err := observability.InitLoggerWithService("adcp-salesagent-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	redisStore, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("connect to redis", zap.Error(err))
	}
	defer redisStore.Close()

	store := db.NewStore(pg, redisStore)

	metrics := observability.NewPrometheusRegistry()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(context.Background(), logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			logger.Warn("tracing init failed, continuing without it", zap.Error(err))
		} else {
			defer shutdown()
		}
	}

	tenants := tenant.NewResolver(store.Postgres)
	formats := catalog.NewFormatRegistry(store.Redis, cfg.FormatHTTPTimeout, cfg.FormatCacheTTL)

	var matcher *catalog.ProductMatcher
	if cfg.ProductMatcherBaseURL != "" {
		matcher = catalog.NewProductMatcher(cfg.ProductMatcherBaseURL, cfg.ProductMatcherTimeout, cfg.ProductMatcherCacheTTL, logger, metrics)
	}
	cat := catalog.New(store.Postgres, matcher)
	creatives := creative.New(store.Postgres, formats)

	dispatcher := dispatch.New(dispatch.Config{
		BreakerMaxRequests:  cfg.AdapterBreakerMaxRequests,
		BreakerInterval:     cfg.AdapterBreakerInterval,
		BreakerTimeout:      cfg.AdapterBreakerTimeout,
		BreakerFailureRatio: cfg.AdapterBreakerFailureRatio,
		CallTimeout:         cfg.AdapterCallTimeout,
		RateLimitEnabled:    cfg.AdapterRateLimitEnabled,
		RateLimitCapacity:   cfg.AdapterRateLimitCapacity,
		RateLimitRefillRate: cfg.AdapterRateLimitRefillRate,
	}, metrics)

	resolveAdapter := buildAdapterResolver(cfg)

	mediaBuys := lifecycle.New(store.Postgres, dispatcher, resolveAdapter, cat, creatives)
	workflowSvc := workflow.New(store.Postgres)
	inventorySync := inventory.New(store.Postgres, logger, metrics)

	var analyticsStore *analytics.Store
	if cfg.AnalyticsEnabled {
		analyticsStore, err = analytics.New(cfg.ClickHouseDSN, cfg.CHMaxOpenConns, metrics)
		if err != nil {
			logger.Warn("analytics store init failed, continuing without delivery history", zap.Error(err))
		} else {
			defer analyticsStore.Close()
		}
	}

	sender := webhook.New(cfg.WebhookJWTSecret, cfg.WebhookJWTTTL, cfg.WebhookHTTPTimeout)
	statusScheduler := scheduler.NewStatusScheduler(store.Postgres, logger, metrics)
	deliveryScheduler := scheduler.NewDeliveryScheduler(scheduler.DeliverySchedulerConfig{
		Store:      store.Postgres,
		Redis:      store.Redis,
		Dispatcher: dispatcher,
		Resolver:   resolveAdapter,
		Sender:     sender,
		Analytics:  analyticsStore,
		Logger:     logger,
		Metrics:    metrics,
	})
	supervisor := scheduler.NewSupervisor(statusScheduler, deliveryScheduler, cfg.MediaBuyStatusCheckInterval, cfg.DeliveryWebhookInterval, logger)

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	supervisor.Start(schedulerCtx)
	defer supervisor.Stop()

	adcpServer := &AdCPServer{
		tenants:        tenants,
		catalog:        cat,
		creatives:      creatives,
		mediaBuys:      mediaBuys,
		workflow:       workflowSvc,
		inventorySync:  inventorySync,
		supervisor:     supervisor,
		resolveAdapter: resolveAdapter,
		dispatcher:     dispatcher,
		analyticsStore: analyticsStore,
		store:          store,
		formats:        formats,
		logger:         logger,
		metrics:        metrics,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adcp-salesagent",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_products",
		Description: "Discover available advertising inventory for a tenant's product catalog",
	}, withMetrics(adcpServer, "get_products", adcpServer.GetProducts))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_media_buy",
		Description: "Create a media buy against one or more products",
	}, withMetrics(adcpServer, "create_media_buy", adcpServer.CreateMediaBuy))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_media_buy",
		Description: "Update an existing media buy's schedule, budget, or package configuration",
	}, withMetrics(adcpServer, "update_media_buy", adcpServer.UpdateMediaBuy))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_creatives",
		Description: "Upsert creatives into a principal's creative library",
	}, withMetrics(adcpServer, "sync_creatives", adcpServer.SyncCreatives))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_creatives",
		Description: "List a principal's synced creatives",
	}, withMetrics(adcpServer, "list_creatives", adcpServer.ListCreatives))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List workflow tasks for a tenant, optionally filtered by status or object",
	}, withMetrics(adcpServer, "list_tasks", adcpServer.ListTasks))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_task",
		Description: "Fetch a single workflow task and its object mappings",
	}, withMetrics(adcpServer, "get_task", adcpServer.GetTask))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Transition a pending/in_progress/requires_approval task to completed or failed",
	}, withMetrics(adcpServer, "complete_task", adcpServer.CompleteTask))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trigger_report_for_media_buy_by_id",
		Description: "Immediately deliver a media buy's delivery-report webhook, bypassing the scheduled cadence and dedup window",
	}, withMetrics(adcpServer, "trigger_report_for_media_buy_by_id", adcpServer.TriggerReportForMediaBuyByID))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_inventory",
		Description: "Run an inventory sync job against a tenant's ad-server adapter",
	}, withMetrics(adcpServer, "sync_inventory", adcpServer.SyncInventory))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_media_buy_delivery",
		Description: "Fetch delivery metrics (impressions, clicks, spend) for one or more media buys over a date range",
	}, withMetrics(adcpServer, "get_media_buy_delivery", adcpServer.GetMediaBuyDelivery))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_creative_formats",
		Description: "List the creative formats a tenant's product catalog supports, optionally filtered by type, dimensions or asset requirements",
	}, withMetrics(adcpServer, "list_creative_formats", adcpServer.ListCreativeFormats))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_authorized_properties",
		Description: "List the publisher domains a tenant is authorized to sell inventory against",
	}, withMetrics(adcpServer, "list_authorized_properties", adcpServer.ListAuthorizedProperties))

	logger.Info("adcp-salesagent mcp server starting", zap.String("service", cfg.ServiceName))

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

