package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/adapter/dispatch"
	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/catalog"
	"github.com/advelops/adcp-salesagent/internal/creative"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
	"github.com/advelops/adcp-salesagent/internal/schema"
	"github.com/google/uuid"
)

// AdapterResolver returns the adapter.Capability to dispatch against for a
// tenant, keyed by the tenant's configured ad_server.
type AdapterResolver func(tenantID, adServer string) (adapter.Capability, error)

// Engine implements the media-buy lifecycle: create_media_buy and
// update_media_buy.
type Engine struct {
	store      *db.Postgres
	dispatcher *dispatch.Dispatcher
	resolver   AdapterResolver
	catalog    *catalog.Catalog
	creatives  *creative.Service
}

// New builds a lifecycle Engine.
func New(store *db.Postgres, dispatcher *dispatch.Dispatcher, resolver AdapterResolver, cat *catalog.Catalog, creatives *creative.Service) *Engine {
	return &Engine{store: store, dispatcher: dispatcher, resolver: resolver, catalog: cat, creatives: creatives}
}

// CreateMediaBuy runs the full create_media_buy algorithm: envelope
// validation, product/pricing resolution, creative validation, adapter
// dispatch, and atomic persistence of the result.
func (e *Engine) CreateMediaBuy(ctx context.Context, tenant models.Tenant, principalID string, req CreateMediaBuyRequest, dryRun bool) (schema.Result[CreateMediaBuyResponse], error) {
	startTime, endTime, err := e.validateEnvelope(req)
	if err != nil {
		return errResult[CreateMediaBuyResponse](err), nil
	}

	products, err := e.catalog.GetProducts(ctx, tenant.TenantID, "", catalog.Filters{})
	if err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}

	type resolvedPackage struct {
		req      PackageRequest
		product  models.Product
		pricing  models.PricingOption
		amount   float64
		currency string
	}

	currency := req.CampaignCurrency
	resolved := make([]resolvedPackage, 0, len(req.Packages))
	for _, pkgReq := range req.Packages {
		product, ok := byID[pkgReq.ProductID]
		if !ok {
			return errResult[CreateMediaBuyResponse](apperr.NotFound("product %s not found", pkgReq.ProductID)), nil
		}

		amount, budgetCurrency, err := pkgReq.Budget.Extract(currency)
		if err != nil {
			return errResult[CreateMediaBuyResponse](apperr.Validation("package %s: %v", pkgReq.ProductID, err)), nil
		}
		if err := schema.ValidateCurrencyAmount(amount); err != nil {
			return errResult[CreateMediaBuyResponse](apperr.Validation("package %s budget: %v", pkgReq.ProductID, err)), nil
		}
		if currency == "" {
			currency = budgetCurrency
		}

		opt, err := schema.SelectPricing(product, pkgReq.PricingOptionID, pkgReq.PricingModel, pkgReq.BidPrice, amount, currency)
		if err != nil {
			return errResult[CreateMediaBuyResponse](err), nil
		}
		if currency == "" {
			currency = opt.Currency
		}

		resolved = append(resolved, resolvedPackage{req: pkgReq, product: product, pricing: opt, amount: amount, currency: currency})
	}

	for _, r := range resolved {
		for _, creativeID := range r.req.CreativeIDs {
			creatives, err := e.creatives.ListCreatives(ctx, tenant.TenantID, principalID)
			if err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
			found := false
			for _, c := range creatives {
				if c.CreativeID != creativeID {
					continue
				}
				found = true
				if err := e.creatives.Validate(ctx, tenant.TenantID, c); err != nil {
					return errResult[CreateMediaBuyResponse](err), nil
				}
			}
			if !found {
				return errResult[CreateMediaBuyResponse](apperr.NotFound("creative %s not found", creativeID)), nil
			}
		}
	}

	mediaBuyID := GenerateMediaBuyID(req.BuyerRef, req.PONumber)

	adp, err := e.resolver(tenant.TenantID, tenant.AdServer)
	if err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	packages := make([]models.MediaPackage, 0, len(resolved))
	for i, r := range resolved {
		packages = append(packages, models.MediaPackage{
			MediaBuyID:      mediaBuyID,
			PackageID:       fmt.Sprintf("%s-pkg-%d", mediaBuyID, i+1),
			ProductID:       r.product.ProductID,
			BuyerRef:        r.req.BuyerRef,
			PricingOptionID: r.pricing.PricingOptionID,
			Budget:          r.amount,
			Currency:        r.currency,
			BidPrice:        r.req.BidPrice,
			Pacing:          r.req.Pacing,
		})
	}

	rawRequest, err := json.Marshal(req)
	if err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, fmt.Errorf("marshal raw request: %w", err)
	}

	mediaBuy := models.MediaBuy{
		MediaBuyID:  mediaBuyID,
		BuyerRef:    req.BuyerRef,
		PrincipalID: principalID,
		TenantID:    tenant.TenantID,
		StartTime:   req.StartTime,
		EndTime:     endTime,
		RawRequest:  rawRequest,
	}
	result, err := e.dispatcher.CreateMediaBuy(ctx, adp, adapter.CreateRequest{
		MediaBuy: mediaBuy,
		Packages: packages,
		Dispatch: adapter.DispatchOptions{DryRun: dryRun},
	})
	if err != nil {
		if appErr, ok := apperr.As(err); ok {
			return errResult[CreateMediaBuyResponse](appErr), nil
		}
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	status := e.initialStatus(result, startTime, endTime)
	mediaBuy.Status = status

	if err := e.store.InsertMediaBuy(ctx, mediaBuy); err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	responsePackages := make([]PackageResponse, 0, len(packages))
	for i, pkg := range packages {
		cfg, err := WritePricing(resolved[i].pricing, pkg.BidPrice, pkg.Budget, pkg.Currency, pkg.Pacing)
		if err != nil {
			return schema.Result[CreateMediaBuyResponse]{}, err
		}
		pkg.PackageConfig = cfg
		if err := e.store.InsertMediaPackage(ctx, tenant.TenantID, pkg); err != nil {
			return schema.Result[CreateMediaBuyResponse]{}, err
		}

		creativeIDs := resolved[i].req.CreativeIDs
		for _, creativeID := range creativeIDs {
			assignment := models.CreativeAssignment{
				MediaBuyID: mediaBuyID,
				PackageID:  pkg.PackageID,
				CreativeID: creativeID,
				Weight:     100,
			}
			if err := e.store.InsertCreativeAssignment(ctx, tenant.TenantID, assignment); err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
		}
		responsePackages = append(responsePackages, PackageResponse{PackageID: pkg.PackageID, CreativeIDs: creativeIDs})
	}

	step := models.WorkflowStep{
		StepID:    uuid.New().String(),
		ContextID: uuid.New().String(),
		TenantID:  tenant.TenantID,
		ToolName:  "create_media_buy",
		StepType:  "create",
		Status:    models.WorkflowStepStatusCompleted,
		Owner:     principalID,
	}
	if result.RequiresApproval {
		step.Status = models.WorkflowStepStatusRequiresApproval
		mediaBuy.Status = models.MediaBuyStatusPendingActivation
		if err := e.store.UpdateMediaBuyStatus(ctx, tenant.TenantID, mediaBuyID, mediaBuy.Status); err != nil {
			return schema.Result[CreateMediaBuyResponse]{}, err
		}
	}
	mapping := &models.ObjectWorkflowMapping{StepID: step.StepID, ObjectType: "media_buy", ObjectID: mediaBuyID}
	if err := e.store.InsertWorkflowStep(ctx, step, mapping); err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	return schema.Ok(CreateMediaBuyResponse{
		MediaBuyID: mediaBuyID,
		BuyerRef:   req.BuyerRef,
		Packages:   responsePackages,
	}), nil
}

// UpdateMediaBuy forwards the update to the adapter and applies it to the
// local record only once the adapter confirms success: start_time/end_time,
// a top-level budget, and per-package budget deltas are all folded into the
// state handed to the adapter so it dispatches against the
// requested-after-update shape, then persisted verbatim on activation. The
// top-level paused flag moves the status into or out of paused; per-package
// paused flags are not applied.
func (e *Engine) UpdateMediaBuy(ctx context.Context, tenant models.Tenant, req UpdateMediaBuyRequest, dryRun bool) (schema.Result[CreateMediaBuyResponse], error) {
	if req.MediaBuyID == "" && req.BuyerRef == "" {
		return errResult[CreateMediaBuyResponse](apperr.InvalidRequest("update_media_buy requires media_buy_id or buyer_ref")), nil
	}

	var existing *models.MediaBuy
	var err error
	ref := req.MediaBuyID
	if ref != "" {
		existing, err = e.store.LoadMediaBuy(ctx, tenant.TenantID, ref)
	} else {
		ref = req.BuyerRef
		var buys []models.MediaBuy
		buys, err = e.store.LoadMediaBuysByTenant(ctx, tenant.TenantID, nil)
		for i := range buys {
			if buys[i].BuyerRef == ref {
				existing = &buys[i]
				break
			}
		}
	}
	if err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}
	if existing == nil {
		return errResult[CreateMediaBuyResponse](apperr.NotFound("media buy %s not found", ref)), nil
	}

	packages, err := e.store.LoadMediaPackages(ctx, tenant.TenantID, existing.MediaBuyID)
	if err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	updated := *existing
	scheduleChanged := false
	if req.StartTime != "" && req.StartTime != updated.StartTime {
		if req.StartTime != models.AsapStartTime {
			if _, err := schema.ParseTimezoneAware("start_time", req.StartTime); err != nil {
				return errResult[CreateMediaBuyResponse](err), nil
			}
		}
		updated.StartTime = req.StartTime
		scheduleChanged = true
	}
	if req.EndTime != "" {
		endTime, err := schema.ParseTimezoneAware("end_time", req.EndTime)
		if err != nil {
			return errResult[CreateMediaBuyResponse](err), nil
		}
		updated.EndTime = endTime
		scheduleChanged = true
	}
	if !updated.IsAsapStart() && !updated.EndTime.IsZero() {
		startTime, err := schema.ParseTimezoneAware("start_time", updated.StartTime)
		if err == nil && !updated.EndTime.After(startTime) {
			return errResult[CreateMediaBuyResponse](apperr.Validation("end_time must be strictly after start_time")), nil
		}
	}

	updatedPackages := make([]models.MediaPackage, len(packages))
	copy(updatedPackages, packages)
	changedPackages := make(map[int]bool, len(updatedPackages))

	if req.Budget != nil {
		if len(updatedPackages) != 1 {
			return errResult[CreateMediaBuyResponse](apperr.Validation("a top-level budget update requires a single-package media buy; use per-package updates instead")), nil
		}
		if err := applyPackageBudget(&updatedPackages[0], *req.Budget); err != nil {
			return errResult[CreateMediaBuyResponse](err), nil
		}
		changedPackages[0] = true
	}

	byID := make(map[string]int, len(updatedPackages))
	for i, pkg := range updatedPackages {
		byID[pkg.PackageID] = i
	}
	for _, pu := range req.PackageUpdates {
		idx, ok := byID[pu.PackageID]
		if !ok {
			return errResult[CreateMediaBuyResponse](apperr.NotFound("package %s not found on media buy %s", pu.PackageID, existing.MediaBuyID)), nil
		}
		if pu.Budget != nil {
			if err := applyPackageBudget(&updatedPackages[idx], *pu.Budget); err != nil {
				return errResult[CreateMediaBuyResponse](err), nil
			}
			changedPackages[idx] = true
		}
	}

	adp, err := e.resolver(tenant.TenantID, tenant.AdServer)
	if err != nil {
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	result, err := e.dispatcher.UpdateMediaBuy(ctx, adp, adapter.UpdateRequest{
		MediaBuy: updated,
		Packages: updatedPackages,
		Dispatch: adapter.DispatchOptions{DryRun: dryRun},
	})
	if err != nil {
		if appErr, ok := apperr.As(err); ok {
			return errResult[CreateMediaBuyResponse](appErr), nil
		}
		return schema.Result[CreateMediaBuyResponse]{}, err
	}

	// The local record is updated only after the adapter confirms success;
	// a failed or dry-run call leaves the persisted state untouched.
	if !dryRun && result.Activated {
		if scheduleChanged {
			if err := e.store.UpdateMediaBuySchedule(ctx, tenant.TenantID, existing.MediaBuyID, updated.StartTime, updated.EndTime); err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
		}

		for idx := range updatedPackages {
			if !changedPackages[idx] {
				continue
			}
			pkg := updatedPackages[idx]
			cfg, err := UpdatePricingConfig(pkg.PackageConfig, pkg.BidPrice, pkg.Budget, pkg.Currency, pkg.Pacing)
			if err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
			pkg.PackageConfig = cfg
			if err := e.store.InsertMediaPackage(ctx, tenant.TenantID, pkg); err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
		}

		switch {
		case req.Paused != nil && *req.Paused:
			if err := e.store.UpdateMediaBuyStatus(ctx, tenant.TenantID, existing.MediaBuyID, models.MediaBuyStatusPaused); err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
		case req.Paused != nil && !*req.Paused && existing.Status == models.MediaBuyStatusPaused:
			status, err := e.unpausedStatus(updated)
			if err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
			if err := e.store.UpdateMediaBuyStatus(ctx, tenant.TenantID, existing.MediaBuyID, status); err != nil {
				return schema.Result[CreateMediaBuyResponse]{}, err
			}
		}
	}

	responsePackages := make([]PackageResponse, 0, len(updatedPackages))
	for _, pkg := range updatedPackages {
		responsePackages = append(responsePackages, PackageResponse{PackageID: pkg.PackageID})
	}

	return schema.Ok(CreateMediaBuyResponse{
		MediaBuyID: existing.MediaBuyID,
		BuyerRef:   existing.BuyerRef,
		Packages:   responsePackages,
	}), nil
}

// applyPackageBudget extracts a requested budget update and writes its
// amount/currency onto pkg, inheriting pkg's existing currency when the
// update carries a scalar budget with no currency of its own.
func applyPackageBudget(pkg *models.MediaPackage, budget schema.Budget) error {
	amount, currency, err := budget.Extract(pkg.Currency)
	if err != nil {
		return apperr.Validation("package %s budget: %v", pkg.PackageID, err)
	}
	if err := schema.ValidateCurrencyAmount(amount); err != nil {
		return apperr.Validation("package %s budget: %v", pkg.PackageID, err)
	}
	pkg.Budget = amount
	if currency != "" {
		pkg.Currency = currency
	}
	return nil
}

// unpausedStatus recomputes the status a previously paused media buy
// should return to: active if its start time has already arrived (or it
// starts "asap"), scheduled otherwise.
func (e *Engine) unpausedStatus(mediaBuy models.MediaBuy) (string, error) {
	if mediaBuy.IsAsapStart() {
		return models.MediaBuyStatusActive, nil
	}
	startTime, err := schema.ParseTimezoneAware("start_time", mediaBuy.StartTime)
	if err != nil {
		return "", err
	}
	if !startTime.After(time.Now()) {
		return models.MediaBuyStatusActive, nil
	}
	return models.MediaBuyStatusScheduled, nil
}

func (e *Engine) validateEnvelope(req CreateMediaBuyRequest) (startTime, endTime time.Time, err error) {
	if len(req.Packages) == 0 {
		return startTime, endTime, apperr.Validation("create_media_buy requires at least one package")
	}

	if req.StartTime != models.AsapStartTime {
		startTime, err = schema.ParseTimezoneAware("start_time", req.StartTime)
		if err != nil {
			return startTime, endTime, err
		}
		if startTime.Before(time.Now().Add(-1 * time.Minute)) {
			return startTime, endTime, apperr.Validation("start_time must not be in the past")
		}
	}

	endTime, err = schema.ParseTimezoneAware("end_time", req.EndTime)
	if err != nil {
		return startTime, endTime, err
	}
	if !startTime.IsZero() && !endTime.After(startTime) {
		return startTime, endTime, apperr.Validation("end_time must be strictly after start_time")
	}

	return startTime, endTime, nil
}

func (e *Engine) initialStatus(result adapter.Result, startTime, endTime time.Time) string {
	if result.RequiresApproval {
		return models.MediaBuyStatusPendingActivation
	}
	if startTime.IsZero() || !startTime.After(time.Now()) {
		return models.MediaBuyStatusActive
	}
	return models.MediaBuyStatusScheduled
}

// GenerateMediaBuyID derives a media_buy_id from a naming template that
// incorporates po_number when present, falling back to a fresh UUID
// component either way so ids never collide across requests.
func GenerateMediaBuyID(buyerRef, poNumber string) string {
	suffix := uuid.New().String()[:8]
	if poNumber != "" {
		return fmt.Sprintf("mb-%s-%s", poNumber, suffix)
	}
	return fmt.Sprintf("mb-%s", suffix)
}

func errResult[T any](err error) schema.Result[T] {
	if appErr, ok := apperr.As(err); ok {
		return schema.ErrDetails[T](appErr.Code, appErr.Message, appErr.Details)
	}
	return schema.Err[T]("unavailable", err.Error())
}
