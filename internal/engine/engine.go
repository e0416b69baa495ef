// Package engine evaluates an ordered list of campaigns against a cart.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-promo/internal/campaign"
	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/pricing"
	"github.com/noah-isme/toko-promo/internal/qualifier"
)

// Outcome is what happened to a campaign during an evaluation.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeReverted Outcome = "reverted"
	OutcomeError    Outcome = "error"
)

// CampaignReport records one campaign's run.
type CampaignReport struct {
	Campaign      string        `json:"campaign"`
	Kind          string        `json:"kind"`
	Outcome       Outcome       `json:"outcome"`
	Items         int           `json:"items"`
	DiscountCents pricing.Money `json:"discountCents"`
}

// Report summarises an evaluation.
type Report struct {
	Campaigns        []CampaignReport `json:"campaigns"`
	Summary          pricing.Summary  `json:"summary"`
	CodeRejected     bool             `json:"codeRejected"`
	RejectionMessage string           `json:"rejectionMessage,omitempty"`
}

// Engine runs campaigns in their configured order. Every qualifying campaign
// runs and later campaigns see the prices and lines left by earlier ones.
// An Engine holds no per-cart state and may be shared between goroutines as
// long as each cart is evaluated by one goroutine.
type Engine struct {
	campaigns []campaign.Campaign
	logger    zerolog.Logger
}

// New builds an engine over campaigns.
func New(campaigns []campaign.Campaign, logger zerolog.Logger) *Engine {
	return &Engine{campaigns: append([]campaign.Campaign(nil), campaigns...), logger: logger}
}

// Campaigns returns the configured campaigns in evaluation order.
func (e *Engine) Campaigns() []campaign.Campaign {
	return append([]campaign.Campaign(nil), e.campaigns...)
}

// Evaluate mutates c in place. A campaign with a post-condition runs inside a
// snapshot and is rolled back when the condition fails afterwards. A
// campaign error aborts the evaluation; the cart must then be discarded.
func (e *Engine) Evaluate(ctx context.Context, c *cart.Cart) (Report, error) {
	_, span := otel.Tracer("engine.Engine").Start(ctx, "Engine.Evaluate")
	defer span.End()

	start := time.Now()
	result := "error"
	defer func() {
		if obs.EvaluationLatency != nil {
			obs.EvaluationLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	span.SetAttributes(
		attribute.Int("cart.lines", len(c.LineItems)),
		attribute.Int("promo.campaigns", len(e.campaigns)),
	)

	report := Report{Campaigns: make([]CampaignReport, 0, len(e.campaigns))}
	for _, camp := range e.campaigns {
		entry, err := e.run(camp, c)
		report.Campaigns = append(report.Campaigns, entry)
		record(entry)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "campaign failed")
			e.logger.Error().Err(err).Str("campaign", entry.Campaign).Msg("promo_campaign_failed")
			return report, fmt.Errorf("campaign %q: %w", entry.Campaign, err)
		}
		e.logger.Debug().
			Str("campaign", entry.Campaign).
			Str("outcome", string(entry.Outcome)).
			Int("items", entry.Items).
			Int64("discount_cents", entry.DiscountCents).
			Msg("promo_campaign")
	}

	result = "ok"
	report.Summary = c.Summary()
	report.CodeRejected = c.DiscountCode.Rejected()
	report.RejectionMessage = c.DiscountCode.RejectionMessage()

	span.SetAttributes(
		attribute.Int64("promo.discount_cents", report.Summary.Discount),
		attribute.Bool("promo.code_rejected", report.CodeRejected),
	)
	e.logger.Info().
		Int("lines", len(c.LineItems)).
		Int64("subtotal_cents", report.Summary.Subtotal).
		Int64("discount_cents", report.Summary.Discount).
		Int64("total_cents", report.Summary.Total).
		Bool("code_rejected", report.CodeRejected).
		Msg("promo_evaluation")
	return report, nil
}

func (e *Engine) run(camp campaign.Campaign, c *cart.Cart) (CampaignReport, error) {
	entry := CampaignReport{Campaign: camp.Name(), Kind: camp.Kind(), Outcome: OutcomeSkipped}

	post := camp.PostCondition()
	var snap cart.Snapshot
	if post != nil {
		snap = c.Snapshot()
	}
	before := c.Subtotal()

	res, err := camp.Run(c)
	if err != nil {
		entry.Outcome = OutcomeError
		return entry, err
	}
	if !res.Qualified {
		return entry, nil
	}
	if post != nil && !qualifier.Matches(post, c, nil) {
		c.Restore(snap)
		entry.Outcome = OutcomeReverted
		return entry, nil
	}
	entry.Outcome = OutcomeApplied
	entry.Items = res.Items
	entry.DiscountCents = before - c.Subtotal()
	return entry, nil
}

func record(entry CampaignReport) {
	if obs.CampaignOutcomeTotal != nil {
		obs.CampaignOutcomeTotal.WithLabelValues(entry.Campaign, string(entry.Outcome)).Inc()
	}
	if obs.CampaignDiscountCents != nil && entry.DiscountCents > 0 {
		obs.CampaignDiscountCents.WithLabelValues(entry.Campaign).Add(float64(entry.DiscountCents))
	}
}
