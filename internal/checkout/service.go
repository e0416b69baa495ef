// Package checkout exposes cart promotion evaluation to storefront checkouts.
package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-promo/internal/cache"
	"github.com/noah-isme/toko-promo/internal/campaign"
	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/common"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/engine"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/qualifier"
	"github.com/noah-isme/toko-promo/internal/resilience"
	"github.com/noah-isme/toko-promo/internal/selector"
)

// Result is the evaluated cart together with the campaign report.
type Result struct {
	Cart   cart.Output   `json:"cart"`
	Report engine.Report `json:"report"`
}

// CampaignInfo describes one configured campaign.
type CampaignInfo struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	PostCondition bool   `json:"postCondition"`
}

// FieldError is one failed validation rule on the cart payload.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Service evaluates carts against the configured campaigns, caching results
// per ruleset digest and payload.
type Service struct {
	Engine *engine.Engine
	Cache  *cache.Cache
	Digest string
	Logger zerolog.Logger
}

// Evaluate validates in, runs the engine over a fresh cart and renders the
// result. Errors are AppErrors ready for the HTTP layer.
func (s *Service) Evaluate(ctx context.Context, in cart.Input) (Result, error) {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "Service.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.Int("promo.line_items", len(in.LineItems)))

	key := s.cacheKey(in)
	if key != "" {
		var cached Result
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		switch {
		case errors.Is(err, resilience.ErrOpenCircuit):
			countCache("bypass")
		case err != nil:
			countCache("error")
			s.Logger.Warn().Err(err).Msg("promo_cache_read_failed")
		case hit:
			countCache("hit")
			span.SetAttributes(attribute.Bool("promo.cache_hit", true))
			return cached, nil
		default:
			countCache("miss")
		}
	}

	c, err := in.Build()
	if err != nil {
		return Result{}, validationError(err)
	}

	report, err := s.Engine.Evaluate(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isConfigError(err) {
			return Result{}, common.NewAppError(common.CodeRulesetMisconfigured, "promotion configuration is invalid", http.StatusInternalServerError, err)
		}
		return Result{}, common.NewAppError(common.CodeInternal, "evaluation failed", http.StatusInternalServerError, err)
	}

	result := Result{Cart: cart.View(c), Report: report}
	if key != "" {
		if err := s.Cache.SetJSON(ctx, key, result); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
			countCache("error")
			s.Logger.Warn().Err(err).Msg("promo_cache_write_failed")
		}
	}
	return result, nil
}

// Campaigns lists the configured campaigns in evaluation order.
func (s *Service) Campaigns() []CampaignInfo {
	campaigns := s.Engine.Campaigns()
	out := make([]CampaignInfo, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, CampaignInfo{Name: c.Name(), Kind: c.Kind(), PostCondition: c.PostCondition() != nil})
	}
	return out
}

func (s *Service) cacheKey(in cart.Input) string {
	if !s.Cache.Enabled() {
		return ""
	}
	key, err := cache.EvaluationKey(s.Digest, in)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("promo_cache_key_failed")
		return ""
	}
	return key
}

func countCache(result string) {
	if obs.EvaluationCacheTotal != nil {
		obs.EvaluationCacheTotal.WithLabelValues(result).Inc()
	}
}

func validationError(err error) error {
	appErr := common.NewAppError(common.CodeValidationFailed, "cart payload is invalid", http.StatusUnprocessableEntity, err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag()})
		}
		return appErr.WithDetails(details)
	}
	return appErr
}

// fieldPath trims the root type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func isConfigError(err error) bool {
	for _, target := range []error{
		campaign.ErrAmbiguousCode,
		campaign.ErrMissingDiscount,
		campaign.ErrInvalidCampaign,
		discount.ErrInvalidDiscount,
		qualifier.ErrInvalidComparison,
		qualifier.ErrMissingSelector,
		qualifier.ErrUnknownKind,
		selector.ErrUnknownKind,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
