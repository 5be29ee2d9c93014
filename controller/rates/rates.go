package rates

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kylycht/fxrates/model"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Converter describes the conversion operations the handler exposes
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, bool, error)
	RefreshRates(ctx context.Context) (int, error)
	BestRate(ctx context.Context, base, target string) (decimal.Decimal, bool)
	HistoricalRates(ctx context.Context, base, target string, from, to time.Time) ([]model.RateObservation, error)
}

// TrendAnalyzer describes the trend operations the handler exposes
type TrendAnalyzer interface {
	CalculateTrend(ctx context.Context, base, target, period string) (decimal.Decimal, error)
	IsValidPeriod(period string) bool
}

func New(converter Converter, trend TrendAnalyzer) *Handler {
	return &Handler{converter: converter, trend: trend}
}

type Handler struct {
	converter Converter
	trend     TrendAnalyzer
}

// Convert godoc
//
//	@Summary		Convert an amount between two currencies
//	@Description	convert using the latest known aggregated rate
//	@Tags			rates
//	@Param			from	query	string	true	"From currency" example(USD)
//	@Param			to		query	string	true	"To currency"   example(EUR)
//	@Param			amount	query	number	false	"Amount to convert" example(100)
//	@Success		200	{object}	map[string]string
//	@Failure		404	{string}	string "no rate known for pair"
//	@Router			/convert [get]
func (h *Handler) Convert(ctx *fiber.Ctx) error {
	from := ctx.Query("from")
	to := ctx.Query("to")
	amount := decimal.NewFromFloat(ctx.QueryFloat("amount", 1))

	result, found, err := h.converter.Convert(ctx.Context(), amount, from, to)
	if err != nil {
		log.Error().Err(err).Str("from", from).Str("to", to).Msg("conversion failed")
		return ctx.Status(http.StatusInternalServerError).SendString(err.Error())
	}
	if !found {
		return ctx.Status(http.StatusNotFound).SendString("no rate known for pair " + from + "/" + to)
	}

	return ctx.JSON(fiber.Map{
		"from":   from,
		"to":     to,
		"amount": amount.String(),
		"result": result.String(),
	})
}

// BestRate godoc
//
//	@Summary		Best current rate across all sources
//	@Description	queries every source on demand, bypassing cache and store
//	@Tags			rates
//	@Param			base	query	string	true	"Base currency"   example(USD)
//	@Param			target	query	string	true	"Target currency" example(EUR)
//	@Success		200	{object}	map[string]string
//	@Failure		404	{string}	string "no source reported a rate"
//	@Router			/rates/best [get]
func (h *Handler) BestRate(ctx *fiber.Ctx) error {
	base := ctx.Query("base")
	target := ctx.Query("target")

	rate, found := h.converter.BestRate(ctx.Context(), base, target)
	if !found {
		return ctx.Status(http.StatusNotFound).SendString("no source reported a rate for " + base + "/" + target)
	}

	return ctx.JSON(fiber.Map{
		"base":   base,
		"target": target,
		"rate":   rate.String(),
	})
}

// History godoc
//
//	@Summary		Persisted rate observations for a pair
//	@Tags			rates
//	@Param			base	query	string	true	"Base currency"   example(USD)
//	@Param			target	query	string	true	"Target currency" example(EUR)
//	@Param			from	query	string	true	"Window start, RFC3339"
//	@Param			to		query	string	true	"Window end, RFC3339"
//	@Success		200	{array}		model.RateObservation
//	@Failure		400	{string}	string "invalid time bounds"
//	@Router			/rates/history [get]
func (h *Handler) History(ctx *fiber.Ctx) error {
	base := ctx.Query("base")
	target := ctx.Query("target")

	from, err := time.Parse(time.RFC3339, ctx.Query("from"))
	if err != nil {
		return ctx.Status(http.StatusBadRequest).SendString("invalid from: " + err.Error())
	}

	to, err := time.Parse(time.RFC3339, ctx.Query("to", time.Now().Format(time.RFC3339)))
	if err != nil {
		return ctx.Status(http.StatusBadRequest).SendString("invalid to: " + err.Error())
	}

	observations, err := h.converter.HistoricalRates(ctx.Context(), base, target, from, to)
	if err != nil {
		log.Error().Err(err).Str("base", base).Str("target", target).Msg("history query failed")
		return ctx.Status(http.StatusInternalServerError).SendString(err.Error())
	}

	if observations == nil {
		observations = []model.RateObservation{}
	}

	return ctx.JSON(observations)
}

// Trend godoc
//
//	@Summary		Percentage change of a pair over a period
//	@Description	period grammar is <number><H|D|M|Y>, hours must be >= 12
//	@Tags			rates
//	@Param			base	query	string	true	"Base currency"    example(USD)
//	@Param			target	query	string	true	"Target currency"  example(EUR)
//	@Param			period	query	string	true	"Trend period"     example(7D)
//	@Success		200	{object}	map[string]string
//	@Failure		400	{string}	string "invalid period"
//	@Failure		422	{string}	string "insufficient history"
//	@Router			/rates/trend [get]
func (h *Handler) Trend(ctx *fiber.Ctx) error {
	base := ctx.Query("base")
	target := ctx.Query("target")
	period := ctx.Query("period")

	trend, err := h.trend.CalculateTrend(ctx.Context(), base, target, period)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrInvalidPeriod), errors.Is(err, model.ErrPeriodBelowMinimum):
		return ctx.Status(http.StatusBadRequest).SendString(err.Error())
	case errors.Is(err, model.ErrInsufficientHistory):
		return ctx.Status(http.StatusUnprocessableEntity).SendString(err.Error())
	default:
		log.Error().Err(err).Str("base", base).Str("target", target).Msg("trend calculation failed")
		return ctx.Status(http.StatusInternalServerError).SendString(err.Error())
	}

	direction := "appreciation"
	if trend.IsNegative() {
		direction = "depreciation"
	}

	return ctx.JSON(fiber.Map{
		"base":      base,
		"target":    target,
		"period":    period,
		"trend":     trend.String(),
		"direction": direction,
	})
}

// Refresh godoc
//
//	@Summary		Run a full refresh cycle now
//	@Description	aggregate, persist and repopulate the cache
//	@Tags			rates
//	@Success		200	{object}	map[string]int
//	@Failure		502	{string}	string "refresh failed"
//	@Router			/rates/refresh [post]
func (h *Handler) Refresh(ctx *fiber.Ctx) error {
	count, err := h.converter.RefreshRates(ctx.Context())
	if err != nil {
		log.Error().Err(err).Msg("refresh failed")
		return ctx.Status(http.StatusBadGateway).SendString(err.Error())
	}

	return ctx.JSON(fiber.Map{"observations": count})
}
