package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"vdflow/internal/analyzer"
	"vdflow/internal/provider"
	"vdflow/internal/report"
	"vdflow/internal/scanner"
	"vdflow/internal/storage"
	"vdflow/internal/symbols"
)

var validate = validator.New()

const maxHistory = 100

// WeightsInput carries optional weight overrides; absent weights take the reference values
type WeightsInput struct {
	S1 *float64 `json:"s1" default:"0.15" validate:"required,gte=0,lte=1"`
	S2 *float64 `json:"s2" default:"0.10" validate:"required,gte=0,lte=1"`
	S3 *float64 `json:"s3" default:"0.05" validate:"required,gte=0,lte=1"`
	S4 *float64 `json:"s4" default:"0.05" validate:"required,gte=0,lte=1"`
	S5 *float64 `json:"s5" default:"0.03" validate:"required,gte=0,lte=1"`
	S6 *float64 `json:"s6" default:"0.25" validate:"required,gte=0,lte=1"`
	S7 *float64 `json:"s7" default:"0.02" validate:"required,gte=0,lte=1"`
	S8 *float64 `json:"s8" default:"0.35" validate:"required,gte=0,lte=1"`
}

func (w WeightsInput) weights() analyzer.Weights {
	return analyzer.Weights{
		S1: *w.S1, S2: *w.S2, S3: *w.S3, S4: *w.S4,
		S5: *w.S5, S6: *w.S6, S7: *w.S7, S8: *w.S8,
	}
}

// RescoreRequest is the body of POST /api/vdf/:ticker/rescore
type RescoreRequest struct {
	Weights WeightsInput `json:"weights"`
}

// RescoreResponse returns zones re-ranked under the supplied weights
type RescoreResponse struct {
	Ticker      string                      `json:"ticker"`
	RunID       string                      `json:"run_id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Weights     analyzer.Weights            `json:"weights"`
	Zones       []analyzer.AccumulationZone `json:"zones"`
}

// HistoryResponse lists stored snapshots, newest first
type HistoryResponse struct {
	Ticker    string             `json:"ticker"`
	Count     int                `json:"count"`
	Snapshots []storage.Snapshot `json:"snapshots"`
}

// handleHealth 헬스 체크
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAnalysis 종목 VDF 분석 결과 (캐시 우선, ?refresh=true 로 강제 재계산)
func (s *Server) handleAnalysis(c echo.Context) error {
	ticker, err := tickerParam(c)
	if err != nil {
		return err
	}
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
	format := c.QueryParam("format")
	if format != "" && format != "json" && format != "markdown" {
		return echo.NewHTTPError(http.StatusBadRequest, "format must be json or markdown")
	}

	if refresh && !s.refresh.Allow(ticker) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "refresh limit reached for "+ticker)
	}

	snap, err := s.analyzer.Analyze(c.Request().Context(), ticker, refresh)
	if err != nil {
		return s.analysisError(ticker, err)
	}

	if format == "markdown" {
		md, err := report.Markdown(snap, s.opts.Precision)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
	}

	snap.Result = snap.Result.Rounded(s.opts.Precision)
	return c.JSON(http.StatusOK, snap)
}

// handleHistory 저장된 스냅샷 이력
func (s *Server) handleHistory(c echo.Context) error {
	ticker, err := tickerParam(c)
	if err != nil {
		return err
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxHistory)
	}

	list, err := s.store.History(c.Request().Context(), ticker, limit)
	if err != nil {
		return s.analysisError(ticker, err)
	}
	if len(list) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no snapshots for "+ticker)
	}
	for i := range list {
		list[i].Result = list[i].Result.Rounded(s.opts.Precision)
	}
	return c.JSON(http.StatusOK, HistoryResponse{Ticker: ticker, Count: len(list), Snapshots: list})
}

// handleRescore re-weights the stored components of the latest zones.
// The window scorer is never re-run.
func (s *Server) handleRescore(c echo.Context) error {
	ticker, err := tickerParam(c)
	if err != nil {
		return err
	}

	var req RescoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := defaults.Set(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.StructCtx(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	w := req.Weights.weights()
	if err := w.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snap, err := s.analyzer.Analyze(c.Request().Context(), ticker, false)
	if err != nil {
		return s.analysisError(ticker, err)
	}

	zones, err := analyzer.RescoreZones(snap.Result.Zones, w)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rounded := analyzer.AnalysisResult{Zones: zones}.Rounded(s.opts.Precision)

	return c.JSON(http.StatusOK, RescoreResponse{
		Ticker:      snap.Ticker,
		RunID:       snap.RunID.String(),
		GeneratedAt: snap.GeneratedAt,
		Weights:     w,
		Zones:       rounded.Zones,
	})
}

func tickerParam(c echo.Context) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if !symbols.Valid(ticker) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid ticker")
	}
	return ticker, nil
}

// analysisError maps domain errors to HTTP status codes
func (s *Server) analysisError(ticker string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no analysis for "+ticker)
	case errors.Is(err, scanner.ErrNoData):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "analysis timed out")
	}

	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("provider failure")
		return echo.NewHTTPError(http.StatusBadGateway, "market data unavailable")
	}

	s.logger.Error().Err(err).Str("ticker", ticker).Msg("analysis failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "lte":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		default:
			msgs = append(msgs, field+" failed "+fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}
