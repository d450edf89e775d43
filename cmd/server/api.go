package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/marketfee/internal/calculator"
	"github.com/Simplici0/marketfee/internal/category"
	"github.com/Simplici0/marketfee/internal/httpx"
	"github.com/Simplici0/marketfee/internal/logging"
	"github.com/Simplici0/marketfee/internal/pricing"
	"github.com/Simplici0/marketfee/internal/savedconfig"
)

const (
	maxSearchLimit  = 200
	maxRequestBytes = 64 << 10
)

type scenarioResponse struct {
	Key              string  `json:"key"`
	Event            bool    `json:"event"`
	ShipOption2      bool    `json:"shipOption2"`
	Visible          bool    `json:"visible"`
	SuggestedPrice   float64 `json:"suggestedPrice,omitempty"`
	Unachievable     bool    `json:"unachievable,omitempty"`
	TransactionLabel string  `json:"transactionLabel"`

	SellPrice             float64 `json:"sellPrice"`
	TransactionFee        float64 `json:"transactionFee"`
	PaymentFee            float64 `json:"paymentFee"`
	ShippingFee           float64 `json:"shippingFee"`
	CashbackFee           float64 `json:"cashbackFee"`
	PreOrderFee           float64 `json:"preOrderFee"`
	PlatformFee           float64 `json:"platformFee"`
	OutputTax             float64 `json:"outputTax"`
	ProductInputTaxCredit float64 `json:"productInputTaxCredit"`
	FeeInputTaxCredit     float64 `json:"feeInputTaxCredit"`
	PayableTax            float64 `json:"payableTax"`
	AgentFee              float64 `json:"agentFee"`
	TotalDeduction        float64 `json:"totalDeduction"`
	Profit                float64 `json:"profit"`
	ProfitMarginPercent   float64 `json:"profitMarginPercent"`

	PlatformPercent  string `json:"platformPercent"`
	TaxPercent       string `json:"taxPercent"`
	DeductionPercent string `json:"deductionPercent"`
	Margin           string `json:"margin"`
}

type calculateResponse struct {
	Query       map[string]string  `json:"query"`
	CashOutCost float64            `json:"cashOutCost"`
	Scenarios   []scenarioResponse `json:"scenarios"`
}

type configRequest struct {
	Title string            `json:"title"`
	Data  map[string]string `json:"data"`
}

func newCalculateResponse(report calculator.Report) calculateResponse {
	resp := calculateResponse{
		Query:       firstValues(report.State.Query()),
		CashOutCost: report.CashOutCost,
		Scenarios:   make([]scenarioResponse, 0, len(report.Scenarios)),
	}
	for _, sr := range report.Scenarios {
		resp.Scenarios = append(resp.Scenarios, newScenarioResponse(sr))
	}
	return resp
}

func newScenarioResponse(sr calculator.ScenarioReport) scenarioResponse {
	res := sr.Result
	return scenarioResponse{
		Key:                   sr.Key,
		Event:                 sr.Event,
		ShipOption2:           sr.ShipOption2,
		Visible:               sr.Visible,
		SuggestedPrice:        sr.SuggestedPrice,
		Unachievable:          sr.Unachievable,
		TransactionLabel:      sr.TransactionLabel,
		SellPrice:             res.SellPrice,
		TransactionFee:        res.TransactionFee,
		PaymentFee:            res.PaymentFee,
		ShippingFee:           res.ShippingFee,
		CashbackFee:           res.CashbackFee,
		PreOrderFee:           res.PreOrderFee,
		PlatformFee:           res.PlatformFee,
		OutputTax:             res.OutputTax,
		ProductInputTaxCredit: res.ProductInputTaxCredit,
		FeeInputTaxCredit:     res.FeeInputTaxCredit,
		PayableTax:            res.PayableTax,
		AgentFee:              res.AgentFee,
		TotalDeduction:        res.TotalDeduction,
		Profit:                res.Profit,
		ProfitMarginPercent:   res.ProfitMarginPercent,
		PlatformPercent:       sr.PlatformPercent,
		TaxPercent:            sr.TaxPercent,
		DeductionPercent:      sr.DeductionPercent,
		Margin:                sr.Margin,
	}
}

func (s *server) handleAPICalculate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if raw := query.Get("tax"); raw != "" {
		if _, err := pricing.ParseTaxSetting(raw); err != nil {
			httpx.WriteError(r.Context(), w, httpx.BadRequest(err.Error()))
			return
		}
	}
	report := calculator.Recalculate(calculator.ParseQuery(query))
	httpx.WriteJSON(w, http.StatusOK, newCalculateResponse(report))
}

func (s *server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items, err := s.categories.Browse(r.Context(), category.SplitPath(query.Get("path")), isMall(query))
	if err != nil {
		s.writeLookupError(w, r, "browse categories", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleAPICategorySearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	term := strings.TrimSpace(query.Get("q"))
	if term == "" {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("q is required"))
		return
	}
	limit, err := parseLimit(query.Get("limit"), categorySearchLimit)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest(err.Error()))
		return
	}

	items, err := s.categories.Search(r.Context(), term, isMall(query), limit)
	if err != nil {
		s.writeLookupError(w, r, "search categories", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleAPICategorySelect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	path := category.SplitPath(query.Get("path"))
	if len(path) == 0 {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("path is required"))
		return
	}

	selection, err := s.categories.Select(r.Context(), path, isMall(query))
	if err != nil {
		s.writeLookupError(w, r, "select category", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, selection)
}

func (s *server) handleAPIConfigList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"), 0)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest(err.Error()))
		return
	}

	configs, err := s.configs.List(r.Context(), query.Get("q"), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("list saved configurations", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.Internal())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

func (s *server) handleAPIConfigCreate(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid JSON body"))
		return
	}

	values := url.Values{}
	for k, v := range req.Data {
		values.Set(k, v)
	}
	report := calculator.Recalculate(calculator.ParseQuery(values))

	cfg, err := s.configs.Save(r.Context(), savedconfig.DraftFromReport(report, req.Title))
	if err != nil {
		logging.FromContext(r.Context()).Error("save configuration", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.Internal())
		return
	}
	logging.FromContext(r.Context()).Info("configuration saved", zap.String("config_id", cfg.ID))
	httpx.WriteJSON(w, http.StatusCreated, cfg)
}

func (s *server) handleAPIConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeConfigError(w, r, "load configuration", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"config": cfg, "url": cfg.URL()})
}

func (s *server) handleAPIConfigDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.configs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeConfigError(w, r, "delete configuration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeLookupError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, category.ErrNotFound) {
		httpx.WriteError(r.Context(), w, httpx.NotFound("category not found"))
		return
	}
	logging.FromContext(r.Context()).Error(op, zap.Error(err))
	httpx.WriteError(r.Context(), w, httpx.Internal())
}

func (s *server) writeConfigError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, savedconfig.ErrNotFound) {
		httpx.WriteError(r.Context(), w, httpx.NotFound("configuration not found"))
		return
	}
	logging.FromContext(r.Context()).Error(op, zap.Error(err))
	httpx.WriteError(r.Context(), w, httpx.Internal())
}

func isMall(query url.Values) bool {
	return query.Get("seller") == string(calculator.SellerMall)
}

func parseLimit(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxSearchLimit {
		return 0, errors.New("limit must be between 1 and 200")
	}
	return limit, nil
}
