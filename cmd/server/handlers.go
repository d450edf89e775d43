package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/marketfee/internal/calculator"
	"github.com/Simplici0/marketfee/internal/category"
	"github.com/Simplici0/marketfee/internal/format"
	"github.com/Simplici0/marketfee/internal/logging"
	"github.com/Simplici0/marketfee/internal/savedconfig"
)

const (
	sidebarConfigLimit  = 50
	categorySearchLimit = 50
)

type baseViewData struct {
	ErrorMessage string
}

type calculatorViewData struct {
	baseViewData
	Report        calculator.Report
	Inputs        map[string]string
	CategoriesURL string
	SaveState     string
	DefaultTitle  string
	Configs       []savedconfig.Config
	ConfigSearch  string
}

type breadcrumb struct {
	Name string
	Link string
}

type categoryLink struct {
	Name        string
	FullPath    string
	Fee         string
	HasChildren bool
	Link        string
}

type categoriesViewData struct {
	baseViewData
	Return      map[string]string
	Search      string
	HomeLink    string
	BackLink    string
	Breadcrumbs []breadcrumb
	Items       []categoryLink
}

func (s *server) handleCalculator(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := calculator.ParseQuery(query)
	report := calculator.Recalculate(state)
	stateQuery := state.Query()

	search := strings.TrimSpace(query.Get("q"))
	configs, err := s.configs.List(r.Context(), search, sidebarConfigLimit)
	if err != nil {
		logging.FromContext(r.Context()).Error("list saved configurations", zap.Error(err))
		http.Error(w, "failed to load saved configurations", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, r, http.StatusOK, "calculator.html", calculatorViewData{
		Report:        report,
		Inputs:        firstValues(stateQuery),
		CategoriesURL: "/categories?" + stateQuery.Encode(),
		SaveState:     stateQuery.Encode(),
		DefaultTitle:  savedconfig.Summary(state.Cost, report.HeadlinePrice()),
		Configs:       configs,
		ConfigSearch:  search,
	})
}

// handleCategories browses the category tree, or searches its leaves when q is set.
// Every link carries the calculator state so a selection returns to it.
func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	returnQuery := calculatorQuery(query)
	mall := calculator.ParseQuery(returnQuery).Mall()

	data := categoriesViewData{
		Return:   firstValues(returnQuery),
		Search:   strings.TrimSpace(query.Get("q")),
		HomeLink: "/categories?" + returnQuery.Encode(),
		BackLink: "/?" + returnQuery.Encode(),
	}

	var (
		items []category.Item
		err   error
	)
	if data.Search != "" {
		items, err = s.categories.Search(r.Context(), data.Search, mall, categorySearchLimit)
	} else {
		path := category.SplitPath(query.Get("path"))
		data.Breadcrumbs = breadcrumbs(path, returnQuery)
		items, err = s.categories.Browse(r.Context(), path, mall)
	}

	switch {
	case errors.Is(err, category.ErrNotFound):
		data.ErrorMessage = "找不到此類別"
		s.renderTemplate(w, r, http.StatusNotFound, "categories.html", data)
		return
	case err != nil:
		logging.FromContext(r.Context()).Error("load categories", zap.Error(err))
		http.Error(w, "failed to load categories", http.StatusInternalServerError)
		return
	}

	for _, item := range items {
		link := categoryLink{
			Name:        item.Name,
			Fee:         item.Fee,
			HasChildren: item.HasChildren,
			Link:        categoryURL("/categories", item.FullPath, returnQuery),
		}
		if !item.HasChildren {
			link.Link = categoryURL("/categories/select", item.FullPath, returnQuery)
		}
		if data.Search != "" {
			link.FullPath = item.FullPath
		}
		data.Items = append(data.Items, link)
	}

	s.renderTemplate(w, r, http.StatusOK, "categories.html", data)
}

// handleCategorySelect applies a leaf's fee rate to the calculator and returns to it.
func (s *server) handleCategorySelect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	returnQuery := calculatorQuery(query)
	mall := calculator.ParseQuery(returnQuery).Mall()

	selection, err := s.categories.Select(r.Context(), category.SplitPath(query.Get("path")), mall)
	if errors.Is(err, category.ErrNotFound) {
		http.Error(w, "category not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("select category", zap.Error(err))
		http.Error(w, "failed to select category", http.StatusInternalServerError)
		return
	}

	returnQuery.Set("fee", format.Number(selection.FeePercent))
	http.Redirect(w, r, "/?"+returnQuery.Encode(), http.StatusSeeOther)
}

func (s *server) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	values, err := url.ParseQuery(r.PostFormValue("state"))
	if err != nil {
		http.Error(w, "invalid calculator state", http.StatusBadRequest)
		return
	}

	report := calculator.Recalculate(calculator.ParseQuery(values))
	cfg, err := s.configs.Save(r.Context(), savedconfig.DraftFromReport(report, r.PostFormValue("title")))
	if err != nil {
		logging.FromContext(r.Context()).Error("save configuration", zap.Error(err))
		http.Error(w, "failed to save configuration", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, cfg.URL(), http.StatusSeeOther)
}

func (s *server) handleConfigLoad(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, savedconfig.ErrNotFound) {
		http.Error(w, "configuration not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("load configuration", zap.Error(err))
		http.Error(w, "failed to load configuration", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, cfg.URL(), http.StatusSeeOther)
}

func (s *server) handleConfigDelete(w http.ResponseWriter, r *http.Request) {
	err := s.configs.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, savedconfig.ErrNotFound) {
		http.Error(w, "configuration not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("delete configuration", zap.Error(err))
		http.Error(w, "failed to delete configuration", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf strings.Builder
	if err := s.templates.Render(&buf, page, data); err != nil {
		logging.FromContext(r.Context()).Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// calculatorQuery drops the category page's own parameters and normalises the rest.
func calculatorQuery(query url.Values) url.Values {
	return calculator.ParseQuery(query).Query()
}

func categoryURL(base, fullPath string, returnQuery url.Values) string {
	params := url.Values{}
	for k, v := range returnQuery {
		params[k] = v
	}
	params.Set("path", fullPath)
	return base + "?" + params.Encode()
}

func breadcrumbs(path []string, returnQuery url.Values) []breadcrumb {
	crumbs := make([]breadcrumb, 0, len(path))
	for i, name := range path {
		crumbs = append(crumbs, breadcrumb{
			Name: name,
			Link: categoryURL("/categories", category.JoinPath(path[:i+1]), returnQuery),
		})
	}
	return crumbs
}

func firstValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = values.Get(k)
	}
	return out
}
