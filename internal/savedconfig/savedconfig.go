package savedconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/Simplici0/marketfee/internal/calculator"
	"github.com/Simplici0/marketfee/internal/format"
)

// ErrNotFound is returned when no configuration has the requested id.
var ErrNotFound = errors.New("saved configuration not found")

const (
	maxTitleRunes = 120
	dateLayout    = "2006/1/2"
)

// Config is a named snapshot of calculator inputs.
type Config struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Date      string            `json:"date"`
	Data      map[string]string `json:"data"`
	Summary   string            `json:"summary"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Query returns the stored inputs as shareable-link parameters.
func (c Config) Query() url.Values {
	values := url.Values{}
	for k, v := range c.Data {
		values.Set(k, v)
	}
	return values
}

// URL is the calculator link that restores this configuration.
func (c Config) URL() string {
	return "/?" + c.Query().Encode()
}

// Draft is a configuration before it is stored.
type Draft struct {
	Title   string
	Summary string
	Data    url.Values
}

// DraftFromReport snapshots the report's inputs. An empty title falls back to the summary.
func DraftFromReport(report calculator.Report, title string) Draft {
	return Draft{
		Title:   title,
		Summary: Summary(report.State.Cost, report.HeadlinePrice()),
		Data:    report.State.Query(),
	}
}

// Summary is the default description "進價: $ cost 售價: $ price".
func Summary(cost, price float64) string {
	return "進價: " + format.Currency(cost) + " 售價: " + format.Currency(price)
}

// Deps configures a Store; zero values use real ids and the wall clock.
type Deps struct {
	IDGenerator func() string
	Clock       func() time.Time
}

// Store persists saved configurations in SQLite.
type Store struct {
	db     *sql.DB
	newID  func() string
	now    func() time.Time
	policy *bluemonday.Policy
}

// NewStore returns a Store over an already migrated database.
func NewStore(db *sql.DB, deps Deps) *Store {
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		db:     db,
		newID:  newID,
		now:    func() time.Time { return clock().UTC() },
		policy: bluemonday.StrictPolicy(),
	}
}

// Save stores a new configuration and returns it.
func (s *Store) Save(ctx context.Context, d Draft) (Config, error) {
	summary := s.clean(d.Summary)
	title := s.clean(d.Title)
	if title == "" {
		title = summary
	}

	data := flatten(d.Data)
	payload, err := json.Marshal(data)
	if err != nil {
		return Config{}, fmt.Errorf("encode saved configuration: %w", err)
	}

	cfg := Config{
		ID:        s.newID(),
		Title:     title,
		Data:      data,
		Summary:   summary,
		CreatedAt: s.now(),
	}
	cfg.Date = cfg.CreatedAt.Format(dateLayout)

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_configs (id, title, summary, data_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cfg.ID, cfg.Title, cfg.Summary, string(payload), cfg.CreatedAt); err != nil {
		return Config{}, fmt.Errorf("insert saved configuration: %w", err)
	}
	return cfg, nil
}

// List returns configurations newest first, optionally filtered by a
// substring of the title or summary. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, query string, limit int) ([]Config, error) {
	if limit <= 0 {
		limit = -1
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, summary, data_json, created_at
		FROM saved_configs
		WHERE title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("query saved configurations: %w", err)
	}
	defer rows.Close()

	configs := []Config{}
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved configurations: %w", err)
	}
	return configs, nil
}

// Get loads one configuration by id.
func (s *Store) Get(ctx context.Context, id string) (Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, summary, data_json, created_at
		FROM saved_configs
		WHERE id = ?
	`, id)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Config{}, fmt.Errorf("saved configuration %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Delete removes one configuration by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved configuration: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("saved configuration %q: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (Config, error) {
	var (
		cfg     Config
		payload string
	)
	if err := row.Scan(&cfg.ID, &cfg.Title, &cfg.Summary, &payload, &cfg.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("scan saved configuration: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &cfg.Data); err != nil {
		return Config{}, fmt.Errorf("decode saved configuration %q: %w", cfg.ID, err)
	}
	cfg.CreatedAt = cfg.CreatedAt.UTC()
	cfg.Date = cfg.CreatedAt.Format(dateLayout)
	return cfg, nil
}

// clean strips markup, collapses whitespace and caps the length. The result is
// plain text; templates escape it on output.
func (s *Store) clean(text string) string {
	text = html.UnescapeString(s.policy.Sanitize(text))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxTitleRunes {
		text = string([]rune(text)[:maxTitleRunes])
	}
	return text
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func flatten(values url.Values) map[string]string {
	data := make(map[string]string, len(values))
	for k := range values {
		if v := values.Get(k); v != "" {
			data[k] = v
		}
	}
	return data
}
