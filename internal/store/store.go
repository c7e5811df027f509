package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/mhdi-khosravi/Crypto-price-alert/internal/types"
)

// Store keeps the alert list and settings in memory, mirrored to a single
// JSON document that is rewritten in full after every mutation. It is safe
// for concurrent use by the UI and the poller.
type Store struct {
	mu          sync.Mutex
	path        string
	doc         types.Document
	exchanges   []string
	minInterval int
}

// New creates a store persisting to path. knownExchanges is the set of
// valid values for an alert's exchange field besides "any"; minInterval is
// the lowest accepted check interval in seconds.
func New(path string, knownExchanges []string, minInterval int) *Store {
	return &Store{
		path:        path,
		doc:         types.Document{Settings: types.DefaultSettings()},
		exchanges:   knownExchanges,
		minInterval: minInterval,
	}
}

// Load reads the persisted document. A missing file is created with
// defaults; an unreadable or corrupt file falls back to defaults with a
// logged warning rather than failing startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.persist()
	}
	if err != nil {
		log.Warnf("could not read %s, starting with defaults: %v", s.path, err)
		return s.persist()
	}

	var doc types.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warnf("corrupt document %s, starting with defaults: %v", s.path, err)
		return s.persist()
	}

	fillSettingsDefaults(&doc.Settings)
	s.doc = doc
	return nil
}

func fillSettingsDefaults(st *types.Settings) {
	def := types.DefaultSettings()
	if st.CheckIntervalSeconds == 0 {
		st.CheckIntervalSeconds = def.CheckIntervalSeconds
	}
	if st.AutoSilenceSeconds == 0 {
		st.AutoSilenceSeconds = def.AutoSilenceSeconds
	}
	if st.AssumeQuote == "" {
		st.AssumeQuote = def.AssumeQuote
	}
	if st.Language == "" {
		st.Language = def.Language
	}
	if st.Theme == "" {
		st.Theme = def.Theme
	}
}

// List returns all alerts in insertion order.
func (s *Store) List() []types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Alert(nil), s.doc.Alerts...)
}

// ActiveAlerts returns the alerts the poller should evaluate.
func (s *Store) ActiveAlerts() []types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.doc.Alerts, func(a types.Alert, _ int) bool {
		return a.Active
	})
}

// Get finds one alert by id.
func (s *Store) Get(id string) (types.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.doc.Alerts[i], nil
	}
	return types.Alert{}, &NotFoundError{ID: id}
}

// Add validates and appends a new alert, assigning its id. The symbol is
// normalized against the configured quote currency before validation.
func (s *Store) Add(alert types.Alert) (types.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert.Symbol = types.NormalizeSymbol(alert.Symbol, s.doc.Settings.AssumeQuote)
	if err := s.validate(alert); err != nil {
		return types.Alert{}, err
	}

	alert.ID = uuid.NewString()
	alert.CreatedAt = time.Now()
	alert.TriggeredAt = nil
	s.doc.Alerts = append(s.doc.Alerts, alert)
	return alert, s.persist()
}

// Update replaces the mutable fields of the alert with the given id. The
// id and creation time are preserved.
func (s *Store) Update(id string, fields types.Alert) (types.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return types.Alert{}, &NotFoundError{ID: id}
	}

	fields.Symbol = types.NormalizeSymbol(fields.Symbol, s.doc.Settings.AssumeQuote)
	if err := s.validate(fields); err != nil {
		return types.Alert{}, err
	}

	cur := s.doc.Alerts[i]
	cur.Symbol = fields.Symbol
	cur.TargetPrice = fields.TargetPrice
	cur.Condition = fields.Condition
	cur.Exchange = fields.Exchange
	cur.Active = fields.Active
	s.doc.Alerts[i] = cur
	return cur, s.persist()
}

// Remove deletes the alert with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	s.doc.Alerts = append(s.doc.Alerts[:i], s.doc.Alerts[i+1:]...)
	return s.persist()
}

// MarkTriggered flips an alert inactive after its condition fired. The
// record stays in the list so the user can review and re-arm it.
func (s *Store) MarkTriggered(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	s.doc.Alerts[i].Active = false
	s.doc.Alerts[i].TriggeredAt = &at
	return s.persist()
}

// SetActive arms or disarms an alert without touching its other fields.
func (s *Store) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	s.doc.Alerts[i].Active = active
	return s.persist()
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings
}

// UpdateSettings validates and replaces the settings.
func (s *Store) UpdateSettings(st types.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.CheckIntervalSeconds < s.minInterval {
		return &ValidationError{Field: "check interval",
			Reason: fmt.Sprintf("must be at least %d seconds", s.minInterval)}
	}
	if st.AutoSilenceSeconds < 1 {
		return &ValidationError{Field: "auto-silence", Reason: "must be at least 1 second"}
	}
	fillSettingsDefaults(&st)
	s.doc.Settings = st
	return s.persist()
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.doc.Alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) validate(a types.Alert) error {
	if a.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if !a.TargetPrice.IsPositive() {
		return &ValidationError{Field: "target price", Reason: "must be a positive number"}
	}
	if _, err := types.ParseCondition(string(a.Condition)); err != nil {
		return &ValidationError{Field: "condition", Reason: "must be >= or <="}
	}
	if a.Exchange != types.ExchangeAny && !lo.Contains(s.exchanges, a.Exchange) {
		return &ValidationError{Field: "exchange", Reason: "unknown exchange"}
	}
	return nil
}

// persist rewrites the whole document. Written to a temp file in the same
// directory and renamed so a crash mid-write cannot corrupt the document.
// Callers must hold s.mu.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".alerts-*.json")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.path, Err: err}
	}
	return nil
}
