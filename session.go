package mathcat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/nlbdev/MathCAT/internal/braille"
	"github.com/nlbdev/MathCAT/internal/engine"
	"github.com/nlbdev/MathCAT/internal/ir"
	"github.com/nlbdev/MathCAT/internal/logging"
	"github.com/nlbdev/MathCAT/internal/mathml"
	"github.com/nlbdev/MathCAT/internal/prefs"
	"github.com/nlbdev/MathCAT/internal/rules"
	"github.com/nlbdev/MathCAT/internal/speech"
)

// Version is the library version reported by Version and the CLI.
const Version = "0.1.0"

// Session owns a preference store, a rule repository and the active
// expression.
//
// Thread-safety: all methods are safe for concurrent use. Every render
// takes a private preference snapshot, so a SetPreference racing with a
// render never changes that render's output.
type Session struct {
	id       string
	logger   *slog.Logger
	cache    Cache
	metrics  Metrics
	maxNodes int
	prefs    *prefs.Store

	mu        sync.Mutex
	repo      *rules.Repository
	root      *mathml.Node
	canonical string
}

type sessionConfig struct {
	logger   *slog.Logger
	repo     *rules.Repository
	cache    Cache
	metrics  Metrics
	maxNodes int
	ids      IDGenerator
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithLogger sets the logger; records get a session_id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

// WithRepository uses repo instead of the embedded rules.
func WithRepository(repo *rules.Repository) Option {
	return func(c *sessionConfig) { c.repo = repo }
}

// WithCache enables a render cache.
func WithCache(cache Cache) Option {
	return func(c *sessionConfig) { c.cache = cache }
}

// WithMetrics reports render and cache observations to m.
func WithMetrics(m Metrics) Option {
	return func(c *sessionConfig) { c.metrics = m }
}

// WithMaxNodes bounds the size of accepted expressions.
// Default: mathml.DefaultMaxNodes. Zero disables the check.
func WithMaxNodes(n int) Option {
	return func(c *sessionConfig) { c.maxNodes = n }
}

// WithIDGenerator sets the session ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *sessionConfig) { c.ids = g }
}

// NewSession creates a session with default preferences.
// Without WithRepository the embedded rules are used.
func NewSession(opts ...Option) (*Session, error) {
	cfg := sessionConfig{
		logger:   logging.NewNop(),
		maxNodes: mathml.DefaultMaxNodes,
		ids:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.repo == nil {
		repo, err := rules.Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded rules: %w", err)
		}
		cfg.repo = repo
	}

	id := cfg.ids.Generate()
	return &Session{
		id:       id,
		logger:   cfg.logger.With("session_id", id),
		cache:    cfg.cache,
		metrics:  cfg.metrics,
		maxNodes: cfg.maxNodes,
		prefs:    prefs.NewStore(),
		repo:     cfg.repo,
	}, nil
}

// Version returns the library version.
func (s *Session) Version() string { return Version }

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// SetRulesDir replaces the rule repository with the rules below path.
// On error the current repository stays in place.
func (s *Session) SetRulesDir(path string) error {
	repo, err := rules.LoadDir(path)
	if err != nil {
		return fmt.Errorf("set rules dir %s: %w", path, err)
	}
	for _, w := range repo.Warnings() {
		s.logger.Warn("rule file warning", "code", w.Code, "file", w.File, "field", w.Field, "message", w.Message)
	}

	s.mu.Lock()
	s.repo = repo
	s.mu.Unlock()

	s.logger.Info("rules loaded", "dir", path, "languages", repo.Languages(), "braille_codes", repo.BrailleCodes())
	return nil
}

// Repository returns the current rule repository.
func (s *Session) Repository() *rules.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

// SetPreference validates and stores one preference. BrailleCode must name
// a code of the current repository. On error the old value is kept.
func (s *Session) SetPreference(name, value string) error {
	if name == prefs.BrailleCode && !s.Repository().HasBrailleCode(value) {
		return prefs.Invalid(name, value, fmt.Sprintf("unsupported braille code (supported: %v)", s.Repository().BrailleCodes()))
	}
	if err := s.prefs.Set(name, value); err != nil {
		return err
	}
	s.logger.Debug("preference set", "name", name, "value", value)
	return nil
}

// SetPreferences applies every valid value of values in name order and
// returns the joined errors of the rejected ones.
func (s *Session) SetPreferences(values map[string]string) error {
	var rejected error
	if code, ok := values[prefs.BrailleCode]; ok && !s.Repository().HasBrailleCode(code) {
		rejected = prefs.Invalid(prefs.BrailleCode, code, "unsupported braille code")
		values = maps.Clone(values)
		delete(values, prefs.BrailleCode)
	}
	return errors.Join(rejected, s.prefs.Apply(values))
}

// GetPreference returns the current value of name.
func (s *Session) GetPreference(name string) (string, error) {
	return s.prefs.Get(name)
}

// SetMathML parses markup and makes it the active expression. It returns
// the canonical MathML. On error the previous expression stays active.
func (s *Session) SetMathML(markup string) (string, error) {
	root, err := mathml.Parse(markup, mathml.WithMaxNodes(s.maxNodes), mathml.WithLogger(s.logger))
	if err != nil {
		return "", err
	}
	canonical := root.String()

	s.mu.Lock()
	s.root = root
	s.canonical = canonical
	s.mu.Unlock()

	s.logger.Debug("expression set", "nodes", root.Count())
	return canonical, nil
}

// SpokenText renders the active expression as speech.
func (s *Session) SpokenText() (string, error) {
	return s.SpokenTextContext(context.Background())
}

// SpokenTextContext is SpokenText with a context for the cache.
func (s *Session) SpokenTextContext(ctx context.Context) (string, error) {
	job, err := s.prepare(OutputSpeech, "")
	if err != nil {
		return "", err
	}
	return s.render(ctx, job)
}

// Braille renders the active expression as braille. A non-empty navHint
// is a node ID and focuses the rendering on that node.
func (s *Session) Braille(navHint string) (string, error) {
	return s.BrailleContext(context.Background(), navHint)
}

// BrailleContext is Braille with a context for the cache.
func (s *Session) BrailleContext(ctx context.Context, navHint string) (string, error) {
	job, err := s.prepare(OutputBraille, navHint)
	if err != nil {
		return "", err
	}
	return s.render(ctx, job)
}

// TraceStep is one rule application recorded by Trace.
type TraceStep struct {
	Rule  string `json:"rule"`
	File  string `json:"file"`
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

// Trace renders the active expression like SpokenText or Braille, without
// the cache, and returns the rule applications in order. When the render
// fails, the steps taken before the failure come back with the error.
func (s *Session) Trace(output, navHint string) (string, []TraceStep, error) {
	job, err := s.prepare(output, navHint)
	if err != nil {
		return "", nil, err
	}
	tokens, steps, err := engine.New(job.rs, job.snap, engine.WithLogger(s.logger)).Trace(job.root)
	trace := make([]TraceStep, len(steps))
	for i, st := range steps {
		trace[i] = TraceStep{Rule: st.Rule, File: st.File, Path: st.Path, Depth: st.Depth}
	}
	if err != nil {
		return "", trace, err
	}
	return job.fold(tokens), trace, nil
}

// prepare snapshots the preferences and selects the rule set for output.
func (s *Session) prepare(output, navHint string) (renderJob, error) {
	repo, root, canonical, err := s.active()
	if err != nil {
		return renderJob{}, err
	}
	snap := s.prefs.Snapshot()

	switch output {
	case OutputSpeech:
		if navHint != "" {
			return renderJob{}, &UsageError{Code: CodeInvalidPreference, Message: "a node focus applies to braille only"}
		}
		rs, err := repo.Speech(snap.Get(prefs.Language), snap.Get(prefs.SpeechStyle))
		if err != nil {
			return renderJob{}, err
		}
		return renderJob{
			kind:      rules.KindSpeech,
			domain:    ir.DomainSpeech,
			rs:        rs,
			snap:      snap,
			root:      root,
			canonical: canonical,
			fold: func(tokens []ir.Token) string {
				return speech.Render(tokens, rs.PunctuationTable())
			},
		}, nil

	case OutputBraille:
		target := root
		if navHint != "" {
			target = root.FindID(navHint)
			if target == nil {
				return renderJob{}, &UsageError{Code: CodeUnknownNode, Message: fmt.Sprintf("no node with id %q", navHint)}
			}
		}
		rs, err := repo.Braille(snap.Get(prefs.BrailleCode))
		if err != nil {
			return renderJob{}, err
		}
		return renderJob{
			kind:      rules.KindBraille,
			domain:    ir.DomainBraille,
			rs:        rs,
			snap:      snap,
			root:      target,
			canonical: canonical,
			focus:     navHint,
			fold:      braille.Render,
		}, nil

	default:
		return renderJob{}, &UsageError{Code: CodeInvalidPreference, Message: fmt.Sprintf("unknown output %q (want %s or %s)", output, OutputSpeech, OutputBraille)}
	}
}

func (s *Session) active() (*rules.Repository, *mathml.Node, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return nil, nil, "", &UsageError{Code: CodeNoActiveExpression, Message: "no expression has been set"}
	}
	return s.repo, s.root, s.canonical, nil
}

type renderJob struct {
	kind      string
	domain    string
	rs        *rules.RuleSet
	snap      prefs.Snapshot
	root      *mathml.Node
	canonical string
	focus     string
	fold      func([]ir.Token) string
}

// render serves job from the cache or runs the engine. Cache failures are
// logged and never change the result.
func (s *Session) render(ctx context.Context, job renderJob) (string, error) {
	var key string
	if s.cache != nil {
		key = ir.MustRenderKey(ir.RenderRequest{
			Domain:      job.domain,
			RuleSet:     job.rs.ID(),
			Markup:      job.canonical,
			Preferences: job.snap.Map(),
			Focus:       job.focus,
		})
		out, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("render cache read failed", "err", err)
		}
		if s.metrics != nil {
			s.metrics.ObserveCache(job.kind, hit)
		}
		if hit {
			return out, nil
		}
	}

	start := time.Now()
	tokens, err := engine.New(job.rs, job.snap, engine.WithLogger(s.logger)).Render(job.root)
	if s.metrics != nil {
		s.metrics.ObserveRender(job.kind, job.rs.Name(), Code(err), time.Since(start))
	}
	if err != nil {
		s.logger.Debug("render failed", "rule_set", job.rs.ID(), "err", err)
		return "", err
	}
	out := job.fold(tokens)

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, job.rs.ID(), out); err != nil {
			s.logger.Warn("render cache write failed", "err", err)
		}
	}
	return out, nil
}

// SupportedLanguages returns the locales of the current repository.
func (s *Session) SupportedLanguages() []string { return s.Repository().Languages() }

// SupportedSpeechStyles returns the speech styles available for lang.
func (s *Session) SupportedSpeechStyles(lang string) []string { return s.Repository().Styles(lang) }

// SupportedBrailleCodes returns the braille codes of the current
// repository.
func (s *Session) SupportedBrailleCodes() []string { return s.Repository().BrailleCodes() }
