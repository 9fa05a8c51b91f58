// Package guardrail implements declarative importance overrides.
// A guardrail rule can unconditionally override the upstream model's
// importance judgment for safety-critical patterns, for example forcing
// verification-code emails to critical or autopay confirmations to routine.
package guardrail

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/brieflyhq/briefly/pkg/digest"
	bferrors "github.com/brieflyhq/briefly/pkg/errors"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Category identifies which override bucket a rule belongs to.
type Category string

const (
	CategoryNeverSurface     Category = "never_surface"
	CategoryForceCritical    Category = "force_critical"
	CategoryForceNonCritical Category = "force_non_critical"
)

// Importance returns the importance a category resolves to.
func (c Category) Importance() digest.Importance {
	if c == CategoryForceCritical {
		return digest.ImportanceCritical
	}
	return digest.ImportanceRoutine
}

// Rule is a single declarative override rule as authored in YAML.
// All keyword terms are case-folded at load time; an empty constraint
// list means the dimension is unconstrained.
type Rule struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	SubjectAny   []string `yaml:"subject_any"`
	SnippetAny   []string `yaml:"snippet_any"`
	SnippetNone  []string `yaml:"snippet_none"`
	SubjectRegex []string `yaml:"subject_regex"`
	SnippetRegex []string `yaml:"snippet_regex"`

	subjectRe []*regexp.Regexp
	snippetRe []*regexp.Regexp
}

// Result is the verdict of a matched guardrail rule.
type Result struct {
	Importance digest.Importance
	Reason     string
	RuleName   string
	Category   Category
}

// ruleFile mirrors the YAML layout: a top-level `guardrails` key holding
// the three category lists.
type ruleFile struct {
	Guardrails struct {
		NeverSurface     []Rule `yaml:"never_surface"`
		ForceCritical    []Rule `yaml:"force_critical"`
		ForceNonCritical []Rule `yaml:"force_non_critical"`
	} `yaml:"guardrails"`
}

// bucket pairs a category with its rules in declaration order.
type bucket struct {
	category Category
	rules    []Rule
}

// Matcher evaluates subjects and snippets against the loaded rule set.
// The rule set is immutable after construction and safe to share across
// goroutines without locking.
type Matcher struct {
	buckets []bucket
	loadErr error
	logger  logging.Logger
}

// MatcherOption configures the matcher.
type MatcherOption func(*matcherConfig)

type matcherConfig struct {
	rulesPath string
	rulesData []byte
	logger    logging.Logger
}

// WithRulesFile loads rules from the given YAML file instead of the
// embedded defaults.
func WithRulesFile(path string) MatcherOption {
	return func(c *matcherConfig) {
		c.rulesPath = path
	}
}

// WithRulesData loads rules from raw YAML bytes.
func WithRulesData(data []byte) MatcherOption {
	return func(c *matcherConfig) {
		c.rulesData = data
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) MatcherOption {
	return func(c *matcherConfig) {
		c.logger = logger
	}
}

// NewMatcher builds a matcher from the configured rule source.
// A missing or unparseable source is not an error: the matcher logs a
// warning and starts with zero rules, so no overrides apply but batch
// processing never fails.
func NewMatcher(opts ...MatcherOption) *Matcher {
	cfg := &matcherConfig{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Matcher{logger: cfg.logger.With(logging.F("component", "guardrail"))}

	data := cfg.rulesData
	if data == nil {
		if cfg.rulesPath != "" {
			fileData, err := os.ReadFile(cfg.rulesPath)
			if err != nil {
				m.loadErr = fmt.Errorf("rule file %s: %w: %w", cfg.rulesPath, bferrors.ErrRuleSource, err)
				m.logger.Warn("Guardrail rule file unreadable, loading zero rules",
					logging.Err(m.loadErr),
					logging.F("path", cfg.rulesPath))
				return m
			}
			data = fileData
		} else {
			data = defaultRules
		}
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		m.loadErr = fmt.Errorf("parsing guardrail rules: %w: %w", bferrors.ErrRuleSource, err)
		m.logger.Warn("Guardrail rules unparseable, loading zero rules", logging.Err(m.loadErr))
		return m
	}

	// Bucket precedence is fixed: never_surface, then force_critical,
	// then force_non_critical. Within a bucket, declaration order.
	m.buckets = []bucket{
		{CategoryNeverSurface, m.compile(CategoryNeverSurface, rf.Guardrails.NeverSurface)},
		{CategoryForceCritical, m.compile(CategoryForceCritical, rf.Guardrails.ForceCritical)},
		{CategoryForceNonCritical, m.compile(CategoryForceNonCritical, rf.Guardrails.ForceNonCritical)},
	}
	return m
}

// folder performs Unicode case folding for keyword comparison.
var folder = cases.Fold()

// compile case-folds keyword terms and compiles regexes. A rule with an
// invalid regex is skipped with a warning rather than aborting the load.
func (m *Matcher) compile(category Category, rules []Rule) []Rule {
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.SubjectAny = foldTerms(r.SubjectAny)
		r.SnippetAny = foldTerms(r.SnippetAny)
		r.SnippetNone = foldTerms(r.SnippetNone)

		ok := true
		r.subjectRe = make([]*regexp.Regexp, 0, len(r.SubjectRegex))
		for _, expr := range r.SubjectRegex {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				m.logger.Warn("Skipping guardrail rule with invalid subject_regex",
					logging.Err(err),
					logging.F("rule", r.Name),
					logging.F("category", string(category)))
				ok = false
				break
			}
			r.subjectRe = append(r.subjectRe, re)
		}
		if ok {
			r.snippetRe = make([]*regexp.Regexp, 0, len(r.SnippetRegex))
			for _, expr := range r.SnippetRegex {
				re, err := regexp.Compile("(?i)" + expr)
				if err != nil {
					m.logger.Warn("Skipping guardrail rule with invalid snippet_regex",
						logging.Err(err),
						logging.F("rule", r.Name),
						logging.F("category", string(category)))
					ok = false
					break
				}
				r.snippetRe = append(r.snippetRe, re)
			}
		}
		if ok {
			compiled = append(compiled, r)
		}
	}
	return compiled
}

func foldTerms(terms []string) []string {
	folded := make([]string, len(terms))
	for i, t := range terms {
		folded[i] = folder.String(strings.TrimSpace(t))
	}
	return folded
}

// LoadErr returns the rule-source error the matcher recovered from at
// construction, or nil. A non-nil value wraps ErrRuleSource; the matcher
// still works, with zero rules.
func (m *Matcher) LoadErr() error {
	return m.loadErr
}

// RuleCount returns the number of loaded rules across all buckets.
func (m *Matcher) RuleCount() int {
	n := 0
	for _, b := range m.buckets {
		n += len(b.rules)
	}
	return n
}

// Rules returns the loaded rules for a category in declaration order.
func (m *Matcher) Rules(category Category) []Rule {
	for _, b := range m.buckets {
		if b.category == category {
			return b.rules
		}
	}
	return nil
}

// Evaluate checks the subject and snippet against the rule set.
// Buckets are evaluated in precedence order and the first matching rule
// wins; nil means no rule matched.
func (m *Matcher) Evaluate(subject, snippet string) *Result {
	subjectFolded := folder.String(subject)
	snippetFolded := folder.String(snippet)

	for _, b := range m.buckets {
		for _, r := range b.rules {
			if !r.matches(subject, snippet, subjectFolded, snippetFolded) {
				continue
			}
			return &Result{
				Importance: b.category.Importance(),
				Reason:     fmt.Sprintf("guardrail %s matched rule %q", b.category, r.Name),
				RuleName:   r.Name,
				Category:   b.category,
			}
		}
	}
	return nil
}

// matches applies the AND of all constrained dimensions.
func (r *Rule) matches(subject, snippet, subjectFolded, snippetFolded string) bool {
	if len(r.SubjectAny) > 0 && !containsAny(subjectFolded, r.SubjectAny) {
		return false
	}
	if len(r.SnippetAny) > 0 && !containsAny(snippetFolded, r.SnippetAny) {
		return false
	}
	for _, term := range r.SnippetNone {
		if term != "" && strings.Contains(snippetFolded, term) {
			return false
		}
	}
	if len(r.subjectRe) > 0 && !matchesAny(subject, r.subjectRe) {
		return false
	}
	if len(r.snippetRe) > 0 && !matchesAny(snippet, r.snippetRe) {
		return false
	}
	return true
}

func containsAny(haystack string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
