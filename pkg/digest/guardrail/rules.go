package guardrail

import _ "embed"

// defaultRules is the built-in rule set, used when no rule file is
// configured. A file configured via WithRulesFile replaces it entirely.
//
//go:embed default_rules.yaml
var defaultRules []byte
