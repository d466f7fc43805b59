//go:build fuzz_extended

package caddyshibclaims

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// FuzzValidateReturnURLExtended uses the full seed corpus for thorough CI testing.
// Run in CI with: go test -tags=fuzz_extended -fuzz=FuzzValidateReturnURLExtended -fuzztime=60s .
func FuzzValidateReturnURLExtended(f *testing.F) {
	for _, seed := range fuzzReturnURLSeedsExtended() {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		result := validateReturnURL(input)
		checkReturnURLInvariants(t, input, result)
	})
}

// fuzzParseDurationSeedsExtended returns the full seed corpus for CI duration parsing tests.
func fuzzParseDurationSeedsExtended() []string {
	return []string{
		// === Valid durations ===
		"30d", "1d", "0d", "365d", "8h", "1h30m", "30s", "5m", "90m",
		"1h", "24h", "1m30s", "100ms", "1us", "1ns",

		// === Day suffix edge cases ===
		"d", "-1d", "+1d", " 1d", "1 d", "01d", "0000d",

		// === Overflow attacks ===
		"999999999999d", "9223372036854775807d", "-9223372036854775808d",
		"99999999999999999999d",

		// === Malformed ===
		"", " ", "0", "abc", "30", "30x", "30dd", "30D", "30.5d",
		"1h2", "h", "m", "s", "1hm", "--1d",

		// === Injection-shaped input ===
		"1d\r\n", "1d; rm -rf /", "1d\x00", "${DAYS}d",

		// === Unicode ===
		"１d", "1ｄ", "一d", "1\u00a0d",
	}
}

// FuzzParseDurationExtended uses the full seed corpus for thorough CI testing.
// Run in CI with: go test -tags=fuzz_extended -fuzz=FuzzParseDurationExtended -fuzztime=60s .
func FuzzParseDurationExtended(f *testing.F) {
	for _, seed := range fuzzParseDurationSeedsExtended() {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		dur, err := parseDuration(input)
		checkParseDurationInvariants(t, input, dur, err)
	})
}

// fuzzRulesFileSeedsExtended returns the full seed corpus for CI rules file
// loading tests. Covers valid YAML, structural damage, and hostile content.
func fuzzRulesFileSeedsExtended() []string {
	return []string{
		// === Valid rules files ===
		"attributes:\n  - id: eppn\nrules:\n  - attribute: eppn\n    claim: EPPN\n",
		"rules:\n  - attribute: mail\n    claim: EMAIL\n    transform: lowercase\n",
		"rules:\n  - attribute: isMemberOf\n    claim: GROUP\n    transform: split\n    separator: \";\"\n",
		"attributes:\n  - id: wiscEduPVI\n    display_name: Publication Verification ID\nrules:\n  - attribute: wiscEduPVI\n    claim: PVI\n",

		// === Structurally valid, semantically invalid ===
		"rules: []\n",
		"attributes:\n  - id: eppn\n",
		"rules:\n  - attribute: eppn\n",
		"rules:\n  - claim: EPPN\n",
		"rules:\n  - attribute: uid\n    claim: UID\n    transform: reverse\n",
		"rules:\n  - attribute: uid\n    claim: UID\n    separator: \",\"\n",
		"attributes:\n  - display_name: No ID\nrules:\n  - attribute: eppn\n    claim: EPPN\n",

		// === Malformed YAML ===
		"", " ", "\n", "{", "}", "[", "]:", "key: [unclosed",
		"rules:\n\t- attribute: tab-indented",
		"attributes:\n- id: a\n - id: misaligned\n",
		":\n:\n:\n",

		// === Wrong shapes ===
		"42\n", "\"just a string\"\n", "- a\n- b\n",
		"rules: 17\n", "rules: \"text\"\n", "attributes: {id: x}\n",
		"rules:\n  - attribute: [nested, list]\n    claim: EPPN\n",

		// === Hostile content ===
		"rules:\n  - attribute: \"eppn\\r\\nX-Evil: yes\"\n    claim: EPPN\n",
		"rules:\n  - attribute: \"\\x00\"\n    claim: EPPN\n",
		"rules:\n  - attribute: 日本語\n    claim: 当事者\n",
		"anchor: &a [1, 2]\nrules: *a\n",
		strings.Repeat("# comment\n", 1000) + "rules:\n  - attribute: eppn\n    claim: EPPN\n",
	}
}

// FuzzRulesFileLoadExtended tests that rules file loading handles arbitrary
// file content safely: parse errors never panic, and a successful load
// always yields validated actions with full catalog coverage.
// Run in CI with: go test -tags=fuzz_extended -fuzz=FuzzRulesFileLoadExtended -fuzztime=60s .
func FuzzRulesFileLoadExtended(f *testing.F) {
	for _, seed := range fuzzRulesFileSeedsExtended() {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, content string) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write rules file: %v", err)
		}

		src := NewFileRuleSource(path, zap.NewNop())
		loadErr := src.Load()

		catalog, catErr := src.Catalog()
		actions, actErr := src.ClaimActions()

		if loadErr != nil {
			// A failed first load leaves the source unloaded
			if catErr == nil || actErr == nil {
				t.Errorf("failed load but rules are readable: catalog err=%v, actions err=%v", catErr, actErr)
			}
			return
		}

		// Invariant 1: A successful load yields readable rules
		if catErr != nil || actErr != nil {
			t.Errorf("successful load but rules unreadable: catalog err=%v, actions err=%v", catErr, actErr)
			return
		}

		// Invariant 2: Loaded actions always validate
		if err := actions.Validate(); err != nil {
			t.Errorf("loaded actions fail validation: %v", err)
		}

		// Invariant 3: A rules file never loads empty
		if len(actions) == 0 {
			t.Error("load succeeded with zero actions")
		}

		// Invariant 4: The catalog covers every attribute the rules consume
		for _, id := range actions.AttributeIDs() {
			if !catalog.Contains(id) {
				t.Errorf("catalog missing attribute %q consumed by rules", id)
			}
		}
	})
}
