package ir

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Domain prefixes for content-addressed keys.
// The version suffix allows the key layout to change without collisions.
const (
	DomainSpeech  = "mathcat/speech/v1"
	DomainBraille = "mathcat/braille/v1"
	DomainRules   = "mathcat/rules/v1"
)

// hashWithDomain computes BLAKE3(domain + 0x00 + data) as hex.
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := blake3.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RulesDigest hashes the source files of a rule set in the order given.
// Each file is length-prefixed so concatenation boundaries cannot collide.
func RulesDigest(files ...[]byte) string {
	var data []byte
	for _, f := range files {
		data = fmt.Appendf(data, "%d:", len(f))
		data = append(data, f...)
	}
	return hashWithDomain(DomainRules, data)
}

// RenderRequest identifies one rendering of a canonical expression.
type RenderRequest struct {
	Domain      string
	RuleSet     string
	Markup      string
	Preferences map[string]string
	Focus       string
}

// RenderKey computes the cache key for a render request.
// Two requests get the same key exactly when they would produce the same
// output: same rule set, canonical markup, preference snapshot and focus.
func RenderKey(req RenderRequest) (string, error) {
	if req.Domain == "" {
		return "", fmt.Errorf("RenderKey: domain is required")
	}
	obj := map[string]any{
		"rule_set":    req.RuleSet,
		"markup":      req.Markup,
		"preferences": req.Preferences,
		"focus":       req.Focus,
	}
	if req.Preferences == nil {
		obj["preferences"] = map[string]any{}
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RenderKey: failed to marshal: %w", err)
	}
	return hashWithDomain(req.Domain, canonical), nil
}

// MustRenderKey is RenderKey for callers that built the request from
// validated strings and cannot fail.
func MustRenderKey(req RenderRequest) string {
	key, err := RenderKey(req)
	if err != nil {
		panic(err)
	}
	return key
}
