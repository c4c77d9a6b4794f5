// Package models maps pipeline stages to concrete model identifiers and
// providers. Two provider families are supported: ollama for local,
// cost-free inference, and azure for managed deployments in three price
// tiers. Classification helpers are pure; Resolve consults an injectable
// assignment table and caches per stage.
package models

import (
	"slices"
	"strings"
)

// Provider identifies a model provider family.
type Provider string

// Supported provider families.
const (
	ProviderAzure  Provider = "azure"
	ProviderOllama Provider = "ollama"
)

// Tier is a managed-provider price tier.
type Tier string

// Managed tiers, cheapest to most capable.
const (
	TierCheap    Tier = "cheap"
	TierBalanced Tier = "balanced"
	TierPremium  Tier = "premium"
)

var tiers = []Tier{TierCheap, TierBalanced, TierPremium}

// Tiers returns the managed tiers in ascending capability order.
func Tiers() []Tier {
	return slices.Clone(tiers)
}

// Resolution is the provider and model a stage should invoke.
type Resolution struct {
	Provider Provider `json:"provider"`
	ModelID  string   `json:"model_id"`
}

// LocalModel is a parsed local-provider identifier.
type LocalModel struct {
	Model    string `json:"model"`
	Tag      string `json:"tag"`
	FullName string `json:"full_name"`
}

const localPrefix = string(ProviderOllama) + ":"

// ParseLocalModel parses an identifier of the form ollama:<model>:<tag>.
// Model and tag may contain dots (version numbers); neither may be empty.
// It is total: any non-matching input returns (nil, false), never a panic.
// Example: "ollama:qwen2.5-coder:7b" -> {qwen2.5-coder, 7b, qwen2.5-coder:7b}.
func ParseLocalModel(id string) (*LocalModel, bool) {
	rest, ok := strings.CutPrefix(id, localPrefix)
	if !ok {
		return nil, false
	}

	model, tag, ok := strings.Cut(rest, ":")
	if !ok || model == "" || tag == "" || strings.Contains(tag, ":") {
		return nil, false
	}

	return &LocalModel{
		Model:    model,
		Tag:      tag,
		FullName: model + ":" + tag,
	}, true
}

// IsLocalModel reports whether id is a well-formed local-provider identifier.
func IsLocalModel(id string) bool {
	_, ok := ParseLocalModel(id)
	return ok
}

// IsManagedModel reports whether id names a managed tier.
func IsManagedModel(id string) bool {
	return slices.Contains(tiers, Tier(id))
}

// ProviderOf classifies a model identifier by provider family without I/O.
// Identifiers that are neither local nor a managed tier are treated as
// managed deployment names.
func ProviderOf(id string) Provider {
	if IsLocalModel(id) {
		return ProviderOllama
	}
	return ProviderAzure
}
