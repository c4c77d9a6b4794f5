package graph

import (
	"regexp"
	"strings"
)

var storyIDPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)-([0-9]+)$`)

// Validate enforces the state invariants. It is called on construction
// and again after every Apply, so a violation can never be committed.
func (c Core) Validate() error {
	if c.SchemaVersion == "" {
		return invalid("schema_version", RuleRequired, "schema version must not be empty")
	}
	if c.EpicPrefix == "" {
		return invalid("epic_prefix", RuleRequired, "epic prefix must not be empty")
	}

	match := storyIDPattern.FindStringSubmatch(c.StoryID)
	if match == nil {
		return invalid("story_id", RuleFormat, "story id %q must match <prefix>-<number>", c.StoryID)
	}
	if !strings.EqualFold(match[1], c.EpicPrefix) {
		return invalid(
			"story_id", RulePrefixMatch,
			"story id prefix %q does not match epic prefix %q", match[1], c.EpicPrefix,
		)
	}

	if c.StoryState != "" && !c.StoryState.Valid() {
		return invalid("story_state", RuleUnknownValue, "unknown story state %q", c.StoryState)
	}

	if c.RoutingFlags[FlagComplete] {
		if c.RoutingFlags[FlagRetry] {
			return invalid(
				"routing_flags", RuleFlagConflict,
				"%s and %s must not both be set", FlagComplete, FlagRetry,
			)
		}
		if c.RoutingFlags[FlagBlocked] {
			return invalid(
				"routing_flags", RuleFlagConflict,
				"%s and %s must not both be set", FlagComplete, FlagBlocked,
			)
		}
	}

	for kind, path := range c.ArtifactPaths {
		if path == "" {
			return invalid("artifact_paths", RuleEmptyValue, "artifact %q has an empty location", kind)
		}
	}

	if c.BlockedBy != nil && *c.BlockedBy == "" {
		return invalid("blocked_by", RuleEmptyValue, "blocked_by reference must not be empty")
	}

	return nil
}

// Validate checks the core invariants and requires all collections to be
// initialized, which protects states decoded from external callers.
func (s State) Validate() error {
	if s.ArtifactPaths == nil || s.RoutingFlags == nil || s.GateDecisions == nil ||
		s.EvidenceRefs == nil || s.Errors == nil || s.StateHistory == nil {
		return invalid("state", RuleRequired, "collections must be initialized, not absent")
	}
	return s.Core.Validate()
}
