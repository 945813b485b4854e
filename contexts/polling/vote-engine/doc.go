// Package voteengine implements the vote submission and real-time result
// aggregation core of the polling context.
//
// The module owns ballot lifecycle orchestration (submit/retract), the
// one-ballot-per-user uniqueness gate, the compare-and-swap counter mutation
// that keeps a poll's total consistent with its per-option counts, and the
// fan-out of tally updates to live viewers. Business rules live in the
// application/domain layers; infrastructure stays behind ports and adapters.
package voteengine
