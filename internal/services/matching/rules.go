package matching

import (
	"regexp"
	"strings"

	"document-reconciliation-backend/internal/models"
)

type compiledRule struct {
	rule    models.PatternRule
	pattern *regexp.Regexp // nil: substring match on the raw pattern
}

func (c compiledRule) matchesNote(note string) bool {
	if c.rule.CommentPattern == "" {
		return true
	}
	if c.pattern != nil {
		return c.pattern.MatchString(note)
	}
	return strings.Contains(strings.ToLower(note), strings.ToLower(c.rule.CommentPattern))
}

// RuleIndex groups pattern rules by normalized receiver. It is immutable
// after construction and safe for concurrent lookups.
type RuleIndex struct {
	byReceiver map[string][]compiledRule
}

func NewRuleIndex(rules []models.PatternRule) *RuleIndex {
	idx := &RuleIndex{byReceiver: make(map[string][]compiledRule)}
	for _, r := range rules {
		key := normalizeKey(r.Receiver)
		if key == "" {
			continue
		}
		c := compiledRule{rule: r}
		if r.CommentPattern != "" {
			if re, err := regexp.Compile("(?i)" + r.CommentPattern); err == nil {
				c.pattern = re
			}
		}
		idx.byReceiver[key] = append(idx.byReceiver[key], c)
	}
	return idx
}

func (idx *RuleIndex) Len() int {
	if idx == nil {
		return 0
	}
	n := 0
	for _, rules := range idx.byReceiver {
		n += len(rules)
	}
	return n
}

// Applies reports whether any rule is keyed on the transaction's sender/receiver.
func (idx *RuleIndex) Applies(tx *models.BankTransaction) bool {
	if idx == nil {
		return false
	}
	return len(idx.byReceiver[normalizeKey(tx.SenderReceiver)]) > 0
}

// Match reports whether a rule for the transaction's receiver matches its
// note. Rules that require an amount match also need amountSimilarity to
// reach amountThreshold.
func (idx *RuleIndex) Match(tx *models.BankTransaction, amountSimilarity, amountThreshold float64) bool {
	if idx == nil {
		return false
	}
	for _, c := range idx.byReceiver[normalizeKey(tx.SenderReceiver)] {
		if !c.matchesNote(tx.Note) {
			continue
		}
		if c.rule.RequireAmountMatch && amountSimilarity < amountThreshold {
			continue
		}
		return true
	}
	return false
}
