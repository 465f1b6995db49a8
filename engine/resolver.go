package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

const rateRulesCacheKey = "propex:rate_rules"
const rateRulesCacheTTL = 60 * time.Second

// Resolver turns (ancestor, product kind, level) into a commission rate in
// basis points. Resolution is referentially transparent under the
// effective_at <= paid_at filter, so a replayed purchase resolves the same
// rates it did the first time.
type Resolver struct {
	DB         *gorm.DB
	MaxLevels  int
	CeilingBps int64
}

func NewResolver() *Resolver {
	return &Resolver{
		DB:         config.DataBase,
		MaxLevels:  config.Vars.MaxCommissionLevels,
		CeilingBps: config.Vars.RateCeilingBps,
	}
}

// Rules loads the rule table, serving from the redis cache when warm.
func (r *Resolver) Rules() ([]*models.RateRule, error) {
	var rules []*models.RateRule

	if config.Redis != nil {
		if err := config.Redis.GetKey(rateRulesCacheKey, &rules); err == nil {
			return rules, nil
		}
	}

	if result := r.DB.Order("id asc").Find(&rules); result.Error != nil {
		return nil, ErrUnavailable
	}

	if config.Redis != nil {
		config.Redis.SetKey(rateRulesCacheKey, rules, rateRulesCacheTTL)
	}

	return rules, nil
}

// InvalidateRules drops the cache; called when a rule commit lands.
func (r *Resolver) InvalidateRules() {
	if config.Redis != nil {
		config.Redis.DeleteKey(rateRulesCacheKey)
	}
}

// ResolveRate picks the applicable rate for one ancestor at one level.
// Precedence: principal_override > role > default; a product-kind match
// beats a generic rule within a tier, recency breaks remaining ties.
// Levels past maxLevels resolve to zero, as do negative candidates.
func ResolveRate(rules []*models.RateRule, ancestor *models.Member, productKind string, level int, paidAt time.Time, maxLevels int) int64 {
	if level < 1 || level > maxLevels {
		return 0
	}

	var best *models.RateRule

	for _, rule := range rules {
		if rule.EffectiveAt.After(paidAt) {
			continue
		}
		if !ruleMatches(rule, ancestor, productKind, level) {
			continue
		}
		if best == nil || ruleBeats(rule, best) {
			best = rule
		}
	}

	if best == nil || best.RateBps < 0 {
		return 0
	}

	return best.RateBps
}

func ruleMatches(rule *models.RateRule, ancestor *models.Member, productKind string, level int) bool {
	if rule.Level != 0 && rule.Level != level {
		return false
	}
	if rule.ProductKind.Valid && rule.ProductKind.String != productKind {
		return false
	}

	switch rule.Scope {
	case types.ScopePrincipalOverride:
		return rule.MemberID.Valid && rule.MemberID.Int64 == ancestor.ID
	case types.ScopeRole:
		return rule.Role.Valid && rule.Role.String == ancestor.Role
	default:
		return true
	}
}

func ruleBeats(candidate, incumbent *models.RateRule) bool {
	if candidate.ScopeRank() != incumbent.ScopeRank() {
		return candidate.ScopeRank() < incumbent.ScopeRank()
	}
	if (candidate.Level != 0) != (incumbent.Level != 0) {
		return candidate.Level != 0
	}
	if candidate.ProductKind.Valid != incumbent.ProductKind.Valid {
		return candidate.ProductKind.Valid
	}
	return candidate.EffectiveAt.After(incumbent.EffectiveAt)
}

// ScaleToCeiling rescales a chain's rates proportionally when their sum
// exceeds the ceiling, so the scaled sum equals the ceiling exactly.
// Integer bps are floored, the remainder is handed out by largest
// fractional part, lowest level first on ties.
func ScaleToCeiling(rates []int64, ceilingBps int64) []int64 {
	var sum int64
	for _, r := range rates {
		sum += r
	}

	if sum <= ceilingBps || sum == 0 {
		out := make([]int64, len(rates))
		copy(out, rates)
		return out
	}

	scaled := make([]int64, len(rates))
	remainders := make([]int64, len(rates))
	var distributed int64

	for i, r := range rates {
		num := r * ceilingBps
		scaled[i] = num / sum
		remainders[i] = num % sum
		distributed += scaled[i]
	}

	for distributed < ceilingBps {
		best := -1
		for i := range remainders {
			if remainders[i] == 0 {
				continue
			}
			if best == -1 || remainders[i] > remainders[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}

		scaled[best]++
		remainders[best] = 0
		distributed++
	}

	return scaled
}

// ChainRates resolves every level of a chain and applies the ceiling.
func (r *Resolver) ChainRates(chain []*models.Member, productKind string, paidAt time.Time) ([]int64, error) {
	rules, err := r.Rules()
	if err != nil {
		return nil, err
	}

	rates := make([]int64, 0, len(chain))
	for i, ancestor := range chain {
		rates = append(rates, ResolveRate(rules, ancestor, productKind, i+1, paidAt, r.MaxLevels))
	}

	return ScaleToCeiling(rates, r.CeilingBps), nil
}
