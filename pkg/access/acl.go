// Package access implements the RID/TGID allow/deny ACL grammar this
// repeater's call admission checks evaluate before granting RF or NET
// traffic, adapted from pkg/peer/acl.go's PERMIT/DENY rule parser.
package access

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is whether an ACL permits or denies IDs matching its rules.
type Action int

const (
	Permit Action = iota
	Deny
)

func (a Action) String() string {
	switch a {
	case Permit:
		return "PERMIT"
	case Deny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

// RuleType distinguishes the three grammars an ACL rule can take.
type RuleType int

const (
	RuleAll RuleType = iota
	RuleSingle
	RuleRange
)

// Rule is a single clause within an ACL's rule list.
type Rule struct {
	Type  RuleType
	ID    uint32
	Start uint32
	End   uint32
}

func (r Rule) String() string {
	switch r.Type {
	case RuleAll:
		return "ALL"
	case RuleSingle:
		return fmt.Sprintf("%d", r.ID)
	case RuleRange:
		return fmt.Sprintf("%d-%d", r.Start, r.End)
	default:
		return "UNKNOWN"
	}
}

// Matches reports whether id satisfies this rule.
func (r Rule) Matches(id uint32) bool {
	switch r.Type {
	case RuleAll:
		return true
	case RuleSingle:
		return r.ID == id
	case RuleRange:
		return id >= r.Start && id <= r.End
	default:
		return false
	}
}

// ACL is a PERMIT or DENY list of ID rules.
type ACL struct {
	Action Action
	Rules  []Rule
}

func (a *ACL) String() string {
	rules := make([]string, 0, len(a.Rules))
	for _, r := range a.Rules {
		rules = append(rules, r.String())
	}
	return fmt.Sprintf("%s:%s", a.Action, strings.Join(rules, ","))
}

// Check reports whether id is allowed: for a PERMIT list, only IDs
// matching a rule are allowed; for a DENY list, only IDs matching no
// rule are allowed.
func (a *ACL) Check(id uint32) bool {
	matched := false
	for _, r := range a.Rules {
		if r.Matches(id) {
			matched = true
			break
		}
	}
	if a.Action == Permit {
		return matched
	}
	return !matched
}

// ParseACL parses an ACL string of the form "ACTION:RULE[,RULE]...",
// e.g. "PERMIT:ALL", "DENY:1,1000-2000,4500".
func ParseACL(rule string) (*ACL, error) {
	if rule == "" {
		return nil, fmt.Errorf("access: empty ACL rule")
	}

	parts := strings.SplitN(rule, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("access: invalid ACL format, missing colon: %q", rule)
	}

	var action Action
	switch strings.ToUpper(parts[0]) {
	case "PERMIT":
		action = Permit
	case "DENY":
		action = Deny
	default:
		return nil, fmt.Errorf("access: invalid ACL action: %s", parts[0])
	}

	acl := &ACL{Action: action}
	for _, ruleStr := range strings.Split(parts[1], ",") {
		ruleStr = strings.TrimSpace(ruleStr)
		if ruleStr == "" {
			continue
		}

		if strings.EqualFold(ruleStr, "ALL") {
			acl.Rules = append(acl.Rules, Rule{Type: RuleAll})
			continue
		}

		if strings.Contains(ruleStr, "-") {
			bounds := strings.SplitN(ruleStr, "-", 2)
			if len(bounds) != 2 {
				return nil, fmt.Errorf("access: invalid range: %s", ruleStr)
			}
			start, err := strconv.ParseUint(strings.TrimSpace(bounds[0]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("access: invalid range start: %s", bounds[0])
			}
			end, err := strconv.ParseUint(strings.TrimSpace(bounds[1]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("access: invalid range end: %s", bounds[1])
			}
			if start > end {
				return nil, fmt.Errorf("access: invalid range, start (%d) > end (%d)", start, end)
			}
			acl.Rules = append(acl.Rules, Rule{Type: RuleRange, Start: uint32(start), End: uint32(end)})
			continue
		}

		id, err := strconv.ParseUint(ruleStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("access: invalid ID: %s", ruleStr)
		}
		acl.Rules = append(acl.Rules, Rule{Type: RuleSingle, ID: uint32(id)})
	}

	if len(acl.Rules) == 0 {
		return nil, fmt.Errorf("access: no rules specified in %q", rule)
	}
	return acl, nil
}
