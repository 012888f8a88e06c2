package phrase

import (
	"fmt"
	"regexp"

	"github.com/siherrmann/refrag/model"
)

type conditions struct {
	time     *regexp.Regexp
	only     *regexp.Regexp
	negation *regexp.Regexp
}

func compileConditions(p model.ConditionPatterns) (conditions, error) {
	var c conditions
	for _, target := range []struct {
		expr string
		re   **regexp.Regexp
	}{
		{p.Time, &c.time},
		{p.Only, &c.only},
		{p.Negation, &c.negation},
	} {
		if target.expr == "" {
			continue
		}
		re, err := regexp.Compile(target.expr)
		if err != nil {
			return c, fmt.Errorf("error compiling condition pattern %q: %w", target.expr, err)
		}
		*target.re = re
	}
	return c, nil
}

// KeyTerms returns the terms of question matched by the key term patterns,
// in pattern order and without duplicates. They are appended to the
// question for a second stage search.
func (m *Matcher) KeyTerms(question string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, re := range m.keyTerms {
		for _, t := range re.FindAllString(question, -1) {
			if !seen[t] {
				seen[t] = true
				terms = append(terms, t)
			}
		}
	}
	return terms
}

// CheckConditions compares the details of question with a rule section and
// returns a message for each mismatch: a time missing from the rule, a
// restriction present on one side only, or a different negation count.
func (m *Matcher) CheckConditions(question string, content string) []string {
	var issues []string

	if re := m.conditions.time; re != nil {
		ruleTimes := make(map[string]bool)
		for _, t := range re.FindAllString(content, -1) {
			ruleTimes[t] = true
		}
		for _, t := range re.FindAllString(question, -1) {
			if !ruleTimes[t] {
				issues = append(issues, fmt.Sprintf("時間条件不一致: 問題「%s」がルールに見つからない", t))
			}
		}
	}

	if re := m.conditions.only; re != nil {
		questionOnly := re.MatchString(question)
		ruleOnly := re.MatchString(content)
		switch {
		case questionOnly && !ruleOnly:
			issues = append(issues, "問題文に「のみ/限り」があるがルールにない")
		case !questionOnly && ruleOnly:
			issues = append(issues, "ルールに「のみ/限り」があるが問題文にない")
		}
	}

	if re := m.conditions.negation; re != nil {
		qn := len(re.FindAllString(question, -1))
		rn := len(re.FindAllString(content, -1))
		if qn != rn {
			issues = append(issues, fmt.Sprintf("否定形の数が異なる: 問題%d個 vs ルール%d個", qn, rn))
		}
	}

	return issues
}
