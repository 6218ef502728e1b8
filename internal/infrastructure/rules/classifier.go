package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classifier suggests a destination folder from declarative rules.
// Rules are evaluated in file order and the first match wins, so the
// rule file should list the most specific patterns first.
type Classifier struct {
	rules []compiledRule
}

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Folder        string   `yaml:"folder"`
	Reason        string   `yaml:"reason"`
	Confidence    float64  `yaml:"confidence"`
	TitlePatterns []string `yaml:"title_patterns"`
	Keywords      []string `yaml:"keywords"`
	MinKeywords   int      `yaml:"min_keywords"`
}

type compiledRule struct {
	folder        string
	reason        string
	confidence    float64
	titlePatterns []*regexp.Regexp
	keywords      []string
	minKeywords   int
}

func Load(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Classifier, error) {
	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}

	rules := make([]compiledRule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		if spec.Folder == "" {
			return nil, fmt.Errorf("rule %d: folder is required", i)
		}
		compiled := compiledRule{
			folder:      spec.Folder,
			reason:      spec.Reason,
			confidence:  spec.Confidence,
			minKeywords: spec.MinKeywords,
		}
		if compiled.confidence <= 0 || compiled.confidence > 1 {
			compiled.confidence = 0.6
		}
		if compiled.minKeywords <= 0 {
			compiled.minKeywords = 1
		}
		for _, pattern := range spec.TitlePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): pattern %q: %w", i, spec.Folder, pattern, err)
			}
			compiled.titlePatterns = append(compiled.titlePatterns, re)
		}
		for _, kw := range spec.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				compiled.keywords = append(compiled.keywords, kw)
			}
		}
		rules = append(rules, compiled)
	}
	return &Classifier{rules: rules}, nil
}

func (c *Classifier) Classify(title, text string) (string, float64, string, bool) {
	loweredText := strings.ToLower(text)
	for _, rule := range c.rules {
		if folder, confidence, reason, ok := rule.match(title, loweredText); ok {
			return folder, confidence, reason, true
		}
	}
	return "", 0, "", false
}

func (r compiledRule) match(title, loweredText string) (string, float64, string, bool) {
	for _, re := range r.titlePatterns {
		if re.MatchString(title) {
			reason := r.reason
			if reason == "" {
				reason = fmt.Sprintf("title matched %s", re.String())
			}
			return r.folder, r.confidence, reason, true
		}
	}

	if len(r.keywords) > 0 {
		hits := 0
		for _, kw := range r.keywords {
			if strings.Contains(loweredText, kw) {
				hits++
			}
		}
		if hits >= r.minKeywords {
			reason := r.reason
			if reason == "" {
				reason = fmt.Sprintf("matched %d of %d keywords", hits, len(r.keywords))
			}
			return r.folder, r.confidence, reason, true
		}
	}

	return "", 0, "", false
}
