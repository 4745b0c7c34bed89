package scoring

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// JobHints is the structured information pulled out of a job description
type JobHints struct {
	// Skills are canonical lower-case names in order of first appearance.
	Skills         []string
	TargetYears    int
	HasTargetYears bool
}

// HintExtractor turns a free-text job description into JobHints.
// Implementations must be safe for concurrent use.
type HintExtractor interface {
	Extract(jobDescription string) JobHints
}

// SkillCanonicalizer maps a skill as written to its canonical form
type SkillCanonicalizer interface {
	Canonical(skill string) string
}

// SkillMentioner reports which of a candidate's declared skills a job
// description names outside the extractor's vocabulary.
type SkillMentioner interface {
	Mentions(jobDescription string, skills []string) []string
}

// SkillTerm is a vocabulary entry. Aliases resolve to Name. Forms listed in
// Exact are matched only as written, for names that are also common words
// ("Go", "Swift"). A Name or alias equal to an Exact form ignoring case is
// not matched case-insensitively.
type SkillTerm struct {
	Name    string
	Aliases []string
	Exact   []string
}

var yearsPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+?\s*(?:(?:-|to)\s*\d{1,2}\s*\+?\s*)?(?:years?|yrs?)\b`)

type compiledTerm struct {
	canonical string
	pattern   *regexp.Regexp
}

// KeywordExtractor finds vocabulary skills in a description on word
// boundaries and reads the smallest "N years" requirement.
type KeywordExtractor struct {
	terms     []compiledTerm
	canonical map[string]string
	known     map[string]struct{} // canonical vocabulary names

	declared sync.Map // normalized declared skill -> *regexp.Regexp
}

var (
	_ HintExtractor      = (*KeywordExtractor)(nil)
	_ SkillCanonicalizer = (*KeywordExtractor)(nil)
	_ SkillMentioner     = (*KeywordExtractor)(nil)
)

// NewKeywordExtractor compiles vocab. An empty vocab means DefaultVocabulary.
func NewKeywordExtractor(vocab []SkillTerm) *KeywordExtractor {
	if len(vocab) == 0 {
		vocab = DefaultVocabulary()
	}

	k := &KeywordExtractor{
		canonical: make(map[string]string),
		known:     make(map[string]struct{}),
	}
	for _, term := range vocab {
		name := normalizeSkill(term.Name)
		if name == "" {
			continue
		}
		k.known[name] = struct{}{}

		exact := make(map[string]struct{}, len(term.Exact))
		for _, form := range term.Exact {
			form = strings.TrimSpace(form)
			if form == "" {
				continue
			}
			exact[normalizeSkill(form)] = struct{}{}
			k.terms = append(k.terms, compiledTerm{canonical: name, pattern: exactPattern(form)})
			if _, seen := k.canonical[normalizeSkill(form)]; !seen {
				k.canonical[normalizeSkill(form)] = name
			}
		}

		for _, form := range append([]string{term.Name}, term.Aliases...) {
			form = normalizeSkill(form)
			if form == "" {
				continue
			}
			if _, seen := k.canonical[form]; !seen {
				k.canonical[form] = name
			}
			if _, ok := exact[form]; ok {
				continue
			}
			k.terms = append(k.terms, compiledTerm{canonical: name, pattern: termPattern(form)})
		}
	}
	return k
}

// termPattern matches form case-insensitively when it is not glued to other
// word characters, so "sql" does not match inside "nosql" and "js" does not
// match inside "node.js".
func termPattern(form string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9+#.])` + regexp.QuoteMeta(form) + `(?:$|[^a-z0-9+#])`)
}

// exactPattern is termPattern without case folding
func exactPattern(form string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^A-Za-z0-9+#.])` + regexp.QuoteMeta(form) + `(?:$|[^A-Za-z0-9+#])`)
}

// Extract implements HintExtractor
func (k *KeywordExtractor) Extract(jobDescription string) JobHints {
	var hints JobHints
	if strings.TrimSpace(jobDescription) == "" {
		return hints
	}

	firstSeen := make(map[string]int)
	for _, term := range k.terms {
		loc := term.pattern.FindStringIndex(jobDescription)
		if loc == nil {
			continue
		}
		if pos, ok := firstSeen[term.canonical]; !ok || loc[0] < pos {
			firstSeen[term.canonical] = loc[0]
		}
	}

	for name := range firstSeen {
		hints.Skills = append(hints.Skills, name)
	}
	slices.SortFunc(hints.Skills, func(a, b string) int {
		if c := cmp.Compare(firstSeen[a], firstSeen[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	hints.TargetYears, hints.HasTargetYears = smallestYears(jobDescription)
	return hints
}

// Canonical implements SkillCanonicalizer
func (k *KeywordExtractor) Canonical(skill string) string {
	s := normalizeSkill(skill)
	if name, ok := k.canonical[s]; ok {
		return name
	}
	return s
}

// Mentions implements SkillMentioner. Skills that resolve to a vocabulary
// name are left to Extract so a declared "Go" cannot match "ready to go".
// The rest are matched on the same word boundaries as vocabulary forms and
// returned in canonical form, without duplicates.
func (k *KeywordExtractor) Mentions(jobDescription string, skills []string) []string {
	if strings.TrimSpace(jobDescription) == "" {
		return nil
	}

	var found []string
	for _, skill := range skills {
		form := normalizeSkill(skill)
		if form == "" {
			continue
		}
		name := k.Canonical(form)
		if _, ok := k.known[name]; ok || slices.Contains(found, name) {
			continue
		}
		if k.declaredPattern(form).MatchString(jobDescription) {
			found = append(found, name)
		}
	}
	return found
}

func (k *KeywordExtractor) declaredPattern(form string) *regexp.Regexp {
	if p, ok := k.declared.Load(form); ok {
		return p.(*regexp.Regexp)
	}
	p, _ := k.declared.LoadOrStore(form, termPattern(form))
	return p.(*regexp.Regexp)
}

func smallestYears(text string) (int, bool) {
	best, found := 0, false
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || n < best {
			best, found = n, true
		}
	}
	return best, found
}

func normalizeSkill(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DefaultVocabulary is the built-in skill list used when none is configured.
// Names that double as English words are matched only as capitalized.
func DefaultVocabulary() []SkillTerm {
	return []SkillTerm{
		{Name: "python"},
		{Name: "go", Aliases: []string{"golang"}, Exact: []string{"Go"}},
		{Name: "java"},
		{Name: "javascript", Exact: []string{"JS"}},
		{Name: "typescript", Exact: []string{"TS"}},
		{Name: "c++", Aliases: []string{"cpp"}},
		{Name: "c#", Aliases: []string{"csharp", ".net"}},
		{Name: "rust", Exact: []string{"Rust"}},
		{Name: "ruby", Exact: []string{"Ruby"}},
		{Name: "php"},
		{Name: "kotlin"},
		{Name: "swift", Aliases: []string{"swiftui"}, Exact: []string{"Swift"}},
		{Name: "scala"},
		{Name: "sql"},
		{Name: "nosql"},
		{Name: "postgresql", Aliases: []string{"postgres"}},
		{Name: "mysql"},
		{Name: "mongodb", Aliases: []string{"mongo"}},
		{Name: "redis"},
		{Name: "kafka"},
		{Name: "rabbitmq"},
		{Name: "elasticsearch"},
		{Name: "machine learning", Exact: []string{"ML"}},
		{Name: "deep learning", Exact: []string{"DL"}},
		{Name: "natural language processing", Aliases: []string{"nlp"}},
		{Name: "computer vision"},
		{Name: "data science"},
		{Name: "data engineering"},
		{Name: "statistics"},
		{Name: "tensorflow"},
		{Name: "pytorch"},
		{Name: "scikit-learn", Aliases: []string{"sklearn"}},
		{Name: "pandas"},
		{Name: "numpy"},
		{Name: "spark", Aliases: []string{"pyspark", "apache spark"}, Exact: []string{"Spark"}},
		{Name: "react", Aliases: []string{"react.js", "reactjs"}, Exact: []string{"React"}},
		{Name: "angular"},
		{Name: "vue", Aliases: []string{"vue.js"}},
		{Name: "node.js", Aliases: []string{"nodejs"}},
		{Name: "django"},
		{Name: "flask"},
		{Name: "fastapi"},
		{Name: "spring", Aliases: []string{"spring boot", "spring framework"}, Exact: []string{"Spring"}},
		{Name: "html"},
		{Name: "css"},
		{Name: "graphql"},
		{Name: "rest api", Aliases: []string{"restful"}},
		{Name: "grpc"},
		{Name: "microservices"},
		{Name: "docker"},
		{Name: "kubernetes", Aliases: []string{"k8s"}},
		{Name: "terraform"},
		{Name: "aws", Aliases: []string{"amazon web services"}},
		{Name: "gcp", Aliases: []string{"google cloud"}},
		{Name: "azure"},
		{Name: "linux"},
		{Name: "git", Exact: []string{"Git"}},
		{Name: "ci/cd"},
	}
}
