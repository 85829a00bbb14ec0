// Package cleaner normalises raw extracted text before chunking.
//
// Cleaning is a pure, deterministic pipeline of ordered stages selected by
// a subject's profile: noise stripping, script normalisation, then the
// subject's symbol policy, with a final noise pass so destructive edits
// cannot leave residue behind. The pipeline is idempotent: cleaning
// already-cleaned text is a no-op.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/muallim-cli/internal/config"
)

var (
	pageNumberRe    = regexp.MustCompile(`^\d{1,3}$`)
	separatorRe     = regexp.MustCompile(`^[-_=—–\s]{3,}$`)
	arabicPunctRe   = regexp.MustCompile(`\s+([،؛؟])`)
	isolatedLatinRe = regexp.MustCompile(`\s[a-zA-Z]\s`)
	bulletRe        = regexp.MustCompile(`^[·•●]\s*`)
	optionRe        = regexp.MustCompile(`\s+([A-D]\.)\s+`)
	spaceRunRe      = regexp.MustCompile(`[ \t]+`)

	// Arabic diacritics (tashkeel), the superscript alef and tatweel.
	arabicDiacriticsRe = regexp.MustCompile("[ً-ٰٟـ]")

	// Explicit bidi controls. Removing them never reorders characters;
	// logical order is preserved for mixed LTR/RTL runs.
	bidiControlRe = regexp.MustCompile("[‎‏‪-‮⁦-⁩]")
)

// Profile is a compiled cleaning rule set for one subject family.
type Profile struct {
	name               string
	captionRes         []*regexp.Regexp
	protectOps         []string
	stripIsolatedLatin bool
	normaliseArabic    bool
	normaliseBullets   bool
	reflowOptions      bool
}

// Compile turns a config rule set into an executable profile.
func Compile(name string, cfg config.CleanerConfig) (*Profile, error) {
	p := &Profile{
		name:               name,
		protectOps:         cfg.ProtectOperators,
		stripIsolatedLatin: cfg.StripIsolatedLatin,
		normaliseArabic:    cfg.NormaliseArabic,
		normaliseBullets:   cfg.NormaliseBullets,
		reflowOptions:      cfg.ReflowOptions,
	}
	for _, pat := range cfg.CaptionPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, err
		}
		p.captionRes = append(p.captionRes, re)
	}
	return p, nil
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// Clean runs the full pipeline over raw text.
func (p *Profile) Clean(raw string) string {
	text := p.stripNoise(raw)
	text = p.normaliseScript(text)
	text = p.applySymbolPolicy(text)
	// Script and symbol edits can shorten lines below the noise
	// thresholds; the closing pass keeps the pipeline idempotent.
	return p.stripNoise(text)
}

// stripNoise removes non-content lines: page numbers, separator rules,
// caption lines, diagram table artifacts and stray control characters.
func (p *Profile) stripNoise(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		line = stripControl(line)
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if pageNumberRe.MatchString(s) {
			continue
		}
		if len([]rune(s)) < 3 && s != "." && s != "!" && s != "?" && s != "؟" {
			continue
		}
		if separatorRe.MatchString(s) {
			continue
		}
		if p.normaliseArabic && (strings.Count(s, "|") > 2 || strings.Count(s, "_") > 5) {
			// OCR renders diagram tables as pipe/underscore lattices.
			continue
		}
		if p.matchesCaption(s) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.Join(kept, "\n")
}

func (p *Profile) matchesCaption(line string) bool {
	for _, re := range p.captionRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// normaliseScript applies Unicode NFC and, for Arabic profiles, diacritic
// and punctuation normalisation. Characters are never reordered.
func (p *Profile) normaliseScript(text string) string {
	text = norm.NFC.String(text)
	text = bidiControlRe.ReplaceAllString(text, "")

	if !p.normaliseArabic {
		return text
	}

	text = arabicDiacriticsRe.ReplaceAllString(text, "")
	text = arabicPunctRe.ReplaceAllString(text, "$1")

	if p.stripIsolatedLatin {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = stripIsolatedLatin(line)
		}
		text = strings.Join(lines, "\n")
	}
	return text
}

// stripIsolatedLatin removes single Latin letters stranded by OCR of
// labelled diagrams, iterating to a fixed point so adjacent labels
// ("a b c") vanish in one Clean call.
func stripIsolatedLatin(line string) string {
	padded := " " + line + " "
	for {
		next := isolatedLatinRe.ReplaceAllString(padded, " ")
		if next == padded {
			break
		}
		padded = next
	}
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(padded, " "))
}

// applySymbolPolicy applies the subject's symbol rules: operator
// protection for math/physics, bullet normalisation for science,
// option reflow for language subjects.
func (p *Profile) applySymbolPolicy(text string) string {
	if len(p.protectOps) > 0 {
		for _, op := range p.protectOps {
			text = strings.ReplaceAll(text, op, " "+op+" ")
		}
		text = spaceRunRe.ReplaceAllString(text, " ")
	}

	if p.normaliseBullets {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = bulletRe.ReplaceAllString(line, "- ")
		}
		text = strings.Join(lines, "\n")
	}

	if p.reflowOptions {
		text = optionRe.ReplaceAllString(text, "\n$1 ")
	}
	return text
}

// stripControl removes control characters other than tab.
func stripControl(line string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, line)
}

// Set holds compiled profiles keyed by profile name and resolves subjects
// to profiles via the subject configuration.
type Set struct {
	profiles map[string]*Profile
	subjects map[string]config.SubjectConfig
	fallback *Profile
}

// NewSet compiles every configured profile. Unknown subjects fall back to
// the english profile when present, else a bare profile with no rules.
func NewSet(cfg *config.Config) (*Set, error) {
	s := &Set{
		profiles: make(map[string]*Profile, len(cfg.Cleaners)),
		subjects: cfg.Subjects,
	}
	for name, cc := range cfg.Cleaners {
		p, err := Compile(name, cc)
		if err != nil {
			return nil, err
		}
		s.profiles[name] = p
	}

	if p, ok := s.profiles["english"]; ok {
		s.fallback = p
	} else {
		s.fallback, _ = Compile("default", config.CleanerConfig{})
	}
	return s, nil
}

// ForSubject returns the profile for a subject key.
func (s *Set) ForSubject(subject string) *Profile {
	if sc, ok := s.subjects[subject]; ok {
		if p, ok := s.profiles[sc.Cleaner]; ok {
			return p
		}
	}
	return s.fallback
}
