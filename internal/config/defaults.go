package config

import "time"

// Default returns the built-in configuration: the Thanaweya Amma subject
// set with English and Arabic marker patterns and the standard cleaning
// profiles. Everything here can be overridden from the TOML file.
func Default() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			MinCharDensity:   0.6, // chars per 1000 pt²; ~300 chars on A4
			MinScriptRatio:   0.55,
			MinOCRChars:      50,
			GutterMinWidth:   18,
			GutterCenterBand: 0.2,
			OCRTimeout:       90 * time.Second,
		},
		Chunker: ChunkerConfig{
			MinChars: 200,
			MaxChars: 600,
		},
		Ingest: IngestConfig{
			Concurrency:        4,
			IndexRetryAttempts: 3,
			IndexRetryBackoff:  100 * time.Millisecond,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			KDense:   10,
			KSparse:  10,
			RRFKappa: 60,
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			EmbedModel:     "nomic-embed-text",
			Dimensions:     768,
			EmbedTimeout:   30 * time.Second,
			EmbedRPS:       8,
			GenModel:       "llama3.1:8b",
			GenTimeout:     120 * time.Second,
			GenTemperature: 0.7,
			GenMaxTokens:   2000,
		},
		Assembler: AssemblerConfig{
			TokenBudget: 3000,
		},
		Session: SessionConfig{
			WindowSize: 3,
		},
		Subjects: map[string]SubjectConfig{
			"arabic":    {Language: "ar", OCRLanguage: "ara+eng", Cleaner: "arabic"},
			"math":      {Language: "en", OCRLanguage: "eng", Cleaner: "math"},
			"physics":   {Language: "en", OCRLanguage: "eng", Cleaner: "math"},
			"chemistry": {Language: "en", OCRLanguage: "eng", Cleaner: "science"},
			"biology":   {Language: "en", OCRLanguage: "eng", Cleaner: "science"},
			"english":   {Language: "en", OCRLanguage: "eng", Cleaner: "english"},
		},
		Cleaners: map[string]CleanerConfig{
			"arabic": {
				StripIsolatedLatin: true,
				NormaliseArabic:    true,
			},
			"math": {
				CaptionPatterns:  []string{`^Fig\.?\s*\d+.*$`},
				ProtectOperators: []string{"=", "+", "−", "-", "×", "÷"},
			},
			"science": {
				CaptionPatterns: []string{
					`^(?i)(Fig|Shape|Figure)\.?\s*\(?\d+\)?.*$`,
					`^\s*[A-Z]\s*$`,
				},
				NormaliseBullets: true,
			},
			"english": {
				ReflowOptions: true,
			},
		},
		Languages: map[string]LanguageConfig{
			"en": {
				Markers: []MarkerRule{
					{Class: "unit", Pattern: `^(?i)Unit\s+\d+`},
					{Class: "chapter", Pattern: `^(?i)Chapter\s+\d+`},
					{Class: "lesson", Pattern: `^(?i)(Lesson|Lecture)\s+\d+`},
					{Class: "numbered", Pattern: `^(?i)Section\s+\d+`},
					{Class: "numbered", Pattern: `^\d+\s*-\s+\S`},
				},
			},
			"ar": {
				Markers: []MarkerRule{
					{Class: "unit", Pattern: `^(الباب|الوحدة)\s+(الأول|الثاني|الثالث|الرابع|الخامس|السادس|السابع|الثامن|التاسع|العاشر|\d+)`},
					{Class: "chapter", Pattern: `^الفصل\s+(الأول|الثاني|الثالث|الرابع|الخامس|السادس|السابع|الثامن|التاسع|العاشر|\d+)`},
					{Class: "lesson", Pattern: `^(الدرس|المحاضرة)\s+(الأول|الثاني|الثالث|الرابع|الخامس|السادس|السابع|الثامن|التاسع|العاشر|\d+)`},
					{Class: "numbered", Pattern: `^\d+\s*-\s+\S`},
				},
			},
		},
	}
}
