package config

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Router: RouterConfig{
			DefaultDomain: "study",
			Domains: map[string]DomainRoute{
				"study":    {Keywords: defaultStudyKeywords()},
				"shopping": {Keywords: defaultShoppingKeywords()},
			},
		},
		Dispatch: DispatchConfig{
			ProviderTimeoutMs:      5000,
			MaxConcurrentProviders: 4,
		},
		Policies: PoliciesConfig{
			RulesDir: "~/.domainbot/rules",
		},
		Fixtures: FixturesConfig{
			Dir: "~/.domainbot/fixtures",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Model: ModelConfig{
			TimeoutMs: 120000,
		},
	}
}

func defaultStudyKeywords() []string {
	return []string{
		"study", "learn", "explain", "what is", "how does",
		"summarize", "summary", "short notes", "notes",
		"flashcard", "revise", "revision", "memorize", "exam",
	}
}

func defaultShoppingKeywords() []string {
	return []string{
		"buy", "price", "cheap", "budget", "compare", "vs",
		"recommend", "review", "rating", "product", "store",
		"phone", "laptop", "deal", "discount",
	}
}
