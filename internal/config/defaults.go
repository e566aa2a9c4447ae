package config

const (
	defaultOutputDir  = "~/courses/imported"
	defaultScratchDir = "~/.local/share/zaphod/scratch"
	defaultLogDir     = "~/.local/share/zaphod/logs"

	defaultMaxTotalBytes       = 500 * 1024 * 1024
	defaultMaxMemberBytes      = 50 * 1024 * 1024
	defaultMaxMembers          = 10000
	defaultMaxCompressionRatio = 100

	defaultAssignmentDescriptor = "assignment.xml"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultBankKeywords() []string {
	return []string{"bank", "pool", "item_bank", "question_bank", "qti_bank"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Archive: Archive{
			MaxTotalBytes:       defaultMaxTotalBytes,
			MaxMemberBytes:      defaultMaxMemberBytes,
			MaxMembers:          defaultMaxMembers,
			MaxCompressionRatio: defaultMaxCompressionRatio,
		},
		Classifier: Classifier{
			AssignmentDescriptor: defaultAssignmentDescriptor,
			BankKeywords:         defaultBankKeywords(),
		},
		Import: Import{
			Clean:            false,
			TrackAssets:      true,
			ModulePrefix:     true,
			DefaultPublished: false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
