package config

const (
	defaultStagingDir           = "~/.local/share/cdmedia/staging"
	defaultStateDir             = "~/.local/share/cdmedia"
	defaultLogDir               = "~/.local/share/cdmedia/logs"
	defaultLibraryDir           = "~/CD Images"
	defaultCdrdaoBinary         = "cdrdao"
	defaultDevice               = "/dev/sr0"
	defaultFastParanoiaMode     = 0
	defaultAccurateParanoiaMode = 3
	defaultStopGraceSeconds     = 10
	defaultBundleExtension      = ".cdmedia"
	defaultDataFileName         = "tracks.bin"
	defaultSheetFileName        = "tracks.cue"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultDiscWaitSeconds      = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			LibraryDir: defaultLibraryDir,
		},
		Cdrdao: Cdrdao{
			Binary:               defaultCdrdaoBinary,
			Device:               defaultDevice,
			ReadRaw:              true,
			FastParanoiaMode:     defaultFastParanoiaMode,
			AccurateParanoiaMode: defaultAccurateParanoiaMode,
			ErrorCorrection:      true,
			StopGraceSeconds:     defaultStopGraceSeconds,
		},
		Bundle: Bundle{
			Extension: defaultBundleExtension,
			DataFile:  defaultDataFileName,
			SheetFile: defaultSheetFileName,
		},
		Disc: Disc{
			WaitTimeoutSeconds: defaultDiscWaitSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
