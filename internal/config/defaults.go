package config

const (
	defaultDataDir           = "~/.local/share/cherthat"
	defaultLogDir            = "~/.local/share/cherthat/logs"
	defaultSocketName        = "cherthat.sock"
	defaultServerBind        = "127.0.0.1:3000"
	defaultBackendURL        = "http://localhost:3000"
	defaultMinWidth          = 50
	defaultMinHeight         = 50
	defaultHideGraceMS       = 300
	defaultResultDisplayMS   = 1500
	defaultProductName       = "Cher That"
	defaultGalleryURL        = "http://localhost:3000/"
	defaultGalleryPollMS     = 5000
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultCORSAllowedOrigin = "*"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind:        defaultServerBind,
			CORSOrigins: []string{defaultCORSAllowedOrigin},
		},
		Relay: Relay{
			BackendURL: defaultBackendURL,
		},
		Control: Control{
			MinWidth:        defaultMinWidth,
			MinHeight:       defaultMinHeight,
			HideGraceMS:     defaultHideGraceMS,
			ResultDisplayMS: defaultResultDisplayMS,
			ProductName:     defaultProductName,
			GalleryURL:      defaultGalleryURL,
		},
		Gallery: Gallery{
			PollIntervalMS: defaultGalleryPollMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
