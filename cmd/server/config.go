package main

// appConfig holds settings that belong to the binary rather than a package.
type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	Name        string `env:"APP_NAME" envDefault:"seoscope"`
	BaseURL     string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	TokenSecret string `env:"TOKEN_SECRET,required"`
}
