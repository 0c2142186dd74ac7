package email

// Config holds outbound mail settings. Without Postmark tokens the
// application falls back to the development sender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@seoscope.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@seoscope.local"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// PostmarkEnabled reports whether Postmark credentials are present.
func (c Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != ""
}
