package billing

type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PricePro      string `env:"STRIPE_PRICE_PRO"`
	PriceAgency   string `env:"STRIPE_PRICE_AGENCY"`
	SuccessURL    string `env:"STRIPE_SUCCESS_URL" envDefault:"http://localhost:8080/dashboard/billing?checkout=success"`
	CancelURL     string `env:"STRIPE_CANCEL_URL" envDefault:"http://localhost:8080/pricing"`
}
