package config

// GatewayConfig holds runtime configuration for the API gateway binary.
// The gateway is stateless; all it needs are the downstream base URLs,
// the browser origins it will admit, and a port to listen on.
type GatewayConfig struct {
	Env            string      // application environment
	Port           string      // HTTP port to listen on
	AllowedOrigins []string    // explicit Origin allow-list for CORS
	Services       ServiceURLs // downstream service base URLs keyed by path prefix
}

// ServiceURLs maps each gateway path prefix to the base URL of the
// downstream service that owns it.
type ServiceURLs struct {
	Auth          string // /auth
	Restaurants   string // /restaurants
	Orders        string // /orders
	Notifications string // /notifications
	Payments      string // /payments
	Delivery      string // /delivery
}

// LoadGateway reads gateway configuration from environment variables.
// Every downstream URL is required; running the gateway with a missing
// target would silently blackhole a whole path prefix.
func LoadGateway() GatewayConfig {
	return GatewayConfig{
		Env:            must("APP_ENV"),
		Port:           must("GATEWAY_PORT"),
		AllowedOrigins: splitList(must("ALLOWED_ORIGINS")),
		Services: ServiceURLs{
			Auth:          must("AUTH_SERVICE_URL"),
			Restaurants:   must("RESTAURANT_SERVICE_URL"),
			Orders:        must("ORDER_SERVICE_URL"),
			Notifications: must("NOTIFICATION_SERVICE_URL"),
			Payments:      must("PAYMENT_SERVICE_URL"),
			Delivery:      must("DELIVERY_SERVICE_URL"),
		},
	}
}
