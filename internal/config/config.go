package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN        string
	MongoURI       string
	RedisAddr      string
	RabbitURL      string
	ReservationTTL time.Duration
	OTLPEndpoint   string

	// Payment gateway settings, supplied out-of-band.
	ECPayMerchantID    string
	ECPayHashKey       string
	ECPayHashIV        string
	ECPayAPIURL        string
	ECPayClientBackURL string
	AppDomain          string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	reservationTTL, _ := time.ParseDuration(os.Getenv("RESERVATION_TTL"))
	if reservationTTL == 0 {
		reservationTTL = 15 * time.Minute
	}

	return &Config{
		CRDBDSN:        os.Getenv("CRDB_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		ReservationTTL: reservationTTL,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		ECPayMerchantID:    os.Getenv("ECPAY_MERCHANT_ID"),
		ECPayHashKey:       os.Getenv("ECPAY_HASH_KEY"),
		ECPayHashIV:        os.Getenv("ECPAY_HASH_IV"),
		ECPayAPIURL:        os.Getenv("ECPAY_API_URL"),
		ECPayClientBackURL: os.Getenv("ECPAY_CLIENT_BACK_URL"),
		AppDomain:          os.Getenv("APP_DOMAIN"),
	}, nil
}
