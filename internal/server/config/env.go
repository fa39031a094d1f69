package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests; a missing .env file is not an error.
var loadDotEnv = func() { _ = godotenv.Load() }

// parseEnv overlays values from environment variables (optionally read from
// a .env file in the working directory).
//
// Supported variables:
//
//	APP_ENV / NODE_ENV         environment ("production" enables Secure cookies)
//	HTTP_ADDR                  HTTP bind address
//	DATABASE_DSN               full PostgreSQL DSN
//	DB_HOST, DB_PORT, DB_USERNAME, DB_PASSWORD, DB_DATABASE, DB_SSLMODE
//	                           DSN parts; used when DATABASE_DSN is not set
//	JWT_SECRET                 session signing secret
//	EMAIL_USER, EMAIL_PASS     SMTP credentials; EMAIL_USER is also the sender
//	SMTP_HOST, SMTP_PORT       SMTP server
//	TOGETHER_API_KEY           vision model API key
//	VISION_BASE_URL, VISION_MODEL
//	REDIS_URL                  session revocation list
//	KAFKA_BROKERS              comma separated broker list
//	KAFKA_AUDIT_TOPIC
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
//	ARCHIVE_SEAL_PASSPHRASE    encrypts archived scans at rest
//	WEB_ROOT, LOG_BACKEND
func parseEnv(config *Config) {
	loadDotEnv()

	if v, ok := lookup("NODE_ENV"); ok {
		config.Environment = v
	}
	envString(&config.Environment, "APP_ENV")
	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")

	if v, ok := lookup("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	} else if host, ok := lookup("DB_HOST"); ok {
		config.DatabaseDSN = buildDSN(host)
	}

	envString(&config.SecretKey, "JWT_SECRET")
	envString(&config.SMTPHost, "SMTP_HOST")
	if v, ok := lookup("SMTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = port
		}
	}
	if v, ok := lookup("EMAIL_USER"); ok {
		config.SMTPUser = v
		config.MailFrom = v
	}
	envString(&config.SMTPPassword, "EMAIL_PASS")
	envString(&config.VisionAPIKey, "TOGETHER_API_KEY")
	envString(&config.VisionBaseURL, "VISION_BASE_URL")
	envString(&config.VisionModel, "VISION_MODEL")
	envString(&config.RedisURL, "REDIS_URL")
	if v, ok := lookup("KAFKA_BROKERS"); ok {
		config.KafkaBrokers = splitList(v)
	}
	envString(&config.KafkaAuditTopic, "KAFKA_AUDIT_TOPIC")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.ArchiveSealPassphrase, "ARCHIVE_SEAL_PASSPHRASE")
	envString(&config.WebRoot, "WEB_ROOT")
	envString(&config.LogBackend, "LOG_BACKEND")
}

func buildDSN(host string) string {
	port := getenv("DB_PORT", "5432")
	sslmode := getenv("DB_SSLMODE", "require")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("DB_USERNAME"), os.Getenv("DB_PASSWORD")),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + os.Getenv("DB_DATABASE"),
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func getenv(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
