package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "10m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Only fields present in the file override the runtime Config.
type JsonConfig struct {
	Environment                  *string         `json:"environment"`
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	DatabaseMaxOpenConns         *int            `json:"database_max_open_conns"`
	SecretKey                    *string         `json:"secret_key"`
	SessionTokenValidityDuration *timex.Duration `json:"session_token_validity_duration"`
	OTPValidityDuration          *timex.Duration `json:"otp_validity_duration"`
	SMTPHost                     *string         `json:"smtp_host"`
	SMTPPort                     *int            `json:"smtp_port"`
	SMTPUser                     *string         `json:"smtp_user"`
	SMTPPassword                 *string         `json:"smtp_password"`
	MailFrom                     *string         `json:"mail_from"`
	VisionAPIKey                 *string         `json:"vision_api_key"`
	VisionBaseURL                *string         `json:"vision_base_url"`
	VisionModel                  *string         `json:"vision_model"`
	VisionTimeout                *timex.Duration `json:"vision_timeout"`
	MaxUploadBytes               *int64          `json:"max_upload_bytes"`
	RedisURL                     *string         `json:"redis_url"`
	KafkaBrokers                 []string        `json:"kafka_brokers"`
	KafkaAuditTopic              *string         `json:"kafka_audit_topic"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	ArchiveSealPassphrase        *string         `json:"archive_seal_passphrase"`
	AllowedOrigins               []string        `json:"allowed_origins"`
	WebRoot                      *string         `json:"web_root"`
	LogBackend                   *string         `json:"log_backend"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := configFilePath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Environment, c.Environment)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.DatabaseMaxOpenConns != nil {
		config.DatabaseMaxOpenConns = *c.DatabaseMaxOpenConns
	}
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTokenValidityDuration, c.SessionTokenValidityDuration)
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.VisionAPIKey, c.VisionAPIKey)
	setString(&config.VisionBaseURL, c.VisionBaseURL)
	setString(&config.VisionModel, c.VisionModel)
	setDuration(&config.VisionTimeout, c.VisionTimeout)
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	setString(&config.RedisURL, c.RedisURL)
	if c.KafkaBrokers != nil {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaAuditTopic, c.KafkaAuditTopic)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.ArchiveSealPassphrase, c.ArchiveSealPassphrase)
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.WebRoot, c.WebRoot)
	setString(&config.LogBackend, c.LogBackend)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
