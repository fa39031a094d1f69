package config

import (
	"flag"
	"os"
	"time"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-o int      OTP validity, minutes
//	-k string   vision model API key
//	-m string   vision model name
//	-r string   Redis URL for the session revocation list
//	-w string   web root with static pages
//	-l string   log backend (slog|zap)
//	-e string   environment (development|production)
//
// Notes:
//   - os.Args is first narrowed to the flags listed here with pickArgs, so
//     flags meant for other components do not break parsing.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	args := pickArgs(os.Args[1:], "a", "d", "s", "t", "o", "k", "m", "r", "w", "l", "e")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session token validity (in minutes)")
	otpValidity := fs.Int("o", int(config.OTPValidityDuration.Minutes()), "otp validity (in minutes)")

	fs.StringVar(&config.VisionAPIKey, "k", config.VisionAPIKey, "vision model API key")
	fs.StringVar(&config.VisionModel, "m", config.VisionModel, "vision model")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.StringVar(&config.WebRoot, "w", config.WebRoot, "web root")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.OTPValidityDuration = time.Duration(*otpValidity) * time.Minute
}
