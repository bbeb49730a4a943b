// Package config loads typed configuration from environment variables.
//
// Every package that needs settings declares its own struct with
// github.com/caarlos0/env/v11 tags, and callers load it with Load:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// A .env file in the working directory is read once through
// github.com/joho/godotenv before the first parse. Parsed values are cached
// per type, so repeated loads are cheap and consistent.
package config
