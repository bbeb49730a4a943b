// Package logger builds log/slog loggers for the service.
//
// New returns a JSON logger by default; WithEnvironment switches to text
// output at debug level for local development. Context extractors inject
// request scoped attributes such as the request id on every record:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "learnpro"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
// Attribute helpers (UserID, CourseID, Error, Component) keep key names
// consistent across packages.
package logger
