// Package logging provides the zap-backed logger used across outreach-service.
//
// Every method takes a context so run and contact correlation travels with the
// call instead of being threaded through each log line by hand:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithContactID(ctx, contact.ID)
//	logger.Info(ctx, "draft generated", zap.String("style", string(style)))
package logging
