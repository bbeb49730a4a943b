// Package email sends transactional emails through Postmark, or writes them
// to disk in development. Bodies are rendered from templ components in the
// templates subpackage.
package email
